// Package auth establishes or restores a logged-in session against a site,
// with a fixed retry bound on transient failure.
//
// A Flow describes what "authenticated" looks like for one site: a probe
// that detects an existing session, an optional credential submission, and
// a post-login marker to await. The journal site submits username/password
// fields; the messaging site only waits on its marker while an external
// QR login happens out of band.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/burrow/driver"
	"github.com/hazyhaar/burrow/session"
)

// maxAttempts bounds the reload-and-wait cycles on the ready marker.
// Exhausting it is a hard failure of the dependent operation; nothing
// retries authentication again within the same cycle.
const maxAttempts = 3

const defaultReadyTimeout = 30 * time.Second

// Flow describes the authentication shape of one site.
type Flow struct {
	// Site keys the session state in the Store.
	Site string

	// Probe reports whether the page is already authenticated. When it
	// returns true no credentials are submitted and no marker is awaited.
	Probe func(ctx context.Context, page driver.Page) (bool, error)

	// Login submits credentials. Nil for sites whose login is external.
	Login func(ctx context.Context, page driver.Page) error

	// ReadySelector is the post-login marker awaited between reloads.
	// Empty skips the wait (credential-only flows).
	ReadySelector string

	// ReadyTimeout bounds each wait on ReadySelector. Default 30s.
	ReadyTimeout time.Duration
}

// ErrAuthFailed reports login retries exhausted for a site.
type ErrAuthFailed struct {
	Site     string
	Attempts int
}

func (e *ErrAuthFailed) Error() string {
	return fmt.Sprintf("auth: %s: not authenticated after %d attempt(s)", e.Site, e.Attempts)
}

// Authenticator runs Flows and persists successful sessions.
type Authenticator struct {
	store  *session.Store
	logger *slog.Logger
}

// New creates an Authenticator over the given session store.
func New(store *session.Store, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{store: store, logger: logger}
}

// Ensure brings page into an authenticated state per flow. On success the
// current session state is persisted before returning. On exhausted retries
// it returns *ErrAuthFailed and the caller must abort the dependent
// operation.
func (a *Authenticator) Ensure(ctx context.Context, page driver.Page, flow Flow) error {
	if flow.Probe != nil {
		authed, err := flow.Probe(ctx, page)
		if err != nil {
			return fmt.Errorf("auth: %s: probe: %w", flow.Site, err)
		}
		if authed {
			a.logger.Info("auth: session already valid", "site", flow.Site)
			a.persist(ctx, page, flow.Site)
			return nil
		}
	}

	a.logger.Info("auth: no valid session, logging in", "site", flow.Site)

	if flow.Login != nil {
		if err := flow.Login(ctx, page); err != nil {
			return fmt.Errorf("auth: %s: login: %w", flow.Site, err)
		}
	}

	if flow.ReadySelector != "" {
		timeout := flow.ReadyTimeout
		if timeout <= 0 {
			timeout = defaultReadyTimeout
		}

		for attempt := 1; ; attempt++ {
			err := page.WaitVisible(ctx, flow.ReadySelector, timeout)
			if err == nil {
				break
			}
			if !driver.IsTimeout(err) {
				return fmt.Errorf("auth: %s: await marker: %w", flow.Site, err)
			}
			a.logger.Warn("auth: login marker missing",
				"site", flow.Site, "attempt", attempt, "selector", flow.ReadySelector)
			if attempt >= maxAttempts {
				return &ErrAuthFailed{Site: flow.Site, Attempts: attempt}
			}
			if err := page.Reload(ctx); err != nil {
				return fmt.Errorf("auth: %s: reload: %w", flow.Site, err)
			}
		}
	}

	a.logger.Info("auth: authenticated", "site", flow.Site)
	a.persist(ctx, page, flow.Site)
	return nil
}

// persist snapshots and saves the session. A persistence failure is logged,
// not returned: a login that succeeded stays succeeded, the next run just
// pays for a fresh one.
func (a *Authenticator) persist(ctx context.Context, page driver.Page, site string) {
	state, err := page.SnapshotSession(ctx)
	if err != nil {
		a.logger.Warn("auth: session snapshot failed", "site", site, "error", err)
		return
	}
	if err := a.store.Save(site, state); err != nil {
		a.logger.Warn("auth: session save failed", "site", site, "error", err)
	}
}
