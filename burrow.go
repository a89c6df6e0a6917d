// Package burrow wires the polling, deduplication, and dispatch engine
// together: one shared browser process, a journal poller on its own site
// context, and the telegram action handler on another.
package burrow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hazyhaar/burrow/auth"
	"github.com/hazyhaar/burrow/dispatch"
	"github.com/hazyhaar/burrow/driver"
	"github.com/hazyhaar/burrow/internal/browser"
	"github.com/hazyhaar/burrow/journal"
	"github.com/hazyhaar/burrow/ledger"
	"github.com/hazyhaar/burrow/session"
	"github.com/hazyhaar/burrow/telegram"
)

// Engine owns the whole pipeline. Create with New, drive with Run.
type Engine struct {
	cfg        *Config
	logger     *slog.Logger
	mgr        *browser.Manager
	led        *ledger.Ledger
	dispatcher *dispatch.Dispatcher

	mu     sync.Mutex
	poller *journal.Poller
}

// New validates cfg, opens the ledger, and registers the action handlers.
// Missing journal credentials are a configuration error: the engine refuses
// to start before any browsing begins.
func New(cfg *Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.ApplyDefaults()

	if cfg.Journal.Credentials.Email == "" || cfg.Journal.Credentials.Password == "" {
		return nil, fmt.Errorf("burrow: journal credentials are not set")
	}

	led, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return nil, err
	}

	mgr := browser.NewManager(browser.Config{
		RemoteURL: cfg.Browser.Remote,
		Mode:      cfg.Browser.Mode,
		Logger:    logger,
	})

	e := &Engine{
		cfg:        cfg,
		logger:     logger,
		mgr:        mgr,
		led:        led,
		dispatcher: dispatch.New(logger),
	}

	tg := telegram.NewHandler(
		cfg.Telegram,
		e.sitePages(cfg.Telegram.Site),
		session.NewStore(cfg.SessionsDir),
		logger,
	)
	e.dispatcher.Register("telegram", tg)

	return e, nil
}

// sitePages returns a factory opening isolated pages for one site.
func (e *Engine) sitePages(site string) telegram.PageFactory {
	return func(ctx context.Context) (driver.Page, error) {
		p, err := e.mgr.NewSitePage(ctx, site)
		if err != nil {
			return nil, err
		}
		return driver.NewRodPage(p), nil
	}
}

// Run starts the browser and polls until ctx is cancelled or an
// unrecoverable error occurs. It blocks; handler invocations run inside the
// poll cycle, never concurrently with it.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.mgr.Start(ctx); err != nil {
		return err
	}

	rp, err := e.mgr.NewSitePage(ctx, e.cfg.Journal.Site)
	if err != nil {
		return err
	}
	page := driver.NewRodPage(rp)
	defer page.Close()

	store := session.NewStore(e.cfg.SessionsDir)
	if err := session.Bootstrap(ctx, page, store, e.cfg.Journal.Site, e.cfg.Journal.BaseURL); err != nil {
		return err
	}

	poller := journal.New(e.cfg.Journal, page, e.led, auth.New(store, e.logger), e.dispatcher, e.logger)
	e.mu.Lock()
	e.poller = poller
	e.mu.Unlock()

	return poller.Run(ctx)
}

// PollerStats returns the poller counters, zero before Run has started.
func (e *Engine) PollerStats() journal.Stats {
	e.mu.Lock()
	p := e.poller
	e.mu.Unlock()
	if p == nil {
		return journal.Stats{}
	}
	return p.Stats()
}

// Ledger exposes the entry ledger (status surface, tests).
func (e *Engine) Ledger() *ledger.Ledger {
	return e.led
}

// Close releases the browser and the ledger.
func (e *Engine) Close() error {
	e.mgr.Close()
	return e.led.Close()
}
