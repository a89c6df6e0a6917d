// Package telegram is the messaging action handler: it opens its own
// isolated page against Telegram web, restores or awaits a session, finds
// the addressed conversation, and sends the command body as a message.
//
// The handler owns an independent session store keyed "telegram" and its
// own authenticator; nothing here is shared with the journal site.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/burrow/auth"
	"github.com/hazyhaar/burrow/driver"
	"github.com/hazyhaar/burrow/session"
)

// Selectors is Telegram web's markup surface.
type Selectors struct {
	// LoggedIn is visible when the main chats view is rendered, meaning the
	// restored session is still honored.
	LoggedIn string `yaml:"logged_in"`
	// Ready is the search input, the marker awaited during login. The login
	// itself (QR scan) happens outside this program's control.
	Ready string `yaml:"ready"`

	Search  string `yaml:"search"`
	Result  string `yaml:"result"`
	Compose string `yaml:"compose"`
	Send    string `yaml:"send"`
}

// Config configures the handler.
type Config struct {
	// Site keys the session state file.
	Site string `yaml:"site"`
	URL  string `yaml:"url"`

	Selectors Selectors `yaml:"selectors"`

	// ReadyTimeout bounds each wait on the login marker. Default 30s.
	ReadyTimeout time.Duration `yaml:"ready_timeout"`
	// ResultTimeout bounds the wait for search results. Default 3s; a miss
	// after this window means the target does not exist for us.
	ResultTimeout time.Duration `yaml:"result_timeout"`
	// SettleTimeout bounds the wait for the opened chat's compose field.
	// Default 5s.
	SettleTimeout time.Duration `yaml:"settle_timeout"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Site == "" {
		c.Site = "telegram"
	}
	if c.URL == "" {
		c.URL = "https://web.telegram.org/k/"
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = 30 * time.Second
	}
	if c.ResultTimeout <= 0 {
		c.ResultTimeout = 3 * time.Second
	}
	if c.SettleTimeout <= 0 {
		c.SettleTimeout = 5 * time.Second
	}
	s := &c.Selectors
	if s.LoggedIn == "" {
		s.LoggedIn = ".chatlist"
	}
	if s.Ready == "" {
		s.Ready = `[placeholder=" "]`
	}
	if s.Search == "" {
		s.Search = `[placeholder=" "]`
	}
	if s.Result == "" {
		s.Result = ".search-super-content-chats a"
	}
	if s.Compose == "" {
		s.Compose = ".input-message-input:nth-child(1)"
	}
	if s.Send == "" {
		s.Send = ".btn-send > .c-ripple"
	}
}

// ErrTargetNotFound reports that the conversation search produced no visible
// result. No message is sent; the handler never falls back to a different
// target.
type ErrTargetNotFound struct {
	Query string
}

func (e *ErrTargetNotFound) Error() string {
	return fmt.Sprintf("telegram: no conversation found for %q", e.Query)
}

// PageFactory opens a fresh isolated page for one handler invocation.
type PageFactory func(ctx context.Context) (driver.Page, error)

// Handler sends messages through Telegram web.
type Handler struct {
	cfg    Config
	pages  PageFactory
	store  *session.Store
	auth   *auth.Authenticator
	logger *slog.Logger
}

// NewHandler creates a Handler with its own authenticator over store.
func NewHandler(cfg Config, pages PageFactory, store *session.Store, logger *slog.Logger) *Handler {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		cfg:    cfg,
		pages:  pages,
		store:  store,
		auth:   auth.New(store, logger),
		logger: logger,
	}
}

// Handle implements dispatch.Handler.
func (h *Handler) Handle(ctx context.Context, argument, body string) error {
	return h.Send(ctx, argument, body)
}

// Send delivers body to the first conversation matching conversationQuery.
// The page context is released on every exit path; the session state is
// persisted again at the end of the call on the success and target-miss
// paths.
func (h *Handler) Send(ctx context.Context, conversationQuery, body string) error {
	sel := h.cfg.Selectors

	page, err := h.pages(ctx)
	if err != nil {
		return fmt.Errorf("telegram: open page: %w", err)
	}
	defer page.Close()

	if err := session.Bootstrap(ctx, page, h.store, h.cfg.Site, h.cfg.URL); err != nil {
		return err
	}

	flow := auth.Flow{
		Site: h.cfg.Site,
		Probe: func(ctx context.Context, pg driver.Page) (bool, error) {
			return pg.IsVisible(ctx, sel.LoggedIn)
		},
		ReadySelector: sel.Ready,
		ReadyTimeout:  h.cfg.ReadyTimeout,
	}
	if err := h.auth.Ensure(ctx, page, flow); err != nil {
		return err
	}

	h.logger.Info("telegram: searching conversation", "query", conversationQuery)
	if err := page.Fill(ctx, sel.Search, conversationQuery); err != nil {
		return fmt.Errorf("telegram: search: %w", err)
	}
	if err := page.Press(ctx, sel.Search, "Enter"); err != nil {
		return fmt.Errorf("telegram: search: %w", err)
	}

	if err := page.WaitVisible(ctx, sel.Result, h.cfg.ResultTimeout); err != nil {
		if driver.IsTimeout(err) {
			h.persist(ctx, page)
			return &ErrTargetNotFound{Query: conversationQuery}
		}
		return fmt.Errorf("telegram: results: %w", err)
	}

	if err := page.Click(ctx, sel.Result); err != nil {
		return fmt.Errorf("telegram: open conversation: %w", err)
	}
	if err := page.WaitVisible(ctx, sel.Compose, h.cfg.SettleTimeout); err != nil {
		return fmt.Errorf("telegram: compose field: %w", err)
	}

	if err := page.Fill(ctx, sel.Compose, body); err != nil {
		return fmt.Errorf("telegram: compose: %w", err)
	}
	if err := page.Click(ctx, sel.Send); err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}

	h.logger.Info("telegram: message sent", "query", conversationQuery)
	h.persist(ctx, page)
	return nil
}

// persist writes the current session state back to the store. Failures are
// logged, not returned: a sent message stays sent.
func (h *Handler) persist(ctx context.Context, page driver.Page) {
	state, err := page.SnapshotSession(ctx)
	if err != nil {
		h.logger.Warn("telegram: session snapshot failed", "error", err)
		return
	}
	if err := h.store.Save(h.cfg.Site, state); err != nil {
		h.logger.Warn("telegram: session save failed", "error", err)
	}
}
