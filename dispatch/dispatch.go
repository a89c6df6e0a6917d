// Package dispatch routes newly recorded journal entries to action handlers
// by command keyword. The keyword set is closed: only what the binary
// registers at startup is recognized, everything else is a deliberate no-op.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/hazyhaar/burrow/command"
	"github.com/hazyhaar/burrow/journal"
)

// Handler performs the side effect for one recognized keyword.
type Handler interface {
	Handle(ctx context.Context, argument, body string) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, argument, body string) error

func (f HandlerFunc) Handle(ctx context.Context, argument, body string) error {
	return f(ctx, argument, body)
}

// Dispatcher parses entry titles and routes to registered handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *slog.Logger
}

// New creates an empty Dispatcher. Register handlers before polling starts.
func New(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Register binds a handler to a keyword. The keyword is normalized the same
// way parsed keywords are, so registration and routing can never disagree
// on case or stray punctuation.
func (d *Dispatcher) Register(keyword string, h Handler) {
	d.mu.Lock()
	d.handlers[command.Normalize(keyword)] = h
	d.mu.Unlock()
}

// Dispatch parses entry's title and routes it. Malformed titles and
// unrecognized keywords are logged and dropped; only a handler failure is
// returned to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, entry journal.Entry) error {
	// Structured entries are excluded from processing no matter what their
	// title says; the poller never forwards them, this guard keeps the
	// invariant local too.
	if entry.HasStructuredMarker {
		d.logger.Debug("dispatch: structured entry ignored", "title", entry.Title)
		return nil
	}

	cmd, err := command.Parse(entry.Title)
	if err != nil {
		var malformed *command.ErrMalformed
		if errors.As(err, &malformed) {
			d.logger.Info("dispatch: title is not a command", "title", entry.Title)
			return nil
		}
		return err
	}

	if !cmd.Routable() {
		d.logger.Debug("dispatch: keyword not routable", "keyword", cmd.Keyword)
		return nil
	}

	d.mu.RLock()
	h, ok := d.handlers[cmd.Keyword]
	d.mu.RUnlock()
	if !ok {
		d.logger.Debug("dispatch: no handler for keyword", "keyword", cmd.Keyword)
		return nil
	}

	d.logger.Info("dispatch: routing command",
		"keyword", cmd.Keyword, "argument", cmd.Argument)
	return h.Handle(ctx, cmd.Argument, cmd.Body)
}
