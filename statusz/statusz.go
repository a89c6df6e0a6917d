// Package statusz exposes the engine's health and counters over HTTP for
// operators. It is read-only and optional; an empty listen address disables
// it entirely.
package statusz

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/burrow/journal"
	"github.com/hazyhaar/burrow/ledger"
)

// Snapshot is the /statusz response body.
type Snapshot struct {
	Poller journal.Stats `json:"poller"`
	Ledger ledger.Stats  `json:"ledger"`
}

// Router builds the status router. pollerStats may return zero stats until
// the engine is running.
func Router(pollerStats func() journal.Stats, led *ledger.Ledger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/statusz", func(w http.ResponseWriter, req *http.Request) {
		ledgerStats, err := led.Stats(req.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Snapshot{
			Poller: pollerStats(),
			Ledger: ledgerStats,
		})
	})

	return r
}

// Serve runs the status server until ctx is cancelled. Listen errors are
// logged, never fatal: losing the status page must not take the engine down.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) {
	if addr == "" {
		return
	}
	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("statusz: listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("statusz: server failed", "error", err)
	}
}
