// Command burrow polls the journal site for new entries, records each one
// exactly once, and dispatches recognized title commands to the messaging
// handler.
//
// Usage:
//
//	burrow                          # defaults, credentials from env/.env
//	burrow -config burrow.yaml      # selector/site overrides from YAML
//	burrow -status-addr :8090       # expose /healthz and /statusz
//
// Required environment: RABBITHOLE_EMAIL, RABBITHOLE_PASSWORD (a .env file
// next to the binary is loaded when present).
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hazyhaar/burrow"
	"github.com/hazyhaar/burrow/statusz"
)

func main() {
	configPath := flag.String("config", "", "path to burrow.yaml config file")
	statusAddr := flag.String("status-addr", "", "status HTTP listen address (overrides config)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *statusAddr); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("burrow: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, statusAddr string) error {
	// A missing .env is fine; the variables may come from the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("burrow: .env load failed", "error", err)
	}

	cfg := burrow.DefaultConfig()
	if configPath != "" {
		loaded, err := burrow.LoadConfigFile(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if statusAddr != "" {
		cfg.StatusAddr = statusAddr
	}

	cfg.Journal.Credentials.Email = os.Getenv("RABBITHOLE_EMAIL")
	cfg.Journal.Credentials.Password = os.Getenv("RABBITHOLE_PASSWORD")

	engine, err := burrow.New(cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	if cfg.StatusAddr != "" {
		router := statusz.Router(engine.PollerStats, engine.Ledger())
		go statusz.Serve(ctx, cfg.StatusAddr, router, logger)
	}

	return engine.Run(ctx)
}
