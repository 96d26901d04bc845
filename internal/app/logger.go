package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. JSON output goes to log shippers in
// deployed environments; the text handler reads better during development.
// Every record carries the service name and environment.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}

	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	env := "development"
	if cfg != nil && cfg.AppEnv != "" {
		env = cfg.AppEnv
	}
	return slog.New(handler).With(
		slog.String("service", "stockroom"),
		slog.String("env", env),
	)
}
