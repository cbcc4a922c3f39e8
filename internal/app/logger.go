package app

import (
	"log/slog"
	"os"
)

// NewLogger returns the process logger. Production always emits JSON so log
// shippers can parse it; elsewhere LOG_FORMAT selects.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler
	if cfg.IsProduction() || (cfg != nil && cfg.LogFormat == "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With(slog.String("service", "wardflow"))
}
