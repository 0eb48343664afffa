// Package bootstrap builds the shared runtime of the commands: logging, observability providers,
// the embedding client stack and the similarity pipeline, all from *config.Config.
package bootstrap

import (
	"log/slog"
	"os"
	"strings"

	"github.com/soundgraph/hub/internal/observability"
)

// SetupLogging installs a text handler on stdout at the given level, wrapped so trace, request
// and run ids from the context appear on every record.
func SetupLogging(level string) {
	slog.SetDefault(slog.New(observability.NewTraceContextHandler(
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(level)}),
	)))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
