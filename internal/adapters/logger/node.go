package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/grindlemire/graft"
	"go.trai.ch/timescope/internal/core/ports"
	"go.trai.ch/zerr"
)

// NodeID is the unique identifier for the logger Graft node.
const NodeID graft.ID = "adapter.logger"

// Environment variables the logger node reads.
const (
	EnvFormat = "TIMESCOPE_LOG_FORMAT"
	EnvLevel  = "TIMESCOPE_LOG_LEVEL"
)

func init() {
	graft.Register(graft.Node[ports.Logger]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Logger, error) {
			l := &Logger{level: &slog.LevelVar{}, output: os.Stderr}
			l.rebuild()
			if err := configure(l, os.LookupEnv); err != nil {
				return nil, err
			}
			return l, nil
		},
	})
}

// configure applies EnvFormat ("json" or "pretty") and EnvLevel (a slog
// level name such as "debug" or "warn").
func configure(l *Logger, lookup func(string) (string, bool)) error {
	if format, ok := lookup(EnvFormat); ok {
		l.SetJSON(strings.EqualFold(strings.TrimSpace(format), "json"))
	}
	if raw, ok := lookup(EnvLevel); ok && raw != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
			return zerr.With(zerr.Wrap(err, "invalid log level"), "value", raw)
		}
		l.SetLevel(level)
	}
	return nil
}
