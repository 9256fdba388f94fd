package logger_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/timescope/internal/adapters/logger"
)

func TestPrettyHandler_Attrs(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	log := slog.New(logger.NewPrettyHandler(&buf, nil)).WithGroup("cache").With("series", "cpu")

	log.Info("merged", "rows", 12)
	assert.Equal(t, "merged cache.series=cpu cache.rows=12\n", buf.String())

	buf.Reset()
	log.Debug("dropped")
	assert.Empty(t, buf.String())

	log.Error("failed")
	assert.Equal(t, "✗ failed cache.series=cpu\n", buf.String())
}
