package progrock_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/timescope/internal/adapters/telemetry/progrock"
	"go.trai.ch/timescope/internal/core/domain"
)

func TestRecorder_Stats(t *testing.T) {
	rec := progrock.New()

	_, loaded := rec.Record(t.Context(), "load cpu/z0:1")
	_, err := loaded.Stdout().Write([]byte("12 rows\n"))
	require.NoError(t, err)
	loaded.Log(domain.LogLevelDebug, "merged")
	loaded.Complete(nil)
	loaded.Complete(errors.New("counted once"))

	_, cached := rec.Record(t.Context(), "load cpu/z0:1")
	cached.Cached()
	cached.Complete(nil)

	_, failed := rec.Record(t.Context(), "load cpu/z0:2")
	failed.Complete(errors.New("connection refused"))

	_, open := rec.Record(t.Context(), "load cpu/z0:3")
	_ = open

	assert.Equal(t, progrock.Stats{Started: 4, Completed: 1, Failed: 1, Cached: 1}, rec.Stats())
	require.NoError(t, rec.Close())
}
