// Package progrock records tile loads on a progrock tape.
package progrock

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
	"go.trai.ch/timescope/internal/core/ports"
)

// Stats counts the vertices a Recorder finished.
type Stats struct {
	Started   int
	Completed int
	Failed    int
	Cached    int
}

// Recorder implements ports.Telemetry on top of a progrock.Recorder. Every
// Record call opens a fresh vertex, so reloads of a tile show up separately.
type Recorder struct {
	w   progrock.Writer
	rec *progrock.Recorder
	seq atomic.Uint64

	mu    sync.Mutex
	stats Stats
}

// New creates a Recorder writing to an in-memory tape.
func New() *Recorder {
	return NewRecorder(progrock.NewTape())
}

// NewRecorder creates a Recorder writing to w.
func NewRecorder(w progrock.Writer) *Recorder {
	return &Recorder{w: w, rec: progrock.NewRecorder(w)}
}

// Record starts a vertex named name.
func (r *Recorder) Record(ctx context.Context, name string) (context.Context, ports.Vertex) {
	d := digest.FromString(name + "#" + strconv.FormatUint(r.seq.Add(1), 10))
	r.update(func(s *Stats) { s.Started++ })
	return ctx, &Vertex{vertex: r.rec.Vertex(d, name), recorder: r}
}

// Stats returns a snapshot of the counters.
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Recorder) update(fn func(*Stats)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.stats)
}

// Close flushes the recording.
func (r *Recorder) Close() error {
	if c, ok := r.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
