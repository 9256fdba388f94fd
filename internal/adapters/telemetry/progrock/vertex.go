package progrock

import (
	"fmt"
	"io"
	"sync"

	"github.com/vito/progrock"
	"go.trai.ch/timescope/internal/core/domain"
)

// Vertex implements ports.Vertex over a *progrock.VertexRecorder.
type Vertex struct {
	vertex   *progrock.VertexRecorder
	recorder *Recorder

	once   sync.Once
	cached bool
}

// Stdout returns the vertex output stream.
func (v *Vertex) Stdout() io.Writer {
	return v.vertex.Stdout()
}

// Log writes "[LEVEL] msg" to the vertex output.
func (v *Vertex) Log(level domain.LogLevel, msg string) {
	_, _ = fmt.Fprintf(v.vertex.Stdout(), "[%s] %s\n", level.String(), msg)
}

// Cached marks the vertex as served without merging new rows.
func (v *Vertex) Cached() {
	v.cached = true
	v.vertex.Cached()
}

// Complete finishes the vertex. Only the first call counts.
func (v *Vertex) Complete(err error) {
	v.once.Do(func() {
		v.vertex.Done(err)
		v.recorder.update(func(s *Stats) {
			switch {
			case err != nil:
				s.Failed++
			case v.cached:
				s.Cached++
			default:
				s.Completed++
			}
		})
	})
}
