package ports

import (
	"context"
	"io"

	"go.trai.ch/timescope/internal/core/domain"
)

//go:generate go run go.uber.org/mock/mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks

// Telemetry records units of work such as tile loads.
type Telemetry interface {
	// Record starts a vertex named name.
	Record(ctx context.Context, name string) (context.Context, Vertex)
	// Close flushes the recording.
	Close() error
}

// Vertex is one recorded unit of work.
type Vertex interface {
	// Stdout returns a writer attached to the vertex output.
	Stdout() io.Writer
	// Log writes a levelled message to the vertex output.
	Log(level domain.LogLevel, msg string)
	// Complete finishes the vertex, failed when err is non-nil.
	Complete(err error)
	// Cached marks the vertex as served without work.
	Cached()
}
