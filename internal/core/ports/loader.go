package ports

import (
	"context"

	"go.trai.ch/timescope/internal/core/domain"
)

//go:generate go run go.uber.org/mock/mockgen -source=loader.go -destination=mocks/mock_loader.go -package=mocks

// ChunkLoader loads the rows of one tile.
type ChunkLoader interface {
	// LoadChunk returns the rows covering desc. It may fail; callers treat
	// failures per tile.
	LoadChunk(ctx context.Context, desc domain.ChunkDesc) (domain.ChunkResult, error)
}

// ChunkLoaderFunc adapts a function to ChunkLoader.
type ChunkLoaderFunc func(ctx context.Context, desc domain.ChunkDesc) (domain.ChunkResult, error)

// LoadChunk calls f.
func (f ChunkLoaderFunc) LoadChunk(ctx context.Context, desc domain.ChunkDesc) (domain.ChunkResult, error) {
	return f(ctx, desc)
}

// Fetcher retrieves raw records from a URL.
type Fetcher interface {
	// Fetch returns the decoded records found at url.
	Fetch(ctx context.Context, url string) ([]map[string]any, error)
}
