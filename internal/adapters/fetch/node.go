package fetch

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/grindlemire/graft"
	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/timescope/internal/core/ports"
	"go.trai.ch/zerr"
)

// NodeID is the unique identifier for the fetcher Graft node.
const NodeID graft.ID = "adapter.fetcher"

// EnvTimeout overrides DefaultTimeout, as a Go duration.
const EnvTimeout = "TIMESCOPE_FETCH_TIMEOUT"

func init() {
	graft.Register(graft.Node[ports.Fetcher]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Fetcher, error) {
			timeout, err := Timeout(os.Getenv(EnvTimeout))
			if err != nil {
				return nil, err
			}
			return New(&http.Client{Timeout: timeout}), nil
		},
	})
}

// Timeout parses a request timeout; empty means DefaultTimeout.
func Timeout(raw string) (time.Duration, error) {
	if raw == "" {
		return DefaultTimeout, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, zerr.With(domain.ErrInvalidConfig, EnvTimeout, raw)
	}
	return d, nil
}
