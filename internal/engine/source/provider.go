package source

import (
	"context"
	"sync"

	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/zerr"
)

// Provider answers the renderer's tile and meta requests for a set of
// series keyed by chart.
type Provider struct {
	mu     sync.RWMutex
	series map[string]*Series
}

// NewProvider creates an empty Provider.
func NewProvider() *Provider {
	return &Provider{series: make(map[string]*Series)}
}

// Register serves s under key, replacing any previous series.
func (p *Provider) Register(key string, s *Series) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.series[key] = s
}

// Unregister stops serving key.
func (p *Provider) Unregister(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.series, key)
}

// Series returns the series served under key.
func (p *Provider) Series(key string) (*Series, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.series[key]
	if !ok {
		return nil, zerr.With(domain.ErrUnknownSeries, "key", key)
	}
	return s, nil
}

// LoadChunk answers provider:loadChunk.
func (p *Provider) LoadChunk(ctx context.Context, req domain.LoadChunkRequest) (domain.ChunkResult, error) {
	s, err := p.Series(req.Key)
	if err != nil {
		return domain.ChunkResult{}, err
	}
	return s.LoadChunk(ctx, req.Chunk)
}

// LoadMeta answers provider:loadMeta.
func (p *Provider) LoadMeta(_ context.Context, req domain.LoadMetaRequest) (domain.SeriesMeta, error) {
	s, err := p.Series(req.Key)
	if err != nil {
		return domain.SeriesMeta{}, err
	}
	return s.Meta(), nil
}

// ViewChanged recomputes the data range of every series for the view.
func (p *Provider) ViewChanged(v domain.ViewChanged) {
	p.mu.RLock()
	series := make([]*Series, 0, len(p.series))
	for _, s := range p.series {
		series = append(series, s)
	}
	p.mu.RUnlock()

	for _, s := range series {
		s.UpdateDataRange(v.Range, v.Zoom)
	}
}
