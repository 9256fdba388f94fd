// Package config loads the widget configuration from timescope.yaml.
package config

import (
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/timescope/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// DefaultFilename is looked up when Load is given a directory.
const DefaultFilename = "timescope.yaml"

// Loader implements ports.ConfigLoader over YAML files.
type Loader struct {
	logger ports.Logger
}

// NewLoader creates a Loader. Unused sources are reported to logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load reads the configuration at path, or DefaultFilename inside path
// when it is a directory.
func (l *Loader) Load(path string) (*domain.Config, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, DefaultFilename)
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is provided by the user
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read config file"), "path", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}

	used := make(map[string]bool, len(cfg.Series))
	for _, s := range cfg.Series {
		used[s.Source] = true
	}
	for _, name := range sortedKeys(cfg.Sources) {
		if !used[name] && l.logger != nil {
			l.logger.Warn("source is not used by any series: " + name)
		}
	}
	return cfg, nil
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*domain.Config, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.Wrap(err, "failed to parse config file")
	}

	state, err := convertState(file.State)
	if err != nil {
		return nil, err
	}
	cfg := &domain.Config{
		State:   state,
		Render:  convertRender(file.Render),
		Sources: make(map[string]domain.SourceConfig, len(file.Sources)),
		Series:  make(map[string]domain.SeriesConfig, len(file.Series)),
	}

	for _, name := range sortedKeys(file.Sources) {
		src, err := convertSource(name, file.Sources[name])
		if err != nil {
			return nil, err
		}
		cfg.Sources[name] = src
	}
	for _, name := range sortedKeys(file.Series) {
		s, err := convertSeries(name, file.Series[name])
		if err != nil {
			return nil, err
		}
		if _, ok := cfg.Sources[s.Source]; !ok {
			return nil, zerr.With(zerr.With(domain.ErrUnknownSource, "series", name), "source", s.Source)
		}
		cfg.Series[name] = s
	}

	charts := file.Charts
	if len(charts) == 0 {
		for _, name := range sortedKeys(file.Series) {
			charts = append(charts, ChartDTO{Series: name})
		}
	}
	seen := make(map[string]bool, len(charts))
	for _, c := range charts {
		if _, ok := cfg.Series[c.Series]; !ok {
			return nil, zerr.With(domain.ErrUnknownSeries, "series", c.Series)
		}
		name := c.Name
		if name == "" {
			name = c.Series
		}
		if seen[name] {
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "duplicate chart"), "chart", name)
		}
		seen[name] = true
		cfg.Charts = append(cfg.Charts, domain.ChartConfig{
			Name:      name,
			Series:    c.Series,
			Instant:   c.Instant,
			Immediate: c.Immediate,
			Symmetric: c.Symmetric,
		})
	}
	return cfg, nil
}

func convertState(dto StateDTO) (domain.StateConfig, error) {
	t, err := domain.ParseTime(dto.Time)
	if err != nil {
		return domain.StateConfig{}, zerr.Wrap(err, "failed to parse state.time")
	}
	zoom := decimal.Zero
	if dto.Zoom != nil {
		z, err := domain.ParseNumber(dto.Zoom)
		if err != nil {
			return domain.StateConfig{}, zerr.Wrap(err, "failed to parse state.zoom")
		}
		zoom = z.Decimal
	}

	timeRange := domain.DefaultTimeRange
	if dto.TimeRange != nil {
		timeRange, err = convertDomain(*dto.TimeRange, timeBound)
		if err != nil {
			return domain.StateConfig{}, zerr.Wrap(err, "failed to parse state.timeRange")
		}
	}
	zoomRange := domain.Unbounded
	if dto.ZoomRange != nil {
		zoomRange, err = convertDomain(dto.ZoomRange, zoomBound)
		if err != nil {
			return domain.StateConfig{}, zerr.Wrap(err, "failed to parse state.zoomRange")
		}
	}

	return domain.StateConfig{Time: t, TimeRange: timeRange, Zoom: zoom, ZoomRange: zoomRange}, nil
}

func timeBound(v any) (domain.Bound, error) {
	if v == nil {
		return domain.Open(), nil
	}
	t, err := domain.ParseTime(v)
	if err != nil {
		return domain.Bound{}, err
	}
	if !t.Valid {
		return domain.AtNull(), nil
	}
	return domain.At(t.Decimal), nil
}

func zoomBound(v any) (domain.Bound, error) {
	if v == nil {
		return domain.Open(), nil
	}
	z, err := domain.ParseNumber(v)
	if err != nil {
		return domain.Bound{}, err
	}
	return domain.At(z.Decimal), nil
}

func convertDomain(sides []any, bound func(any) (domain.Bound, error)) (domain.Domain, error) {
	if len(sides) != 2 {
		return domain.Domain{}, zerr.With(domain.ErrInvalidDomain, "sides", len(sides))
	}
	var d domain.Domain
	for i, side := range sides {
		b, err := bound(side)
		if err != nil {
			return domain.Domain{}, err
		}
		d[i] = b
	}
	if d[0].Kind == domain.BoundFixed && d[1].Kind == domain.BoundFixed && d[0].Value.GreaterThan(d[1].Value) {
		return domain.Domain{}, domain.ErrInvalidDomain
	}
	return d, nil
}

func convertRender(dto RenderDTO) domain.RenderConfig {
	r := domain.DefaultRender
	if dto.FPS > 0 {
		r.FPS = dto.FPS
	}
	if dto.Width > 0 {
		r.Width = dto.Width
	}
	if dto.Height > 0 {
		r.Height = dto.Height
	}
	return r
}

func convertSource(name string, dto SourceDTO) (domain.SourceConfig, error) {
	if dto.URL == "" && dto.Data == nil {
		return domain.SourceConfig{}, zerr.With(domain.ErrNoLoader, "source", name)
	}
	src := domain.SourceConfig{
		Name:       name,
		URL:        dto.URL,
		Data:       dto.Data,
		ChunkSize:  dto.ChunkSize,
		ZoomLevels: dto.ZoomLevels,
	}
	if dto.TTL != "" {
		ttl, err := time.ParseDuration(dto.TTL)
		if err != nil {
			return domain.SourceConfig{}, zerr.With(zerr.Wrap(err, "failed to parse ttl"), "source", name)
		}
		src.TTL = ttl
	}
	return src, nil
}

func convertSeries(name string, dto SeriesDTO) (domain.SeriesConfig, error) {
	s := domain.SeriesConfig{
		Name:   name,
		Source: dto.Source,
		Time:   dto.Time.resolve("time"),
		Value:  dto.Value.resolve("value"),
		Color:  dto.Color,
		Chart:  dto.Chart,
		Scale:  domain.ScaleLinear,
		Digits: dto.Digits,
		Unit:   dto.Unit,
		Range:  domain.DefaultDataRange,
	}
	switch dto.Scale {
	case "", string(domain.ScaleLinear):
	case string(domain.ScaleLog):
		s.Scale = domain.ScaleLog
	default:
		return domain.SeriesConfig{}, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "unknown scale"), "series", name)
	}

	s.Range.Shrink, s.Range.Expand = dto.Range.Shrink, dto.Range.Expand
	if dto.Range.Default != nil {
		if len(dto.Range.Default) != 2 {
			return domain.SeriesConfig{}, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "range.default needs two values"), "series", name)
		}
		for i, v := range dto.Range.Default {
			if v == nil {
				s.Range.Default[i] = domain.Null
				continue
			}
			n, err := domain.ParseNumber(v)
			if err != nil {
				return domain.SeriesConfig{}, zerr.With(zerr.Wrap(err, "failed to parse range.default"), "series", name)
			}
			s.Range.Default[i] = n
		}
	}
	return s, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
