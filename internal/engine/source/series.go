package source

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/shopspring/decimal"
	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/timescope/internal/engine/lru"
	"go.trai.ch/zerr"
)

// MaxMinMaxEntries bounds the tiles whose rows feed the data range.
const MaxMinMaxEntries = 256

type field struct {
	name string
	get  Getter
}

type extrema struct {
	pmin, pmax, nmin, nmax, zero domain.Value
}

func (e extrema) empty() bool {
	return !e.pmin.Valid && !e.pmax.Valid && !e.nmin.Valid && !e.nmax.Valid && !e.zero.Valid
}

// Series parses the records of a Source into rows and tracks the value
// extrema of the tiles it served.
type Series struct {
	key    string
	cfg    domain.SeriesConfig
	source *Source

	times  []field
	values []field

	minmax *lru.Cache[string, []domain.Row]

	mu      sync.Mutex
	extrema *extrema
}

// NewSeries creates the series key reading from src.
func NewSeries(key string, cfg domain.SeriesConfig, src *Source) (*Series, error) {
	if src == nil {
		return nil, zerr.With(domain.ErrUnknownSource, "source", cfg.Source)
	}
	times, err := compileFields(cfg.Time, "time")
	if err != nil {
		return nil, zerr.With(err, "series", key)
	}
	values, err := compileFields(cfg.Value, "value")
	if err != nil {
		return nil, zerr.With(err, "series", key)
	}
	minmax, err := lru.New[string, []domain.Row](MaxMinMaxEntries)
	if err != nil {
		return nil, err
	}
	return &Series{key: key, cfg: cfg, source: src, times: times, values: values, minmax: minmax}, nil
}

func compileFields(specs map[string]string, fallback string) ([]field, error) {
	if len(specs) == 0 {
		specs = map[string]string{fallback: fallback}
	}
	fields := make([]field, 0, len(specs))
	for _, name := range slices.Sorted(maps.Keys(specs)) {
		spec := specs[name]
		if spec == "" {
			spec = name
		}
		get, err := CompileGetter(spec)
		if err != nil {
			return nil, zerr.With(err, "field", name)
		}
		fields = append(fields, field{name: name, get: get})
	}
	return fields, nil
}

// Key is the series key.
func (s *Series) Key() string { return s.key }

// Config is the series configuration.
func (s *Series) Config() domain.SeriesConfig { return s.cfg }

// Source is the source the series reads.
func (s *Series) Source() *Source { return s.source }

// LoadChunk loads desc from the source and parses its records into rows.
func (s *Series) LoadChunk(ctx context.Context, desc domain.ChunkDesc) (domain.ChunkResult, error) {
	res, err := s.source.LoadChunk(ctx, desc)
	if err != nil {
		return domain.ChunkResult{}, err
	}
	return s.rows(res)
}

// Tile is one tile of a series load: its rows, or the error it failed with.
type Tile struct {
	Desc   domain.ChunkDesc
	Result domain.ChunkResult
	Err    error
}

// LoadData loads and parses every tile covering r at zoom. Tiles fail
// independently; the error is only set when ctx ended.
func (s *Series) LoadData(ctx context.Context, r domain.Range, zoom float64) ([]Tile, error) {
	results, err := s.source.LoadData(ctx, r, zoom)
	if err != nil {
		return nil, err
	}
	tiles := make([]Tile, len(results))
	for i, res := range results {
		tiles[i].Desc = res.Desc
		if res.Err != nil {
			tiles[i].Err = res.Err
			continue
		}
		tiles[i].Result, tiles[i].Err = s.rows(res)
	}
	return tiles, nil
}

func (s *Series) rows(res Result) (domain.ChunkResult, error) {
	id := res.Desc.ID
	rows := make([]domain.Row, 0, len(res.Records))
	for i, rec := range res.Records {
		row, err := s.parse(rec)
		if err != nil {
			return domain.ChunkResult{}, zerr.With(zerr.With(err, "chunk", id), "record", i)
		}
		rows = append(rows, row)
	}
	s.minmax.Set(id, rows)

	return domain.ChunkResult{ID: id, ExpiresAt: res.Desc.ExpiresAt, Data: rows}, nil
}

func (s *Series) parse(rec map[string]any) (domain.Row, error) {
	row := domain.Row{
		Time:  make(map[string]decimal.Decimal, len(s.times)),
		Value: make(map[string]domain.Value, len(s.values)),
		Data:  rec,
	}
	for _, f := range s.times {
		raw, err := f.get(rec)
		if err != nil {
			return domain.Row{}, err
		}
		t, err := domain.ParseTime(raw)
		if err != nil {
			return domain.Row{}, zerr.With(err, "field", f.name)
		}
		if t.Valid {
			row.Time[f.name] = t.Decimal
		}
	}
	for _, f := range s.values {
		raw, err := f.get(rec)
		if err != nil {
			return domain.Row{}, err
		}
		if raw == nil {
			row.Value[f.name] = domain.Null
			continue
		}
		// Values that do not parse as numbers are left out of the row.
		if v, err := domain.ParseNumber(raw); err == nil {
			row.Value[f.name] = v
		}
	}
	row.Span()
	return row, nil
}

// UpdateDataRange recomputes the value extrema from the tiles covering r at
// zoom, following the series range options.
func (s *Series) UpdateDataRange(r domain.Range, zoom float64) {
	zoom = domain.ConstrainZoom(zoom, s.source.ZoomLevels())
	chunks := domain.CreateChunkList(r, zoom, s.source.ChunkSize())
	dr := s.cfg.Range
	expandU := dr.Expand || !dr.Default[1].Valid
	expandL := dr.Expand || !dr.Default[0].Valid

	s.mu.Lock()
	defer s.mu.Unlock()

	var e extrema
	if !dr.Shrink && s.extrema != nil {
		e = *s.extrema
	}

	classify := func(values []domain.Value, force bool) {
		var pos, neg []domain.Value
		hasZero := false
		for _, v := range values {
			switch {
			case !v.Valid:
			case v.Decimal.IsPositive():
				pos = append(pos, v)
			case v.Decimal.IsNegative():
				neg = append(neg, v)
			default:
				hasZero = true
			}
		}
		pmin, pmax := minMax(append(pos, e.pmin, e.pmax))
		nmin, nmax := minMax(append(neg, e.nmin, e.nmax))
		zero := e.zero
		if !zero.Valid && hasZero {
			zero = domain.Some(decimal.Zero)
		}
		if force || expandU {
			e.pmax, e.nmin = pmax, nmin
		}
		if force || expandL {
			e.pmin, e.nmax, e.zero = pmin, nmax, zero
		}
	}

	classify(dr.Default[:], true)

	if expandU || expandL {
		for _, desc := range chunks {
			rows, ok := s.minmax.Get(desc.ID)
			if !ok {
				continue
			}
			for _, row := range rows {
				if !timeInRange(row, r) {
					continue
				}
				classify(slices.Collect(maps.Values(row.Value)), false)
			}
		}
	}

	if e.empty() {
		return
	}
	s.extrema = &e
}

func minMax(values []domain.Value) (lo, hi domain.Value) {
	for _, v := range values {
		if !v.Valid {
			continue
		}
		if !lo.Valid || v.Decimal.LessThan(lo.Decimal) {
			lo = v
		}
		if !hi.Valid || v.Decimal.GreaterThan(hi.Decimal) {
			hi = v
		}
	}
	return lo, hi
}

func timeInRange(row domain.Row, r domain.Range) bool {
	if !row.MinTime.Valid || !row.MaxTime.Valid {
		return false
	}
	if r.End.Valid && row.MinTime.Decimal.GreaterThan(r.End.Decimal) {
		return false
	}
	if r.Start.Valid && r.Start.Decimal.GreaterThan(row.MaxTime.Decimal) {
		return false
	}
	return true
}

// Meta is the scale meta of the series: the last computed extrema plus the
// configured scale and colour.
func (s *Series) Meta() domain.SeriesMeta {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta := domain.SeriesMeta{Scale: s.cfg.Scale, Color: s.cfg.Color, Chart: s.cfg.Chart}
	if s.extrema != nil {
		meta.PMin, meta.PMax = s.extrema.pmin, s.extrema.pmax
		meta.NMin, meta.NMax = s.extrema.nmin, s.extrema.nmax
		meta.Zero = s.extrema.zero
	}
	return meta
}
