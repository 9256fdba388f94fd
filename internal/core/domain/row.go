package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Row is one parsed record held by a data cache. Time carries one or more
// named timestamps; MinTime and MaxTime span them so that rows with ranged
// timestamps sort and purge correctly.
type Row struct {
	Time    map[string]decimal.Decimal `json:"time"`
	MinTime Value                      `json:"minTime"`
	MaxTime Value                      `json:"maxTime"`
	Value   map[string]Value           `json:"value,omitempty"`
	Data    map[string]any             `json:"data,omitempty"`
}

// NewRow builds a row with a single timestamp under "time".
func NewRow(t decimal.Decimal, values map[string]Value) Row {
	r := Row{Time: map[string]decimal.Decimal{"time": t}, Value: values}
	r.Span()
	return r
}

// Span recomputes MinTime and MaxTime from Time.
func (r *Row) Span() {
	r.MinTime, r.MaxTime = Null, Null
	for _, t := range r.Time {
		if !r.MinTime.Valid || t.LessThan(r.MinTime.Decimal) {
			r.MinTime = Some(t)
		}
		if !r.MaxTime.Valid || t.GreaterThan(r.MaxTime.Decimal) {
			r.MaxTime = Some(t)
		}
	}
}

// ChunkResult is what a loader returns for one tile.
type ChunkResult struct {
	ID string `json:"id"`
	// ExpiresAt is zero when the data never expires.
	ExpiresAt time.Time `json:"expiresAt"`
	Data      []Row     `json:"data"`
}

// Scale selects the value axis transform.
type Scale string

const (
	// ScaleLinear is a linear value axis.
	ScaleLinear Scale = "linear"
	// ScaleLog is a log10 value axis.
	ScaleLog Scale = "log"
)

// SeriesMeta carries the extrema a series axis scales against: positive
// min/max, negative min/max and an optional forced zero.
type SeriesMeta struct {
	PMin  Value  `json:"pmin"`
	PMax  Value  `json:"pmax"`
	NMin  Value  `json:"nmin"`
	NMax  Value  `json:"nmax"`
	Zero  Value  `json:"zero"`
	Scale Scale  `json:"scale,omitempty"`
	Color string `json:"color,omitempty"`
	Chart string `json:"chart,omitempty"`
}

// Empty reports whether no extremum is known.
func (m SeriesMeta) Empty() bool {
	return !m.PMin.Valid && !m.PMax.Valid && !m.NMin.Valid && !m.NMax.Valid && !m.Zero.Valid
}
