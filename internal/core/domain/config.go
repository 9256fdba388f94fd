package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config is the resolved widget configuration.
type Config struct {
	State   StateConfig
	Sources map[string]SourceConfig
	Series  map[string]SeriesConfig
	Charts  []ChartConfig
	Render  RenderConfig
}

// StateConfig seeds the time and zoom committables.
type StateConfig struct {
	Time      Value
	TimeRange Domain
	Zoom      decimal.Decimal
	ZoomRange Domain
}

// DefaultTimeRange is open at the start and bounded by "now" at the end.
var DefaultTimeRange = Domain{Open(), AtNull()}

// SourceConfig declares where tiles come from. Exactly one of Data or URL
// is expected; Data makes a static source.
type SourceConfig struct {
	Name       string
	URL        string
	Data       []map[string]any
	ChunkSize  *int
	ZoomLevels []float64
	TTL        time.Duration
}

// DataRange controls how a series' value extrema follow the data.
type DataRange struct {
	Shrink  bool
	Expand  bool
	Default [2]Value
}

// DefaultDataRange pins the lower extremum at zero and lets the upper follow.
var DefaultDataRange = DataRange{Default: [2]Value{Int(0), Null}}

// SeriesConfig maps raw records of a source into rows.
type SeriesConfig struct {
	Name   string
	Source string
	// Time and Value map row field names to getters: comma-separated
	// fallback paths, or "=expr" expressions.
	Time   map[string]string
	Value  map[string]string
	Range  DataRange
	Color  string
	Chart  string
	Scale  Scale
	Digits int32
	Unit   string
}

// ChartConfig selects the series a track renders and how its cache tracks
// the axis.
type ChartConfig struct {
	Name      string
	Series    string
	Instant   bool
	Immediate bool
	// Symmetric centres the value axis on zero.
	Symmetric bool
}

// RenderConfig tunes the rendering context.
type RenderConfig struct {
	FPS    int
	Width  int
	Height int
}

// DefaultRender is used when the config omits render settings.
var DefaultRender = RenderConfig{FPS: 30, Width: 80, Height: 12}
