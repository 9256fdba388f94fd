package config

import (
	"gopkg.in/yaml.v3"
)

// File is the structure of timescope.yaml.
type File struct {
	State   StateDTO             `yaml:"state"`
	Render  RenderDTO            `yaml:"render"`
	Sources map[string]SourceDTO `yaml:"sources"`
	Series  map[string]SeriesDTO `yaml:"series"`
	Charts  []ChartDTO           `yaml:"charts"`
}

// StateDTO seeds the time and zoom. Time accepts "now", seconds since the
// epoch or RFC 3339. Range sides are null for open, "now" or a time.
type StateDTO struct {
	Time      any    `yaml:"time"`
	Zoom      any    `yaml:"zoom"`
	TimeRange *[]any `yaml:"timeRange"`
	ZoomRange []any  `yaml:"zoomRange"`
}

// RenderDTO tunes the rendering context.
type RenderDTO struct {
	FPS    int `yaml:"fps"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// SourceDTO declares static data or a URL template.
type SourceDTO struct {
	URL        string           `yaml:"url"`
	Data       []map[string]any `yaml:"data"`
	ChunkSize  *int             `yaml:"chunkSize"`
	ZoomLevels []float64        `yaml:"zoomLevels"`
	TTL        string           `yaml:"ttl"`
}

// SeriesDTO maps a source's records into rows.
type SeriesDTO struct {
	Source string       `yaml:"source"`
	Time   Fields       `yaml:"time"`
	Value  Fields       `yaml:"value"`
	Range  DataRangeDTO `yaml:"range"`
	Color  string       `yaml:"color"`
	Chart  string       `yaml:"chart"`
	Scale  string       `yaml:"scale"`
	Digits int32        `yaml:"digits"`
	Unit   string       `yaml:"unit"`
}

// DataRangeDTO controls how the value extrema follow the data.
type DataRangeDTO struct {
	Shrink  bool  `yaml:"shrink"`
	Expand  bool  `yaml:"expand"`
	Default []any `yaml:"default"`
}

// ChartDTO selects a series to render.
type ChartDTO struct {
	Name      string `yaml:"name"`
	Series    string `yaml:"series"`
	Instant   bool   `yaml:"instant"`
	Immediate bool   `yaml:"immediate"`
	Symmetric bool   `yaml:"symmetric"`
}

// Fields maps row fields to getters. A bare string is shorthand for a
// single field under the default name.
type Fields struct {
	Scalar string
	Map    map[string]string
}

// UnmarshalYAML accepts a scalar or a mapping.
func (f *Fields) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&f.Scalar)
	}
	return node.Decode(&f.Map)
}

func (f Fields) resolve(defaultName string) map[string]string {
	if f.Scalar != "" {
		return map[string]string{defaultName: f.Scalar}
	}
	return f.Map
}
