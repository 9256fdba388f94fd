// Package style holds the colors and glyphs shared by the terminal surfaces.
package style

import (
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/timescope/internal/core/domain"
)

// Palette.
var (
	Iris   = lipgloss.Color("#8B5CF6")
	Slate  = lipgloss.Color("#667085")
	White  = lipgloss.Color("#FFFFFF")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
)

// Glyphs.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Dot     = "●"
	Circle  = "○"
	Tilde   = "~"
	Cursor  = "│"
	Now     = "┊"
)

// TileGlyph is the marker drawn for a tile in state s.
func TileGlyph(s domain.TileState) string {
	switch s {
	case domain.TileLoaded:
		return Check
	case domain.TileError:
		return Cross
	case domain.TileLoading:
		return Tilde
	default:
		return Circle
	}
}

// TileColor is the color of a tile in state s.
func TileColor(s domain.TileState) lipgloss.Color {
	switch s {
	case domain.TileLoaded:
		return Green
	case domain.TileError:
		return Red
	case domain.TileLoading:
		return Yellow
	default:
		return Slate
	}
}

// SeriesColor resolves a configured series color. Empty falls back to Iris;
// anything else is handed to lipgloss as is, so names like "#ff6347" work.
func SeriesColor(c string) lipgloss.Color {
	if c == "" {
		return Iris
	}
	return lipgloss.Color(c)
}
