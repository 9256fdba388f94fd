package tui

import (
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/timescope/internal/engine/datacache"
	"go.trai.ch/timescope/internal/renderer"
	"go.trai.ch/timescope/internal/ui/style"
)

var levels = []rune("▁▂▃▄▅▆▇█")

// View renders the latest frame.
func (m *Model) View() string {
	if !m.hasFrame || m.width == 0 {
		return "Initializing..."
	}

	lines := []string{m.header()}
	for _, t := range m.frame.Tracks {
		lines = append(lines, m.track(t))
	}
	lines = append(lines, m.axis(), m.rangeLine())
	if m.err != nil {
		lines = append(lines, errorStyle.Render(style.Cross+" "+m.err.Error()))
	}
	lines = append(lines, m.help.View(keys))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) header() string {
	f := m.frame
	at := "live"
	if f.Time.Valid {
		at = formatTime(f.Time.Decimal, time.DateTime)
	}
	status := at + " · zoom " + domain.FormatZoom(round(f.Zoom.InexactFloat64()))
	s := titleStyle.Render("TIMESCOPE") + statusStyle.Render(status)
	if f.Editing {
		s += editingStyle.Render("editing")
	}
	return s
}

func (m *Model) track(t renderer.Track) string {
	glyph, color := tileSummary(t.Tiles)
	if glyph == style.Tilde && !m.disableTick {
		glyph = m.spinner.View()
	} else {
		glyph = lipgloss.NewStyle().Foreground(color).Render(glyph)
	}
	label := labelStyle.Render(glyph + " " + t.Key)

	line := lipgloss.NewStyle().
		Foreground(style.SeriesColor(t.Meta.Color)).
		Render(sparkline(t.Points, m.chartWidth()))
	return label + line
}

// axis draws the time axis: the cursor, and shading outside the time domain.
func (m *Model) axis() string {
	width := m.chartWidth()
	cursor := int(math.Floor(m.frame.Cursor))
	lo, hi := m.frame.Bounds[0], m.frame.Bounds[1]

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", labelWidth))
	for x := range width {
		switch {
		case x == cursor:
			b.WriteString(cursorStyle.Render(style.Cursor))
		case float64(x) < lo || float64(x) > hi:
			b.WriteString(outsideStyle.Render("░"))
		default:
			b.WriteString(axisStyle.Render("─"))
		}
	}
	return b.String()
}

func (m *Model) rangeLine() string {
	r := m.frame.Range
	if !r.Bounded() {
		return ""
	}
	start := formatTime(r.Start.Decimal, time.TimeOnly)
	end := formatTime(r.End.Decimal, time.TimeOnly)
	gap := max(m.chartWidth()-len(start)-len(end), 1)
	return axisStyle.Render(strings.Repeat(" ", labelWidth) + start + strings.Repeat(" ", gap) + end)
}

// tileSummary picks the glyph of the least settled tile.
func tileSummary(tiles []datacache.Tile) (string, lipgloss.Color) {
	if len(tiles) == 0 {
		return style.Circle, style.Slate
	}
	rank := map[domain.TileState]int{
		domain.TileLoaded:  0,
		domain.TileInitial: 1,
		domain.TileLoading: 2,
		domain.TileError:   3,
	}
	worst := domain.TileLoaded
	for _, t := range tiles {
		if rank[t.State] > rank[worst] {
			worst = t.State
		}
	}
	return style.TileGlyph(worst), style.TileColor(worst)
}

// sparkline maps points onto width columns; the highest point of a column
// wins and columns without points stay blank.
func sparkline(points []renderer.Point, width int) string {
	if width <= 0 {
		return ""
	}
	cols := make([]float64, width)
	for i := range cols {
		cols[i] = math.NaN()
	}
	for _, p := range points {
		x := int(math.Floor(p.X))
		if x < 0 || x >= width || math.IsNaN(p.Y) {
			continue
		}
		if math.IsNaN(cols[x]) || p.Y > cols[x] {
			cols[x] = p.Y
		}
	}

	out := make([]rune, width)
	top := len(levels) - 1
	for i, y := range cols {
		if math.IsNaN(y) {
			out[i] = ' '
			continue
		}
		level := int(math.Round(y * float64(top)))
		out[i] = levels[min(max(level, 0), top)]
	}
	return string(out)
}

func formatTime(seconds decimal.Decimal, layout string) string {
	return domain.ToTime(seconds).UTC().Format(layout)
}

func round(z float64) float64 {
	return math.Round(z*100) / 100
}
