package tui

import tea "github.com/charmbracelet/bubbletea"

// Export functions for testing.
var (
	Sparkline   = sparkline
	TileSummary = tileSummary
)

// SetSend replaces the program's Send for the frame sender.
func (r *Renderer) SetSend(fn func(tea.Msg)) { r.send = fn }
