// Package tui provides a terminal surface for the widget.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/timescope/internal/ui/style"
)

// NewModel creates a model steering ctrl.
func NewModel(ctx context.Context, ctrl Controller) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(style.Yellow)

	return &Model{
		ctx:     ctx,
		ctrl:    ctrl,
		spinner: s,
		help:    help.New(),
	}
}

// WithDisableTick stops the spinner from scheduling ticks.
func (m *Model) WithDisableTick() *Model {
	m.disableTick = true
	return m
}
