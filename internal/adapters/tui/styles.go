package tui

import (
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/timescope/internal/ui/style"
)

var (
	// Header Styles.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Background(style.Iris).
			Foreground(style.White)

	statusStyle = lipgloss.NewStyle().
			Foreground(style.Slate).
			PaddingLeft(1)

	editingStyle = lipgloss.NewStyle().
			Foreground(style.Iris).
			Bold(true).
			PaddingLeft(1)

	// Track Styles.
	labelStyle = lipgloss.NewStyle().
			Width(labelWidth).
			MaxWidth(labelWidth)

	axisStyle = lipgloss.NewStyle().
			Foreground(style.Slate)

	outsideStyle = lipgloss.NewStyle().
			Foreground(style.Slate).
			Faint(true)

	cursorStyle = lipgloss.NewStyle().
			Foreground(style.Iris).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(style.Red)
)
