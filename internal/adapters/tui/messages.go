package tui

import "go.trai.ch/timescope/internal/renderer"

// MsgFrame carries a rendered frame into the program.
type MsgFrame struct {
	Frame renderer.Frame
}

// MsgError reports a failed controller call.
type MsgError struct {
	Err error
}
