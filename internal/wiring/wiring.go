// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/timescope/internal/adapters/config"
	_ "go.trai.ch/timescope/internal/adapters/fetch"
	_ "go.trai.ch/timescope/internal/adapters/logger"
	_ "go.trai.ch/timescope/internal/adapters/telemetry/progrock"
	// Register app nodes.
	_ "go.trai.ch/timescope/internal/app"
)
