package domain

import "strings"

// TileState is the lifecycle state of one cached tile.
type TileState string

const (
	// TileInitial indicates the tile has been referenced but never loaded.
	TileInitial TileState = "initial"
	// TileLoading indicates a load is in flight.
	TileLoading TileState = "loading"
	// TileLoaded indicates the last load succeeded.
	TileLoaded TileState = "loaded"
	// TileError indicates the last load failed.
	TileError TileState = "error"
)

// IsSettled reports whether no load is pending (loaded or error).
func (s TileState) IsSettled() bool {
	return s == TileLoaded || s == TileError
}

// NormalizeTileState converts a string to a TileState, defaulting to initial if unknown.
func NormalizeTileState(s string) TileState {
	switch strings.ToLower(s) {
	case string(TileLoading):
		return TileLoading
	case string(TileLoaded):
		return TileLoaded
	case string(TileError):
		return TileError
	default:
		return TileInitial
	}
}

// LogLevel represents the severity of a log message, mirroring the standard slog levels.
type LogLevel int

const (
	// LogLevelDebug represents debug-level verbosity.
	LogLevelDebug LogLevel = -4
	// LogLevelInfo represents informational verbosity.
	LogLevelInfo LogLevel = 0
	// LogLevelWarn represents warning verbosity.
	LogLevelWarn LogLevel = 4
	// LogLevelError represents error verbosity.
	LogLevelError LogLevel = 8
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}
