package domain

import "go.trai.ch/zerr"

var (
	// ErrInvalidValue is returned when a time or zoom input is not a finite number.
	ErrInvalidValue = zerr.New("invalid value")

	// ErrInvalidDomain is returned when a range has its bounds reversed.
	ErrInvalidDomain = zerr.New("invalid domain")

	// ErrInvalidCacheSize is returned when an LRU cache is created without capacity.
	ErrInvalidCacheSize = zerr.New("cache size must be positive")

	// ErrChannelClosed is returned to callers waiting on a torn-down bridge.
	ErrChannelClosed = zerr.New("channel closed")

	// ErrUnknownCommand is returned when a call names a command without a handler.
	ErrUnknownCommand = zerr.New("unknown command")

	// ErrUnknownSeries is returned when a provider key has no registered series.
	ErrUnknownSeries = zerr.New("unknown series")

	// ErrUnknownSource is returned when a series references a missing source.
	ErrUnknownSource = zerr.New("unknown source")

	// ErrNoLoader is returned when a source has neither data, url nor loader.
	ErrNoLoader = zerr.New("source has no loader")

	// ErrFetchFailed is returned when a URL source answers with a non-2xx status.
	ErrFetchFailed = zerr.New("fetch failed")

	// ErrInvalidConfig is returned when a configuration file is inconsistent.
	ErrInvalidConfig = zerr.New("invalid configuration")

	// ErrCacheClosed is returned when a disposed cache is asked to load.
	ErrCacheClosed = zerr.New("cache closed")
)
