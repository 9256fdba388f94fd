package logger

// Chain, FormatChain and Configure expose internals for tests.
var (
	Chain       = chain
	FormatChain = formatChain
	Configure   = configure
)
