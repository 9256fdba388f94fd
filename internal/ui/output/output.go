// Package output builds termenv outputs with a consistent color profile.
package output

import (
	"io"
	"os"

	"github.com/muesli/termenv"
)

// ColorProfile is the profile for interactive terminals. NO_COLOR forces
// plain ASCII.
func ColorProfile() termenv.Profile {
	if os.Getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

// New creates a termenv.Output writing to w, or stderr when w is nil.
func New(w io.Writer, opts ...termenv.OutputOption) *termenv.Output {
	if w == nil {
		w = os.Stderr
	}
	opts = append(opts,
		termenv.WithProfile(ColorProfile()),
		termenv.WithTTY(true),
	)
	return termenv.NewOutput(w, opts...)
}
