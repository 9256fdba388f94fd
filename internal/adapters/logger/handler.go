package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"go.trai.ch/timescope/internal/ui/output"
	"go.trai.ch/timescope/internal/ui/style"
)

// PrettyHandler is a slog.Handler writing one colored line per record.
type PrettyHandler struct {
	out   *termenv.Output
	level slog.Leveler
	attrs []slog.Attr
	group string
}

// NewPrettyHandler creates a PrettyHandler writing to w.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if w == nil {
		w = os.Stderr
	}
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &PrettyHandler{out: output.New(w), level: level}
}

// Enabled reports whether records at level are written.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle writes r.
//
//nolint:gocritic // slog.Handler requires slog.Record by value
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	msg := r.Message
	color := termenv.RGBColor(string(style.Slate))
	switch {
	case r.Level >= slog.LevelError:
		msg = style.Cross + " " + msg
		color = termenv.RGBColor(string(style.Red))
	case r.Level >= slog.LevelWarn:
		msg = style.Warning + " " + msg
		color = termenv.RGBColor(string(style.Yellow))
	}

	parts := make([]string, 0, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		parts = append(parts, formatAttr(h.group, a))
	}
	r.Attrs(func(a slog.Attr) bool {
		parts = append(parts, formatAttr(h.group, a))
		return true
	})
	if len(parts) > 0 {
		msg += " " + strings.Join(parts, " ")
	}

	_, err := h.out.WriteString(h.out.String(msg).Foreground(color).String() + "\n")
	return err
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &PrettyHandler{out: h.out, level: h.level, attrs: merged, group: h.group}
}

// WithGroup returns a handler that prefixes attribute keys with name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	return &PrettyHandler{out: h.out, level: h.level, attrs: h.attrs, group: name}
}

func formatAttr(group string, a slog.Attr) string {
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	return key + "=" + a.Value.String()
}
