// Package logger implements a logging adapter using log/slog.
package logger

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"go.trai.ch/timescope/internal/core/ports"
)

// messager is implemented by zerr errors, which report their own message
// without the wrapped chain.
type messager interface {
	Message() string
}

// Logger implements ports.Logger using log/slog.
type Logger struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	level    *slog.LevelVar
	jsonMode bool
	output   io.Writer
}

// New creates a Logger writing pretty output to stderr.
func New() ports.Logger {
	l := &Logger{level: &slog.LevelVar{}, output: os.Stderr}
	l.rebuild()
	return l
}

func (l *Logger) rebuild() {
	opts := &slog.HandlerOptions{Level: l.level}
	var handler slog.Handler
	if l.jsonMode {
		handler = slog.NewJSONHandler(l.output, opts)
	} else {
		handler = NewPrettyHandler(l.output, opts)
	}
	l.logger = slog.New(handler)
}

// SetOutput redirects the logger. A nil writer means stderr.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	l.output = w
	l.rebuild()
}

// SetJSON switches between JSON and pretty output.
func (l *Logger) SetJSON(enable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.jsonMode = enable
	l.rebuild()
}

// SetLevel sets the minimum level that is written.
func (l *Logger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

// Info logs an informational message.
func (l *Logger) Info(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Info(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Warn(msg)
}

// Error logs err. Pretty output lists the zerr chain one cause per line.
func (l *Logger) Error(err error) {
	if err == nil {
		return
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.jsonMode {
		l.logger.Error("operation failed", "error", err)
		return
	}
	l.logger.Error(formatChain(chain(err)))
}

// chain collects the messages along err's wrap chain. A plain error ends
// the chain with its full text.
func chain(err error) []string {
	var messages []string
	for current := err; current != nil; {
		m, ok := current.(messager)
		if !ok {
			messages = append(messages, current.Error())
			break
		}
		messages = append(messages, m.Message())
		current = errors.Unwrap(current)
	}
	return messages
}

func formatChain(messages []string) string {
	var out []string
	for i, msg := range messages {
		lines := strings.Split(msg, "\n")
		if i == 0 {
			out = append(out, "Error: "+lines[0])
			for _, line := range lines[1:] {
				out = append(out, "       "+line)
			}
			continue
		}
		if i == 1 {
			out = append(out, "", "  Caused by:")
		}
		out = append(out, "    → "+lines[0])
		for _, line := range lines[1:] {
			out = append(out, "      "+line)
		}
	}
	return strings.Join(out, "\n")
}
