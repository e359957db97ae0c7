// Package logging configures the process-wide slog logger. Output can be
// held in a buffer while the terminal belongs to the simulation TUI and
// released to a writer once the screen is free again, optionally teeing
// everything into a log file.
package logging

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// holdWriter buffers log output until a live target is attached, and
// mirrors everything into an optional file.
type holdWriter struct {
	mu      sync.Mutex
	held    bytes.Buffer
	live    io.Writer
	file    *os.File
	holding bool
}

func (w *holdWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	if w.holding {
		w.held.Write(p)
	} else if w.live != nil {
		if _, err := w.live.Write(p); err != nil {
			firstErr = err
		}
	}
	if w.file != nil {
		if _, err := w.file.Write(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return len(p), firstErr
}

var out *holdWriter

// Init sets up the default slog logger. With hold set, output accumulates
// until Release is called; logFile may be empty.
func Init(hold bool, level, format, logFile string) error {
	out = &holdWriter{holding: hold}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return err
		}
		out.file = f
	}

	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Release flushes any held output to target and logs live from now on.
func Release(target io.Writer) error {
	out.mu.Lock()
	defer out.mu.Unlock()

	if out.held.Len() > 0 {
		if _, err := target.Write(out.held.Bytes()); err != nil {
			return err
		}
		out.held.Reset()
	}
	out.live = target
	out.holding = false
	return nil
}

// Hold detaches the live writer and buffers output again, for when the
// TUI reclaims the terminal.
func Hold() {
	out.mu.Lock()
	defer out.mu.Unlock()
	out.live = nil
	out.holding = true
}

// Close flushes whatever is still held (to the log file, or stderr as a
// last resort) and closes the file.
func Close() error {
	out.mu.Lock()
	defer out.mu.Unlock()

	var firstErr error
	// held output already reached the file through Write; it only needs
	// spilling to stderr when no file kept a copy
	if out.file == nil && out.held.Len() > 0 {
		if _, err := os.Stderr.Write(out.held.Bytes()); err != nil {
			firstErr = err
		}
	}
	if out.file != nil {
		if err := out.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	out.held.Reset()
	return firstErr
}
