// +build !cgo

package beat

import (
	"log/slog"
)

// Listener is a stub implementation for environments where CGO is
// disabled.
type Listener struct {
	detector *Detector
}

// NewListener returns a stub listener that logs a warning.
func NewListener(cfg Config, detector *Detector) *Listener {
	slog.Warn("Beat listener: audio support is disabled in this build (requires CGO).")
	return &Listener{detector: detector}
}

// Detector returns the onset detector; without audio it only sees what is
// fed to it manually.
func (l *Listener) Detector() *Detector {
	return l.detector
}

func (l *Listener) Start() error {
	slog.Warn("Beat listener: started without audio support.")
	return nil
}

func (l *Listener) Stop() {}
