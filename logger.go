// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package blockhist

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/blockhist/internal/engine"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for blockhist and its sub-packages.
// By default blockhist produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to disable logging.
//
// Log levels used by blockhist:
//   - [slog.LevelDebug]: launch geometry, placement and alignment decisions
//   - [slog.LevelInfo]: accelerator lifecycle (GPU adapter selected)
//   - [slog.LevelWarn]: non-fatal issues (CPU fallback)
//
// Example:
//
//	blockhist.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	engine.SetLogger(l)

	if a := Accelerator(); a != nil {
		propagateLogger(a, l)
	}
}

// Logger returns the current logger. The gpu package calls it to share the
// configuration without an import cycle.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by accelerators that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes l to a if it accepts one. Called from SetLogger and
// RegisterAccelerator so the accelerator always has the current logger.
func propagateLogger(a GPUAccelerator, l *slog.Logger) {
	if ls, ok := a.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
