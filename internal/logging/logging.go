// Package logging provides the slog handlers binder runs with: a file
// handler that only creates its log file once something goes wrong, and a
// fan-out that feeds it alongside the console.
package logging

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TimestampFormat names log files, e.g. binder_20240131_154502.log.
const TimestampFormat = "20060102_150405"

// ErrorFileHandler buffers every record in memory. The first ERROR record
// creates <dir>/binder_<timestamp>.log, flushes the buffer into it and from
// then on writes straight through. Runs without errors leave no file behind.
type ErrorFileHandler struct {
	inner slog.Handler
	w     *lazyFile
}

func NewErrorFileHandler(dir string, level slog.Leveler) *ErrorFileHandler {
	w := &lazyFile{dir: dir, now: time.Now}
	return &ErrorFileHandler{
		inner: slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}),
		w:     w,
	}
}

func (h *ErrorFileHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ErrorFileHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		if err := h.w.open(); err != nil {
			return err
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *ErrorFileHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ErrorFileHandler{inner: h.inner.WithAttrs(attrs), w: h.w}
}

func (h *ErrorFileHandler) WithGroup(name string) slog.Handler {
	return &ErrorFileHandler{inner: h.inner.WithGroup(name), w: h.w}
}

// Path is the log file, or "" while no error has been logged.
func (h *ErrorFileHandler) Path() string {
	h.w.mu.Lock()
	defer h.w.mu.Unlock()
	return h.w.path
}

func (h *ErrorFileHandler) Close() error {
	return h.w.close()
}

type lazyFile struct {
	mu      sync.Mutex
	dir     string
	now     func() time.Time
	pending bytes.Buffer
	file    *os.File
	path    string
}

func (l *lazyFile) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return l.file.Write(p)
	}
	return l.pending.Write(p)
}

func (l *lazyFile) open() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return nil
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(l.dir, "binder_"+l.now().Format(TimestampFormat)+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := l.pending.WriteTo(file); err != nil {
		_ = file.Close()
		return err
	}
	l.file = file
	l.path = path
	return nil
}

func (l *lazyFile) close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Fanout sends each record to every handler that accepts its level.
type Fanout []slog.Handler

func (f Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f Fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(Fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f Fanout) WithGroup(name string) slog.Handler {
	out := make(Fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// New wires the run logger: every record (DEBUG and up when verbose, INFO
// otherwise) to the lazy error file in dir, WARN and up to console.
func New(dir string, console io.Writer, verbose bool) (*slog.Logger, *ErrorFileHandler) {
	fileLevel := slog.LevelInfo
	if verbose {
		fileLevel = slog.LevelDebug
	}
	file := NewErrorFileHandler(dir, fileLevel)
	handlers := Fanout{file}
	if console != nil {
		handlers = append(handlers, slog.NewTextHandler(console, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	return slog.New(handlers), file
}
