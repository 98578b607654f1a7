package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// LogFileName is the file created inside log_dir.
const LogFileName = "datatime.log"

// dtHandler is a custom slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<runID>\t<message>\t<key=value ...>
type dtHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	runID string
	level slog.Leveler
	attrs []slog.Attr
}

func newHandler(w io.Writer, runID string, level slog.Leveler) *dtHandler {
	return &dtHandler{mu: &sync.Mutex{}, w: w, runID: runID, level: level}
}

func (h *dtHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *dtHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 256)
	buf = fmt.Appendf(buf, "%s\t%s\t%s\t%s",
		r.Time.UTC().Format("2006-01-02T15:04:05Z"), r.Level.String(), h.runID, r.Message)

	// Write pre-set attrs.
	for _, a := range h.attrs {
		buf = fmt.Appendf(buf, "\t%s=%v", a.Key, a.Value)
	}

	// Write per-record attrs.
	r.Attrs(func(a slog.Attr) bool {
		buf = fmt.Appendf(buf, "\t%s=%v", a.Key, a.Value)
		return true
	})
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *dtHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &dtHandler{
		mu:    h.mu,
		w:     h.w,
		runID: h.runID,
		level: h.level,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *dtHandler) WithGroup(string) slog.Handler { return h }

// logPathFor returns the file diagnostics are appended to: an explicit path
// wins over logDir/datatime.log. "" means stderr only.
func logPathFor(explicit, logDir string) string {
	if explicit != "" {
		return explicit
	}
	if logDir != "" {
		return filepath.Join(logDir, LogFileName)
	}
	return ""
}

// newLogger creates a structured logger that writes to stderr and, when
// logPath is set, appends to that file too. It returns the slog.Logger, the
// open log file (for cleanup, nil when none), and any error.
func newLogger(stderr io.Writer, logPath, runID string, level slog.Level) (*slog.Logger, *os.File, error) {
	if logPath == "" {
		return slog.New(newHandler(stderr, runID, level)), nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	w := io.MultiWriter(f, stderr)
	return slog.New(newHandler(w, runID, level)), f, nil
}

// slogAdapter wraps *slog.Logger to satisfy the timeline.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
