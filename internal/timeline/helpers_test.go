package timeline_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"datatime/internal/bodyfile"
	"datatime/internal/index"
	"datatime/internal/testutil"
	"datatime/internal/timeline"
)

const perms = "r/rrw-r--r--"

// row builds a body record. Timestamps are given in m, a, c, b order; ""
// leaves one absent.
func row(name, m, a, c, b string) *bodyfile.Row {
	return bodyfile.NewRow([]string{"0", name, "12", perms, "0", "0", "10", a, m, c, b})
}

// sliceSource replays records and errors, then io.EOF.
type sliceSource struct {
	items []any
}

func (s *sliceSource) Next() (timeline.Record, error) {
	if len(s.items) == 0 {
		return nil, io.EOF
	}
	item := s.items[0]
	s.items = s.items[1:]
	if err, ok := item.(error); ok {
		return nil, err
	}
	return item.(timeline.Record), nil
}

func source(items ...any) *sliceSource {
	return &sliceSource{items: items}
}

type harness struct {
	svc    *timeline.Service
	idx    *index.MemoryIndex
	logger *testutil.RecordingLogger
}

func newHarness(t *testing.T, settings timeline.Settings, conv timeline.Converter, maxEntries int) *harness {
	t.Helper()
	idx := index.NewMemoryIndex(maxEntries)
	t.Cleanup(func() { idx.Close() })
	logger := testutil.NewRecordingLogger()
	return &harness{
		svc:    timeline.NewService(settings, conv, idx, logger),
		idx:    idx,
		logger: logger,
	}
}

func (h *harness) ingest(t *testing.T, recs ...timeline.Record) {
	t.Helper()
	items := make([]any, len(recs))
	for i, r := range recs {
		items[i] = r
	}
	_, err := h.svc.Ingest("test", source(items...))
	require.NoError(t, err)
}

// render returns the output split into lines, without the trailing newline.
func (h *harness) render(t *testing.T) []string {
	t.Helper()
	var buf bytes.Buffer
	_, err := h.svc.Render(&buf)
	require.NoError(t, err)
	return lines(buf.String())
}

func lines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func delimitedSettings() timeline.Settings {
	s := timeline.DefaultSettings()
	s.Mode = timeline.ModeDelimited
	return s
}

var errDisk = errors.New("disk error")
