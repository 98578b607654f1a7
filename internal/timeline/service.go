package timeline

import (
	"errors"
	"fmt"
	"io"
)

// ErrMalformedRow marks a row a RowSource could not decode. Ingest logs and
// skips such rows instead of abandoning the source.
var ErrMalformedRow = errors.New("malformed row")

// RowSource yields records from one input. Next returns io.EOF once drained.
type RowSource interface {
	Next() (Record, error)
}

// Settings is the per-run configuration. It is read-only once a Service exists.
type Settings struct {
	Kinds     KindSet
	DateRange DateRange
	Mode      Mode
	Options   Options
}

// DefaultSettings enables every kind, no date filter and columnar output.
func DefaultSettings() Settings {
	return Settings{
		Kinds:     AllKindSet,
		DateRange: Unbounded(),
		Mode:      ModeColumnar,
		Options:   DefaultOptions(),
	}
}

// IngestStats summarises one Ingest call.
type IngestStats struct {
	Rows    int // records read
	Skipped int // malformed rows skipped
	Slots   int // index entries inserted
}

// Service assembles a timeline: every source is ingested into the index,
// then the index is rendered once.
type Service struct {
	settings Settings
	index    Index
	expander *Expander
	renderer *Renderer
	logger   Logger
}

// NewService creates a Service that fills index. The caller owns index and
// closes it after Render.
func NewService(settings Settings, conv Converter, index Index, logger Logger) *Service {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Service{
		settings: settings,
		index:    index,
		expander: NewExpander(settings.Kinds, settings.DateRange, conv, index, logger),
		renderer: NewRenderer(settings.Mode, settings.Options, settings.Kinds, conv, logger),
		logger:   logger,
	}
}

// Ingest drains src into the index. A read error ends the source and is
// returned along with the stats gathered so far.
func (s *Service) Ingest(name string, src RowSource) (IngestStats, error) {
	var stats IngestStats
	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, ErrMalformedRow) {
			stats.Skipped++
			s.logger.Warn("skipping malformed row", "source", name, "error", err)
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("reading %s: %w", name, err)
		}
		stats.Rows++
		stats.Slots += s.expander.Expand(rec)
	}

	s.logger.Debug("source ingested", "source", name, "rows", stats.Rows,
		"skipped", stats.Skipped, "slots", stats.Slots, "index_size", s.index.Len())
	return stats, nil
}

// Render writes the assembled timeline to w and returns the row count.
func (s *Service) Render(w io.Writer) (int, error) {
	return s.renderer.Render(w, s.index)
}
