package app

import (
	"github.com/google/uuid"

	"datatime/internal/timeline"
)

// IDGenerator abstracts run ID generation so tests are deterministic.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }

// SourceResult records how one input fared during ingestion.
type SourceResult struct {
	Name  string
	Stats timeline.IngestStats
	Err   error
}

// Operation tracks one timeline run across all of its inputs.
type Operation struct {
	ID      string
	Results []SourceResult
	Status  string // "success" or "error"
}

// NewOperation creates an Operation with no results yet.
func NewOperation(id string) *Operation {
	return &Operation{
		ID:     id,
		Status: "success",
	}
}

// Record appends the outcome of one input.
func (op *Operation) Record(name string, stats timeline.IngestStats, err error) {
	op.Results = append(op.Results, SourceResult{Name: name, Stats: stats, Err: err})
}

// Succeeded returns the number of inputs read to completion.
func (op *Operation) Succeeded() int {
	n := 0
	for _, r := range op.Results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

// Ingested reports whether any input was read to completion or produced at
// least one row before failing.
func (op *Operation) Ingested() bool {
	return op.Succeeded() > 0 || op.Totals().Rows > 0
}

// Failed returns the number of inputs that could not be read.
func (op *Operation) Failed() int {
	return len(op.Results) - op.Succeeded()
}

// Totals sums the stats of every input.
func (op *Operation) Totals() timeline.IngestStats {
	var t timeline.IngestStats
	for _, r := range op.Results {
		t.Rows += r.Stats.Rows
		t.Skipped += r.Stats.Skipped
		t.Slots += r.Stats.Slots
	}
	return t
}
