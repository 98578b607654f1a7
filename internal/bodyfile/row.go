// Package bodyfile reads delimited body records, one per line.
package bodyfile

import (
	"strings"

	"datatime/internal/timeline"
)

// Row is one decoded body-file line.
type Row struct {
	fields []string
	raw    string
	line   int
}

var _ timeline.Record = (*Row)(nil)

// NewRow wraps already split fields. Raw joins them with '|'.
func NewRow(fields []string) *Row {
	return &Row{fields: fields, raw: strings.Join(fields, "|")}
}

// Decode is the timeline index decoder for rows spilled to disk.
func Decode(fields []string) timeline.Record {
	return NewRow(fields)
}

// Field returns the field text, or "" when the row is too short.
func (r *Row) Field(f timeline.Field) string {
	i := int(f)
	if i < 0 || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

func (r *Row) Fields() []string { return r.fields }

func (r *Row) Raw() string { return r.raw }

// Line returns the 1-based input line the row started on, or 0 for rows not
// read from a file.
func (r *Row) Line() int { return r.line }
