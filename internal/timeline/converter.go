package timeline

import "time"

// Converter turns epoch seconds into a local calendar date-time. It is
// configured once, before ingestion, and is safe to share.
type Converter interface {
	// Convert returns the local time for epoch. The returned time's
	// location carries the effective offset.
	Convert(epoch int64) (time.Time, error)

	// String returns the zone string the converter was configured from.
	String() string
}
