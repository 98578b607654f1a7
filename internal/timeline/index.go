package timeline

import "errors"

// Sentinel is the index key for records that carry no usable timestamp. It
// sorts before every valid epoch value.
const Sentinel int64 = -1

// ErrIndexFull is returned by an Index that cannot accept more entries.
var ErrIndexFull = errors.New("timeline index is full")

// Index is an ordered multimap from timestamp key to record. It is built once
// and drained once: every Insert happens before the first Each.
type Index interface {
	// Insert adds one (key, record) entry. Equal keys keep insertion order.
	Insert(key int64, rec Record) error

	// Len returns the number of entries inserted so far.
	Len() int

	// Each calls fn for every entry in ascending key order, ties in
	// insertion order. Iteration stops at the first error fn returns.
	Each(fn func(key int64, rec Record) error) error

	// Close releases any resources held by the index.
	Close() error
}
