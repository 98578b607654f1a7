package timeline

// Expander turns one record into its timeline slots and inserts them into an
// Index. Its settings are fixed at construction.
type Expander struct {
	kinds     KindSet
	dateRange DateRange
	conv      Converter
	index     Index
	logger    Logger
}

// NewExpander creates an Expander writing into index.
func NewExpander(kinds KindSet, dateRange DateRange, conv Converter, index Index, logger Logger) *Expander {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Expander{
		kinds:     kinds,
		dateRange: dateRange,
		conv:      conv,
		index:     index,
		logger:    logger,
	}
}

// Expand inserts rec once per distinct enabled, present, in-range timestamp,
// or once under Sentinel when no enabled timestamp is present. It returns the
// number of entries actually inserted. Failures are logged and skipped.
func (e *Expander) Expand(rec Record) int {
	var (
		values  [len(AllKinds)]int64
		present [len(AllKinds)]bool
		found   bool
	)
	for i, k := range AllKinds {
		if !e.kinds.Has(k) {
			continue
		}
		values[i], present[i] = Timestamp(rec, k)
		found = found || present[i]
	}

	if !found {
		// No usable timestamp at all: always shown, never date-filtered.
		return e.insert(Sentinel, rec)
	}

	inserted := 0
	for i, k := range AllKinds {
		if !present[i] || seenBefore(values[:i], present[:i], values[i]) {
			continue
		}
		local, err := e.conv.Convert(values[i])
		if err != nil {
			e.logger.Warn("timestamp conversion failed, slot dropped",
				append([]any{"kind", k.String(), "value", values[i], "error", err}, recordAttrs(rec)...)...)
			continue
		}
		if !e.dateRange.Contains(local) {
			continue
		}
		inserted += e.insert(values[i], rec)
	}
	return inserted
}

func (e *Expander) insert(key int64, rec Record) int {
	if err := e.index.Insert(key, rec); err != nil {
		e.logger.Error("index insert failed",
			append([]any{"key", key, "size", e.index.Len(), "error", err}, recordAttrs(rec)...)...)
		return 0
	}
	return 1
}

// seenBefore reports whether v equals any earlier present value.
func seenBefore(values []int64, present []bool, v int64) bool {
	for i := range values {
		if present[i] && values[i] == v {
			return true
		}
	}
	return false
}
