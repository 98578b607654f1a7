package timeline

import "strconv"

// Field addresses a column of a Sleuth Kit 3.x body record:
//
//	MD5|NAME|INODE|PERMS|UID|GID|SIZE|ATIME|MTIME|CTIME|CRTIME
type Field int

const (
	FieldMD5 Field = iota
	FieldName
	FieldInode
	FieldPerms
	FieldUID
	FieldGID
	FieldSize
	FieldATime
	FieldMTime
	FieldCTime
	FieldCRTime

	// BodyFieldCount is the number of fields in a body record.
	BodyFieldCount = 11
)

// Record is one decoded input row. Records are immutable once read.
type Record interface {
	// Field returns the field text, or "" when the row does not carry it.
	Field(f Field) string

	// Fields returns every field of the row, including any beyond the body layout.
	Fields() []string

	// Raw returns the row text for diagnostics. Rows decoded from quoted
	// input are rebuilt from their fields and lose the quoting.
	Raw() string
}

// Located is implemented by records that know where they were read from.
type Located interface {
	Line() int
}

// recordAttrs returns the logging key/value pairs that identify rec.
func recordAttrs(rec Record) []any {
	if l, ok := rec.(Located); ok && l.Line() > 0 {
		return []any{"line", l.Line(), "record", rec.Raw()}
	}
	return []any{"record", rec.Raw()}
}

// Timestamp returns the record's raw value for kind k. ok is false when the
// field is missing, empty, unparseable or negative.
func Timestamp(rec Record, k Kind) (int64, bool) {
	s := rec.Field(k.Field())
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// Flags returns the four-character m/a/c/b column for a row rendered at key.
// Only kinds in enabled are compared; an absent value never matches.
func Flags(rec Record, key int64, enabled KindSet) string {
	var b [len(AllKinds)]byte
	for i, k := range AllKinds {
		b[i] = '.'
		if matchesKey(rec, k, key, enabled) {
			b[i] = k.Letter()
		}
	}
	return string(b[:])
}

func matchesKey(rec Record, k Kind, key int64, enabled KindSet) bool {
	if !enabled.Has(k) || key == Sentinel {
		return false
	}
	v, ok := Timestamp(rec, k)
	return ok && v == key
}
