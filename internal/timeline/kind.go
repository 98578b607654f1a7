package timeline

import (
	"fmt"
	"strings"
)

// Kind identifies one of the four timestamps a body record can carry.
type Kind int

// Kinds in precedence order. Expansion and flag rendering both walk them in
// this order.
const (
	Modified Kind = iota
	Accessed
	Changed
	Birthed
)

// AllKinds lists every kind in precedence order (M, A, C, B).
var AllKinds = [...]Kind{Modified, Accessed, Changed, Birthed}

// Letter returns the flag letter shown for the kind.
func (k Kind) Letter() byte {
	switch k {
	case Modified:
		return 'm'
	case Accessed:
		return 'a'
	case Changed:
		return 'c'
	case Birthed:
		return 'b'
	default:
		return '?'
	}
}

func (k Kind) String() string {
	switch k {
	case Modified:
		return "modified"
	case Accessed:
		return "accessed"
	case Changed:
		return "changed"
	case Birthed:
		return "birthed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Field returns the body-file field holding the kind's timestamp.
func (k Kind) Field() Field {
	switch k {
	case Modified:
		return FieldMTime
	case Accessed:
		return FieldATime
	case Changed:
		return FieldCTime
	default:
		return FieldCRTime
	}
}

// KindSet is a bit set of enabled kinds.
type KindSet uint8

// AllKindSet enables every kind. It is the default when the caller restricts nothing.
const AllKindSet KindSet = 1<<Modified | 1<<Accessed | 1<<Changed | 1<<Birthed

// NewKindSet returns a set holding the given kinds.
func NewKindSet(kinds ...Kind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s = s.With(k)
	}
	return s
}

// ParseKindSet parses a list of kind names ("m", "modified", "a", ...).
// An empty list means all kinds.
func ParseKindSet(names []string) (KindSet, error) {
	if len(names) == 0 {
		return AllKindSet, nil
	}
	var s KindSet
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "m", "modified", "mtime":
			s = s.With(Modified)
		case "a", "accessed", "atime":
			s = s.With(Accessed)
		case "c", "changed", "ctime":
			s = s.With(Changed)
		case "b", "birthed", "created", "crtime":
			s = s.With(Birthed)
		default:
			return 0, fmt.Errorf("unknown timestamp kind: %q", n)
		}
	}
	return s, nil
}

// With returns a copy of s with k enabled.
func (s KindSet) With(k Kind) KindSet { return s | 1<<k }

// Has reports whether k is enabled.
func (s KindSet) Has(k Kind) bool { return s&(1<<k) != 0 }

// Names returns the single-letter names of the enabled kinds in precedence order.
func (s KindSet) Names() []string {
	names := make([]string, 0, len(AllKinds))
	for _, k := range AllKinds {
		if s.Has(k) {
			names = append(names, string(k.Letter()))
		}
	}
	return names
}
