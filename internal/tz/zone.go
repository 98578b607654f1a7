// Package tz converts epoch seconds to local time for a POSIX-style zone
// string such as "EST-5EDT,M4.1.0,M10.5.0" or "GMT-5".
//
// Offsets are read as offsets from UTC: "GMT-5" is five hours west of
// Greenwich. The optional daylight offset is the amount added during
// daylight time and defaults to one hour. Transition rules use the
// Mm.w.d, Jn and n forms; a missing rule time means 02:00. Names containing
// a '/' are loaded from the system zone database instead.
package tz

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // IANA names work without a system zone database
)

var (
	// ErrInvalidZone is returned for zone strings that cannot be parsed.
	ErrInvalidZone = errors.New("invalid time zone string")

	// ErrOutOfRange is returned by Convert for times outside years 1400-9999.
	ErrOutOfRange = errors.New("time out of range")
)

const (
	defaultRuleTime  = 2 * time.Hour
	defaultDSTOffset = time.Hour
)

// Convertible range: the years 1400 through 9999.
var (
	minEpoch = time.Date(1400, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()
	maxEpoch = time.Date(10000, time.January, 1, 0, 0, 0, 0, time.UTC).Unix() - 1
)

// Default rules when a daylight name is given without transition rules.
var (
	defaultStartRule = rule{kind: ruleMonthWeekDay, month: 4, week: 1, weekday: 0, at: defaultRuleTime}
	defaultEndRule   = rule{kind: ruleMonthWeekDay, month: 10, week: 5, weekday: 0, at: defaultRuleTime}
)

// Zone is a parsed time zone. It is immutable and safe for concurrent use.
type Zone struct {
	spec string

	loc *time.Location // IANA zone; nil for POSIX strings

	stdName   string
	stdOffset time.Duration
	dstName   string // "" when the zone has no daylight time
	dstOffset time.Duration
	start     rule
	end       rule
}

// UTC is the zone used when none is configured.
func UTC() *Zone {
	z, _ := Parse("GMT")
	return z
}

// Parse parses a zone string.
func Parse(spec string) (*Zone, error) {
	s := strings.TrimSpace(spec)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidZone)
	}

	if strings.Contains(s, "/") && !strings.Contains(s, ",") {
		loc, err := time.LoadLocation(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidZone, spec, err)
		}
		return &Zone{spec: spec, loc: loc}, nil
	}

	p := &parser{s: s}
	z, err := p.zone()
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidZone, spec, err)
	}
	z.spec = spec
	return z, nil
}

// String returns the zone string Parse was given.
func (z *Zone) String() string { return z.spec }

// Convert returns the local time for epoch seconds. The result's location is
// a fixed zone carrying the effective name and offset.
func (z *Zone) Convert(epoch int64) (time.Time, error) {
	if epoch < minEpoch || epoch > maxEpoch {
		return time.Time{}, fmt.Errorf("%w: %d", ErrOutOfRange, epoch)
	}
	utc := time.Unix(epoch, 0).UTC()

	if z.loc != nil {
		return utc.In(z.loc), nil
	}

	if z.dstName != "" && z.inDaylight(utc) {
		return utc.In(time.FixedZone(z.dstName, int((z.stdOffset+z.dstOffset)/time.Second))), nil
	}
	return utc.In(time.FixedZone(z.stdName, int(z.stdOffset/time.Second))), nil
}

// inDaylight reports whether the UTC instant t falls inside daylight time.
func (z *Zone) inDaylight(t time.Time) bool {
	year := t.Add(z.stdOffset).Year()

	// Start fires in standard time, end in daylight time.
	start := z.start.date(year).Add(z.start.at - z.stdOffset)
	end := z.end.date(year).Add(z.end.at - z.stdOffset - z.dstOffset)

	if start.Before(end) {
		return !t.Before(start) && t.Before(end)
	}
	// Southern hemisphere: daylight time spans the new year.
	return !t.Before(start) || t.Before(end)
}
