package tz

import "time"

type ruleKind int

const (
	ruleMonthWeekDay ruleKind = iota // Mm.w.d
	ruleJulianNoLeap                 // Jn, 1..365, Feb 29 never counted
	ruleDayOfYear                    // n, 0..365
)

// rule is one daylight transition.
type rule struct {
	kind    ruleKind
	month   int // 1..12
	week    int // 1..5, 5 is the last week
	weekday int // 0..6, Sunday first
	day     int // for the Julian forms
	at      time.Duration
}

// date returns midnight UTC of the rule's calendar day in year.
func (r rule) date(year int) time.Time {
	switch r.kind {
	case ruleJulianNoLeap:
		d := r.day
		if isLeap(year) && d >= 60 {
			d++
		}
		return time.Date(year, time.January, d, 0, 0, 0, 0, time.UTC)
	case ruleDayOfYear:
		return time.Date(year, time.January, 1+r.day, 0, 0, 0, 0, time.UTC)
	default:
		first := time.Date(year, time.Month(r.month), 1, 0, 0, 0, 0, time.UTC)
		day := 1 + (r.weekday-int(first.Weekday())+7)%7 + (r.week-1)*7
		last := daysIn(year, time.Month(r.month))
		for day > last {
			day -= 7
		}
		return time.Date(year, time.Month(r.month), day, 0, 0, 0, 0, time.UTC)
	}
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func daysIn(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
