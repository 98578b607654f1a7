package tz

import (
	"fmt"
	"time"
)

type parser struct {
	s   string
	pos int
}

func (p *parser) zone() (*Zone, error) {
	z := &Zone{}

	var err error
	if z.stdName, err = p.name(); err != nil {
		return nil, err
	}
	if p.more() && isOffsetStart(p.peek()) {
		if z.stdOffset, err = p.offset(); err != nil {
			return nil, err
		}
	}
	if !p.more() {
		return z, nil
	}

	if z.dstName, err = p.name(); err != nil {
		return nil, err
	}
	z.dstOffset = defaultDSTOffset
	if p.more() && isOffsetStart(p.peek()) {
		if z.dstOffset, err = p.offset(); err != nil {
			return nil, err
		}
	}

	z.start, z.end = defaultStartRule, defaultEndRule
	if !p.more() {
		return z, nil
	}
	if err := p.expect(','); err != nil {
		return nil, err
	}
	if z.start, err = p.rule(); err != nil {
		return nil, fmt.Errorf("start rule: %w", err)
	}
	if err := p.expect(','); err != nil {
		return nil, err
	}
	if z.end, err = p.rule(); err != nil {
		return nil, fmt.Errorf("end rule: %w", err)
	}
	if p.more() {
		return nil, fmt.Errorf("unexpected %q at offset %d", p.s[p.pos:], p.pos)
	}
	return z, nil
}

// name reads an alphabetic abbreviation of at least three letters, or a
// <...> quoted one.
func (p *parser) name() (string, error) {
	if p.more() && p.peek() == '<' {
		end := p.pos + 1
		for end < len(p.s) && p.s[end] != '>' {
			end++
		}
		if end >= len(p.s) {
			return "", fmt.Errorf("unterminated quoted name")
		}
		name := p.s[p.pos+1 : end]
		p.pos = end + 1
		if len(name) < 3 {
			return "", fmt.Errorf("zone name %q too short", name)
		}
		return name, nil
	}

	start := p.pos
	for p.more() && isAlpha(p.peek()) {
		p.pos++
	}
	name := p.s[start:p.pos]
	if len(name) < 3 {
		return "", fmt.Errorf("expected zone name at offset %d", start)
	}
	return name, nil
}

// offset reads [+|-]hh[:mm[:ss]].
func (p *parser) offset() (time.Duration, error) {
	sign := time.Duration(1)
	switch p.peek() {
	case '-':
		sign = -1
		p.pos++
	case '+':
		p.pos++
	}
	d, err := p.clock()
	if err != nil {
		return 0, err
	}
	if d > 24*time.Hour {
		return 0, fmt.Errorf("offset out of range")
	}
	return sign * d, nil
}

// clock reads hh[:mm[:ss]].
func (p *parser) clock() (time.Duration, error) {
	h, err := p.number(0, 24)
	if err != nil {
		return 0, err
	}
	d := time.Duration(h) * time.Hour
	for _, unit := range []time.Duration{time.Minute, time.Second} {
		if !p.more() || p.peek() != ':' {
			break
		}
		p.pos++
		n, err := p.number(0, 59)
		if err != nil {
			return 0, err
		}
		d += time.Duration(n) * unit
	}
	return d, nil
}

func (p *parser) rule() (rule, error) {
	var r rule
	var err error

	switch {
	case p.more() && p.peek() == 'M':
		p.pos++
		r.kind = ruleMonthWeekDay
		if r.month, err = p.number(1, 12); err != nil {
			return r, err
		}
		if err = p.expect('.'); err != nil {
			return r, err
		}
		if r.week, err = p.number(1, 5); err != nil {
			return r, err
		}
		if err = p.expect('.'); err != nil {
			return r, err
		}
		if r.weekday, err = p.number(0, 6); err != nil {
			return r, err
		}
	case p.more() && p.peek() == 'J':
		p.pos++
		r.kind = ruleJulianNoLeap
		if r.day, err = p.number(1, 365); err != nil {
			return r, err
		}
	default:
		r.kind = ruleDayOfYear
		if r.day, err = p.number(0, 365); err != nil {
			return r, err
		}
	}

	r.at = defaultRuleTime
	if p.more() && p.peek() == '/' {
		p.pos++
		if r.at, err = p.clock(); err != nil {
			return r, err
		}
	}
	return r, nil
}

func (p *parser) number(lo, hi int) (int, error) {
	start := p.pos
	n := 0
	for p.more() && isDigit(p.peek()) && p.pos-start < 3 {
		n = n*10 + int(p.peek()-'0')
		p.pos++
	}
	if p.pos == start {
		return 0, fmt.Errorf("expected number at offset %d", start)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("number %d out of range %d..%d", n, lo, hi)
	}
	return n, nil
}

func (p *parser) expect(c byte) error {
	if !p.more() || p.peek() != c {
		return fmt.Errorf("expected %q at offset %d", c, p.pos)
	}
	p.pos++
	return nil
}

func (p *parser) more() bool { return p.pos < len(p.s) }

func (p *parser) peek() byte { return p.s[p.pos] }

func isAlpha(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isOffsetStart(c byte) bool { return c == '+' || c == '-' || isDigit(c) }
