package testutil

import (
	"errors"
	"fmt"
	"time"
)

// ErrConvert is returned by FailingConverter.
var ErrConvert = errors.New("conversion failed")

// OffsetConverter converts epochs into a fixed-offset zone.
type OffsetConverter struct {
	Name   string
	Offset time.Duration
}

// UTCConverter returns an OffsetConverter for GMT.
func UTCConverter() *OffsetConverter {
	return &OffsetConverter{Name: "GMT"}
}

func (c *OffsetConverter) Convert(epoch int64) (time.Time, error) {
	loc := time.FixedZone(c.Name, int(c.Offset/time.Second))
	return time.Unix(epoch, 0).In(loc), nil
}

func (c *OffsetConverter) String() string { return c.Name }

// FailingConverter fails for the listed epochs and converts the rest as UTC.
type FailingConverter struct {
	Fail map[int64]bool
}

func (c *FailingConverter) Convert(epoch int64) (time.Time, error) {
	if c.Fail[epoch] {
		return time.Time{}, fmt.Errorf("epoch %d: %w", epoch, ErrConvert)
	}
	return time.Unix(epoch, 0).UTC(), nil
}

func (c *FailingConverter) String() string { return "GMT" }
