// Package nnduration provides JSON-friendly non-negative duration types.
package nnduration

import (
	"strconv"
	"strings"
	"time"
)

func parse(input string, unit time.Duration) (value uint64, e error) {
	if d, e := time.ParseDuration(input); e == nil {
		if d < 0 {
			return 0, strconv.ErrRange
		}
		return uint64(d / unit), nil
	}
	return strconv.ParseUint(input, 10, 64)
}

func unmarshal(p []byte, unit time.Duration) (uint64, error) {
	return parse(strings.Trim(string(p), `"`), unit)
}

// Milliseconds is a duration in milliseconds.
// In JSON, it is either a non-negative integer or a string recognized by time.ParseDuration.
type Milliseconds uint64

// Duration converts to time.Duration.
func (d Milliseconds) Duration() time.Duration {
	return time.Duration(d) * time.Millisecond
}

// DurationOr returns d as time.Duration, or dflt if d is zero.
func (d Milliseconds) DurationOr(dflt Milliseconds) time.Duration {
	if d == 0 {
		return dflt.Duration()
	}
	return d.Duration()
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (d *Milliseconds) UnmarshalJSON(p []byte) error {
	v, e := unmarshal(p, time.Millisecond)
	*d = Milliseconds(v)
	return e
}

// Nanoseconds is a duration in nanoseconds.
// In JSON, it is either a non-negative integer or a string recognized by time.ParseDuration.
type Nanoseconds uint64

// Duration converts to time.Duration.
func (d Nanoseconds) Duration() time.Duration {
	return time.Duration(d)
}

// DurationOr returns d as time.Duration, or dflt if d is zero.
func (d Nanoseconds) DurationOr(dflt Nanoseconds) time.Duration {
	if d == 0 {
		return dflt.Duration()
	}
	return d.Duration()
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (d *Nanoseconds) UnmarshalJSON(p []byte) error {
	v, e := unmarshal(p, time.Nanosecond)
	*d = Nanoseconds(v)
	return e
}
