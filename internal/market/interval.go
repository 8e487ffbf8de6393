package market

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Interval selects how much of a history series is displayed.
// The zero value is All.
type Interval struct {
	minutes int
}

var (
	All           = Interval{}
	Interval5Min  = LastMinutes(5)
	Interval15Min = LastMinutes(15)
	Interval60Min = LastMinutes(60)
)

// DefaultIntervals is the recognized set used when none is configured.
var DefaultIntervals = []Interval{All, Interval5Min, Interval15Min, Interval60Min}

// LastMinutes returns a trailing window of m minutes. m <= 0 yields All.
func LastMinutes(m int) Interval {
	if m <= 0 {
		return All
	}
	return Interval{minutes: m}
}

func (i Interval) IsAll() bool { return i.minutes == 0 }

// Minutes returns the window length, 0 for All.
func (i Interval) Minutes() int { return i.minutes }

// Window returns the window length as a duration, 0 for All.
func (i Interval) Window() time.Duration {
	return time.Duration(i.minutes) * time.Minute
}

// String returns "all" or "<m>m" (e.g., "15m").
func (i Interval) String() string {
	if i.IsAll() {
		return "all"
	}
	return strconv.Itoa(i.minutes) + "m"
}

func (i Interval) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *Interval) UnmarshalText(b []byte) error {
	parsed, err := ParseInterval(string(b))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// ParseInterval parses "all" or a minute count with an "m" suffix.
func ParseInterval(s string) (Interval, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "all" {
		return All, nil
	}

	n, err := strconv.Atoi(strings.TrimSuffix(s, "m"))
	if err != nil || !strings.HasSuffix(s, "m") || n <= 0 {
		return Interval{}, fmt.Errorf("invalid interval: %q", s)
	}
	return LastMinutes(n), nil
}

// ParseIntervals parses a list of interval strings, preserving order.
func ParseIntervals(raw []string) ([]Interval, error) {
	out := make([]Interval, 0, len(raw))
	for _, s := range raw {
		iv, err := ParseInterval(s)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, nil
}
