// Package timemath implements the wall-clock arithmetic used for lesson
// times. Times are plain "HH:MM" strings and dates "YYYY-MM-DD" strings;
// no timezone is attached to either.
package timemath

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	minutesPerDay = 24 * 60

	// DateLayout is the time.Parse layout of a booking date.
	DateLayout = "2006-01-02"
)

// ParseError reports a malformed clock or date string.
type ParseError struct {
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("timemath: cannot parse %q: %s", e.Value, e.Reason)
}

// Clock is a time of day in minutes since midnight.
type Clock int

// ParseClock parses a strict "HH:MM" string (00:00 .. 23:59).
func ParseClock(s string) (Clock, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, &ParseError{Value: s, Reason: "missing ':' separator"}
	}
	if !isDigits(hh) || !isDigits(mm) {
		return 0, &ParseError{Value: s, Reason: "expected HH:MM"}
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, &ParseError{Value: s, Reason: "hour must be 00-23"}
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, &ParseError{Value: s, Reason: "minute must be 00-59"}
	}
	return Clock(h*60 + m), nil
}

func isDigits(s string) bool {
	if len(s) != 2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Add returns c shifted by minutes, wrapped into a single day.
func (c Clock) Add(minutes int) Clock {
	v := (int(c) + minutes) % minutesPerDay
	if v < 0 {
		v += minutesPerDay
	}
	return Clock(v)
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// AddMinutes adds minutes to start and returns the resulting time of day.
// Overflow past midnight wraps: AddMinutes("23:50", 30) == "00:20".
func AddMinutes(start string, minutes int) (string, error) {
	c, err := ParseClock(start)
	if err != nil {
		return "", err
	}
	return c.Add(minutes).String(), nil
}

// ParseDate parses a strict "YYYY-MM-DD" date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, &ParseError{Value: s, Reason: "expected YYYY-MM-DD"}
	}
	return t, nil
}

// FormatDate renders t's calendar date as "YYYY-MM-DD".
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
