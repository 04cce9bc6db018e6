package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ISOLayout is the calendar date layout used throughout the ledger.
const ISOLayout = "2006-01-02"

// Today returns the current local date as YYYY-MM-DD.
func Today() string {
	return DateToISO(time.Now())
}

// ParseISODate turns a YYYY-MM-DD string into local midnight. It never
// fails: missing or non-numeric components default to 1, and out-of-range
// values roll over the way time.Date normalizes them.
func ParseISODate(s string) time.Time {
	parts := strings.Split(strings.TrimSpace(s), "-")
	comp := func(i int) int {
		if i >= len(parts) {
			return 1
		}
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || n == 0 {
			return 1
		}
		return n
	}
	return time.Date(comp(0), time.Month(comp(1)), comp(2), 0, 0, 0, 0, time.Local)
}

// DateToISO formats the local calendar fields of t, zero padded.
func DateToISO(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}

// IsISODate reports whether s is a well-formed, existing calendar date.
func IsISODate(s string) bool {
	if len(s) != len(ISOLayout) {
		return false
	}
	_, err := time.Parse(ISOLayout, s)
	return err == nil
}

// Midnight strips the clock from t, keeping its location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfWeekMonday returns the Monday on or before t.
func StartOfWeekMonday(t time.Time) time.Time {
	d := Midnight(t)
	diff := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -diff)
}

// WeekRange returns the Monday-start week containing t.
func WeekRange(t time.Time) (time.Time, time.Time) {
	start := StartOfWeekMonday(t)
	return start, start.AddDate(0, 0, 6)
}

// MonthRange returns the first and last calendar day of t's month.
func MonthRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, -1)
}

// DaysInMonth returns the number of days in the month of t.
func DaysInMonth(t time.Time) int {
	_, end := MonthRange(t)
	return end.Day()
}
