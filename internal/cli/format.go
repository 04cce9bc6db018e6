package cli

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"billetera/internal/core"
)

var weekdayShort = [...]string{"Dom", "Lun", "Mar", "Mié", "Jue", "Vie", "Sáb"}

// FormatDays renders the days of a rule: weekday names for weekly rules,
// day numbers for monthly ones, "todos" for daily rules.
func FormatDays(c core.Cadence, days []int) string {
	if c == core.Daily {
		return "todos"
	}
	if len(days) == 0 {
		return "-"
	}
	sorted := slices.Clone(days)
	slices.Sort(sorted)
	parts := make([]string, 0, len(sorted))
	for _, d := range sorted {
		if c == core.Weekly && d >= 0 && d < len(weekdayShort) {
			parts = append(parts, weekdayShort[d])
			continue
		}
		parts = append(parts, strconv.Itoa(d))
	}
	return strings.Join(parts, ",")
}

// FormatStatus renders the done flag of an expense.
func FormatStatus(done bool) string {
	if done {
		return "✓"
	}
	return "·"
}

// ShortID trims generated ids for table display. Commands accept any
// unique prefix of an id.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ParseDays reads a comma separated day list or a named preset such as
// "weekdays" or "first-and-fifteenth".
func ParseDays(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if preset, ok := core.PresetDays(raw); ok {
		return preset, nil
	}
	var days []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid day %q: %w", part, core.ErrInvalidDay)
		}
		if !slices.Contains(days, n) {
			days = append(days, n)
		}
	}
	return days, nil
}

// ParseAmountFlag parses a user-entered amount. Unlike core.ParseAmount it
// rejects garbage so typos are not stored as zero.
func ParseAmountFlag(raw string) (float64, error) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid amount %q: %w", raw, core.ErrInvalidAmount)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative amount %q: %w", raw, core.ErrInvalidAmount)
	}
	return core.RoundMoney(v), nil
}

// ResolveDate defaults an empty date to today and rejects malformed ones.
func ResolveDate(raw, today string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return today, nil
	}
	if !core.IsISODate(raw) {
		return "", fmt.Errorf("date %q must be YYYY-MM-DD: %w", raw, core.ErrInvalidDate)
	}
	return raw, nil
}
