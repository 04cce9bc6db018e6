package cli

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"billetera/internal/core"
)

func TestFormatDays(t *testing.T) {
	tests := []struct {
		cadence core.Cadence
		days    []int
		want    string
	}{
		{core.Daily, []int{1, 2}, "todos"},
		{core.Weekly, []int{6, 0}, "Dom,Sáb"},
		{core.Weekly, nil, "-"},
		{core.Monthly, []int{15, 1}, "1,15"},
	}
	for _, tt := range tests {
		if got := FormatDays(tt.cadence, tt.days); got != tt.want {
			t.Errorf("FormatDays(%s, %v) = %q, want %q", tt.cadence, tt.days, got, tt.want)
		}
	}
}

func TestParseDays(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []int
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"list", "1, 3,5", []int{1, 3, 5}, false},
		{"duplicates", "2,2", []int{2}, false},
		{"preset", "weekdays", []int{1, 2, 3, 4, 5}, false},
		{"garbage", "lunes", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDays(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDays(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseDays(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseAmountFlag(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{"12.345", 12.35, false},
		{"7,5", 7.5, false},
		{" 3 ", 3, false},
		{"0", 0, false},
		{"-1", 0, true},
		{"NaN", 0, true},
		{"Inf", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseAmountFlag(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAmountFlag(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, core.ErrInvalidAmount) {
			t.Errorf("ParseAmountFlag(%q) error = %v, want %v", tt.raw, err, core.ErrInvalidAmount)
		}
		if got != tt.want {
			t.Errorf("ParseAmountFlag(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestResolveDate(t *testing.T) {
	if got, err := ResolveDate("", "2024-01-10"); err != nil || got != "2024-01-10" {
		t.Errorf("ResolveDate(\"\") = %q, %v, want today", got, err)
	}
	if got, err := ResolveDate(" 2024-02-29 ", "x"); err != nil || got != "2024-02-29" {
		t.Errorf("ResolveDate(leap day) = %q, %v", got, err)
	}
	if _, err := ResolveDate("2023-02-29", "x"); !errors.Is(err, core.ErrInvalidDate) {
		t.Errorf("ResolveDate(2023-02-29) error = %v, want %v", err, core.ErrInvalidDate)
	}
}

func TestMatchID(t *testing.T) {
	ids := []string{"abc123", "abd456", "abc"}
	tests := []struct {
		prefix string
		want   string
		err    error
	}{
		{"abc", "abc", nil},
		{"abd", "abd456", nil},
		{"abc1", "abc123", nil},
		{"ab", "", ErrAmbiguousID},
		{"zz", "", ErrNoMatch},
		{"  ", "", ErrNoMatch},
	}
	for _, tt := range tests {
		got, err := matchID(ids, tt.prefix)
		if !errors.Is(err, tt.err) {
			t.Errorf("matchID(%q) error = %v, want %v", tt.prefix, err, tt.err)
		}
		if got != tt.want {
			t.Errorf("matchID(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(Table{
		Title:      "Gastos",
		Headers:    []string{"Título", "Monto"},
		Rows:       [][]string{{"Pan", "1.00"}, {"---"}, {"Total", "10.00"}},
		RightAlign: map[int]bool{1: true},
	})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	// title, top, header, header rule, 2 rows, separator, bottom
	if len(lines) != 8 {
		t.Fatalf("RenderTable() produced %d lines, want 8:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[4], "│ Pan    │  1.00 │") {
		t.Errorf("row not padded as expected: %q", lines[4])
	}
	if RenderTable(Table{}) != "" {
		t.Error("RenderTable(empty) should render nothing")
	}
}
