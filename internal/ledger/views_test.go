package ledger

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"billetera/internal/core"
)

func viewState() core.LedgerState {
	s := core.DefaultState()
	s = AddExpense(s, ExpenseInput{Date: "2024-01-02", PlannedAmount: 10, Category: "Comida", Title: "first"})
	s = AddExpense(s, ExpenseInput{Date: "2024-01-01", PlannedAmount: 5, Category: "", Title: "old"})
	s = AddExpense(s, ExpenseInput{Date: "2024-01-02", PlannedAmount: 20, Category: "Casa", Title: "second"})
	s = AddExpense(s, ExpenseInput{Date: "2024-01-05", PlannedAmount: 8, Category: "Comida", Title: "late"})
	return s
}

func titles(list []core.Expense) []string {
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.Title
	}
	return out
}

func TestFilterExpenses(t *testing.T) {
	s := viewState()

	got := titles(FilterExpenses(s))
	want := []string{"late", "second", "first", "old"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterExpenses() = %v, want %v", got, want)
	}

	s = SetFilterDate(s, "2024-01-02")
	got = titles(FilterExpenses(s))
	want = []string{"second", "first"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterExpenses(filtered) = %v, want %v", got, want)
	}

	s = SetFilterDate(s, "2030-01-01")
	if got := FilterExpenses(s); len(got) != 0 {
		t.Errorf("FilterExpenses(no match) = %v, want empty", titles(got))
	}
}

func TestListExpenseDates(t *testing.T) {
	s := AddExpense(viewState(), ExpenseInput{Title: "undated"})
	got := ListExpenseDates(s)
	want := []string{"2024-01-05", "2024-01-02", "2024-01-01"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListExpenseDates() = %v, want %v", got, want)
	}
}

func TestDailyChecklist(t *testing.T) {
	s := viewState()
	if got := titles(DailyChecklist(s, "2024-01-05")); !reflect.DeepEqual(got, []string{"late"}) {
		t.Errorf("DailyChecklist(today) = %v", got)
	}
	s = SetFilterDate(s, "2024-01-01")
	if got := titles(DailyChecklist(s, "2024-01-05")); !reflect.DeepEqual(got, []string{"old"}) {
		t.Errorf("DailyChecklist(filter) = %v", got)
	}
}

func TestSummarizeRange(t *testing.T) {
	s := viewState()
	for _, e := range s.Expenses {
		switch e.Title {
		case "first":
			s = MarkExpenseDone(s, e.ID, 12)
		case "old":
			s = MarkExpenseDone(s, e.ID, 5)
		case "second":
			s = MarkExpenseDone(s, e.ID, 15)
		}
	}

	got := SummarizeRange(s, "2024-01-02", "2024-01-01")
	if got.Start != "2024-01-01" || got.End != "2024-01-02" {
		t.Errorf("bounds = %s..%s, want swapped", got.Start, got.End)
	}
	if got.Count != 3 || got.Planned != 35 || got.Actual != 32 || got.Savings != 3 {
		t.Errorf("SummarizeRange() = %+v", got)
	}
	want := []core.CategoryAmount{
		{Category: "Casa", Planned: 20, Actual: 15},
		{Category: "Comida", Planned: 10, Actual: 12},
		{Category: core.DefaultCategory, Planned: 5, Actual: 5},
	}
	if !reflect.DeepEqual(got.Categories, want) {
		t.Errorf("Categories = %+v, want %+v", got.Categories, want)
	}

	empty := SummarizeRange(s, "2025-01-01", "2025-12-31")
	if empty.Count != 0 || empty.Categories == nil || len(empty.Categories) != 0 {
		t.Errorf("empty range summary = %+v", empty)
	}
}

func TestExportImport(t *testing.T) {
	s := canonicalState()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	data, err := Export(s, now)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !strings.Contains(string(data), `"version": 1`) || !strings.Contains(string(data), `"exportedAt": "2024-03-01T12:00:00Z"`) {
		t.Errorf("Export() envelope = %s", data)
	}

	got, err := Import(data)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if !reflect.DeepEqual(got, s) {
		t.Errorf("Import(Export(s)) differs from s")
	}
}

func TestImportErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"not json", `{`, ErrInvalidBackup},
		{"array", `[]`, ErrInvalidBackup},
		{"null", `null`, ErrInvalidBackup},
		{"no state", `{"version":1}`, ErrMissingState},
		{"null state", `{"version":1,"state":null}`, ErrMissingState},
		{"state not object", `{"version":1,"state":[1,2]}`, ErrInvalidBackup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Import([]byte(tt.doc))
			if !errors.Is(err, tt.want) {
				t.Errorf("Import() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestImportMigratesLegacyState(t *testing.T) {
	got, err := Import([]byte(`{"version":1,"state":{"expenses":[{"id":"a","date":"2024-01-01","amount":15,"done":true}]}}`))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	e := got.Expenses[0]
	if e.PlannedAmount != 15 || e.ActualAmount != 15 {
		t.Errorf("Import() expense = %+v", e)
	}
}
