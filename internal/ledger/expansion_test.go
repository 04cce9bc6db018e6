package ledger

import (
	"testing"
	"time"

	"billetera/internal/core"
)

func day(iso string) time.Time {
	return core.ParseISODate(iso)
}

func generatedDates(s core.LedgerState, ruleID string) map[string]int {
	out := map[string]int{}
	for _, e := range s.Expenses {
		if e.SourceBudgetID != nil && *e.SourceBudgetID == ruleID {
			out[e.Date]++
		}
	}
	return out
}

func TestShouldFire(t *testing.T) {
	tests := []struct {
		name string
		rule core.PlanRule
		date string
		want bool
	}{
		{"daily always", core.PlanRule{Cadence: core.Daily}, "2024-01-03", true},
		{"weekly selected weekday", core.PlanRule{Cadence: core.Weekly, Days: []int{3}}, "2024-01-03", true},
		{"weekly other weekday", core.PlanRule{Cadence: core.Weekly, Days: []int{1}}, "2024-01-03", false},
		{"weekly sunday is zero", core.PlanRule{Cadence: core.Weekly, Days: []int{0}}, "2024-01-07", true},
		{"weekly without days", core.PlanRule{Cadence: core.Weekly}, "2024-01-03", false},
		{"monthly selected day", core.PlanRule{Cadence: core.Monthly, Days: []int{15}}, "2024-02-15", true},
		{"monthly other day", core.PlanRule{Cadence: core.Monthly, Days: []int{15}}, "2024-02-16", false},
		{"monthly without days", core.PlanRule{Cadence: core.Monthly, Days: []int{}}, "2024-02-15", false},
		{"unknown cadence", core.PlanRule{Cadence: "yearly", Days: []int{1}}, "2024-01-01", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldFire(tt.rule, day(tt.date)); got != tt.want {
				t.Errorf("shouldFire() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetFiringChecker(t *testing.T) {
	for _, c := range []core.Cadence{core.Daily, core.Weekly, core.Monthly} {
		if _, err := GetFiringChecker(c); err != nil {
			t.Errorf("GetFiringChecker(%s) error = %v", c, err)
		}
	}
	if _, err := GetFiringChecker("hourly"); err == nil {
		t.Errorf("GetFiringChecker(hourly) expected error")
	}
}

func TestExpandWeekdaysScenario(t *testing.T) {
	s := AddPlanRule(core.DefaultState(), core.PlanRuleInput{
		Cadence: core.Weekly, Days: []int{1, 2, 3, 4, 5}, Amount: 10, Category: "Comida",
	})
	// 2024-01-01 is a Monday.
	got := ExpandPlan(s, day("2024-01-01"), day("2024-01-07"))

	if len(got.Expenses) != 5 {
		t.Fatalf("ExpandPlan() created %d expenses, want 5", len(got.Expenses))
	}
	want := map[string]bool{"2024-01-01": true, "2024-01-02": true, "2024-01-03": true, "2024-01-04": true, "2024-01-05": true}
	for _, e := range got.Expenses {
		if !want[e.Date] {
			t.Errorf("unexpected date %s", e.Date)
		}
		if e.PlannedAmount != 10 || e.Done || e.ActualAmount != 0 || e.Category != "Comida" || e.Note != "" {
			t.Errorf("generated expense = %+v", e)
		}
		if *e.SourceBudgetID != s.PlanRules[0].ID {
			t.Errorf("sourceBudgetId = %s", *e.SourceBudgetID)
		}
	}
}

func TestExpandPlanIdempotent(t *testing.T) {
	s := core.DefaultState()
	s = AddPlanRule(s, core.PlanRuleInput{Cadence: core.Daily, Amount: 3})
	s = AddPlanRule(s, core.PlanRuleInput{Cadence: core.Weekly, Amount: 5, Days: []int{0, 6}})
	s = AddPlanRule(s, core.PlanRuleInput{Cadence: core.Monthly, Amount: 100, Days: []int{1, 15}})

	start, end := day("2024-01-01"), day("2024-02-29")
	once := ExpandPlan(s, start, end)
	twice := ExpandPlan(once, start, end)

	if len(once.Expenses) != len(twice.Expenses) {
		t.Fatalf("second expansion added %d expenses", len(twice.Expenses)-len(once.Expenses))
	}
	seen := map[string]bool{}
	for _, e := range twice.Expenses {
		key := *e.SourceBudgetID + "|" + e.Date
		if seen[key] {
			t.Fatalf("duplicate key %s", key)
		}
		seen[key] = true
	}
	// 60 daily + 16 weekend days + 4 monthly
	if len(once.Expenses) != 60+16+4 {
		t.Errorf("len(Expenses) = %d, want %d", len(once.Expenses), 60+16+4)
	}
}

func TestExpandPlanOverlappingRanges(t *testing.T) {
	s := AddPlanRule(core.DefaultState(), core.PlanRuleInput{Cadence: core.Daily, Amount: 1})
	s = ExpandWeek(s, "2024-01-03")
	s = ExpandMonth(s, "2024-01-20")

	dates := generatedDates(s, s.PlanRules[0].ID)
	if len(dates) != 31 {
		t.Fatalf("distinct dates = %d, want 31", len(dates))
	}
	for d, n := range dates {
		if n != 1 {
			t.Errorf("date %s generated %d times", d, n)
		}
	}
}

func TestExpandMonthlySkipsMissingDays(t *testing.T) {
	s := AddPlanRule(core.DefaultState(), core.PlanRuleInput{Cadence: core.Monthly, Amount: 50, Days: []int{30, 31}})
	s = ExpandMonth(s, "2023-02-10")

	if len(s.Expenses) != 0 {
		t.Fatalf("February got %d expenses, want 0", len(s.Expenses))
	}

	s = ExpandMonth(s, "2023-04-10")
	dates := generatedDates(s, s.PlanRules[0].ID)
	if len(dates) != 1 || dates["2023-04-30"] != 1 {
		t.Fatalf("April dates = %v, want only 2023-04-30", dates)
	}
}

func TestExpandWalksEveryDayAcrossMidnightDST(t *testing.T) {
	tests := []struct {
		zone       string
		start, end string
		monthlyDay int
		wantDays   int
		lastDay    string
	}{
		// DST starts at 00:00 on 2024-09-08
		{"America/Santiago", "2024-09-01", "2024-09-30", 30, 30, "2024-09-30"},
		// DST started at 00:00 on 2018-11-04
		{"America/Sao_Paulo", "2018-11-01", "2018-11-07", 7, 7, "2018-11-07"},
		{"UTC", "2024-09-01", "2024-09-30", 30, 30, "2024-09-30"},
	}

	for _, tt := range tests {
		t.Run(tt.zone, func(t *testing.T) {
			loc, err := time.LoadLocation(tt.zone)
			if err != nil {
				t.Skipf("time zone %s unavailable: %v", tt.zone, err)
			}
			saved := time.Local
			time.Local = loc
			t.Cleanup(func() { time.Local = saved })

			s := AddPlanRule(core.DefaultState(), core.PlanRuleInput{Cadence: core.Daily, Amount: 1})
			s = AddPlanRule(s, core.PlanRuleInput{Cadence: core.Monthly, Amount: 2, Days: []int{tt.monthlyDay}})
			daily, monthly := s.PlanRules[1].ID, s.PlanRules[0].ID

			s = ExpandPlan(s, day(tt.start), day(tt.end))

			dates := generatedDates(s, daily)
			if len(dates) != tt.wantDays || dates[tt.lastDay] != 1 || dates[tt.start] != 1 {
				t.Errorf("ExpandPlan() daily dates = %d (last %v), want %d including %s", len(dates), dates[tt.lastDay], tt.wantDays, tt.lastDay)
			}
			if got := generatedDates(s, monthly); got[tt.lastDay] != 1 || len(got) != 1 {
				t.Errorf("ExpandPlan() monthly dates = %v, want only %s", got, tt.lastDay)
			}
		})
	}

	t.Run("month wrapper", func(t *testing.T) {
		loc, err := time.LoadLocation("America/Santiago")
		if err != nil {
			t.Skipf("time zone unavailable: %v", err)
		}
		saved := time.Local
		time.Local = loc
		t.Cleanup(func() { time.Local = saved })

		s := AddPlanRule(core.DefaultState(), core.PlanRuleInput{Cadence: core.Daily, Amount: 1})
		if got := len(ExpandMonth(s, "2024-09-15").Expenses); got != 30 {
			t.Errorf("ExpandMonth(2024-09) = %d expenses, want 30", got)
		}
	})
}

func TestExpandPlanReversedRange(t *testing.T) {
	s := AddPlanRule(core.DefaultState(), core.PlanRuleInput{Cadence: core.Daily, Amount: 1})
	got := ExpandPlan(s, day("2024-01-10"), day("2024-01-01"))
	if len(got.Expenses) != 0 {
		t.Fatalf("reversed range generated %d expenses", len(got.Expenses))
	}
}

func TestExpandDayKeepsManualExpenses(t *testing.T) {
	s := AddExpense(core.DefaultState(), ExpenseInput{Date: "2024-01-01", PlannedAmount: 7})
	s = AddPlanRule(s, core.PlanRuleInput{Cadence: core.Daily, Amount: 1})
	s = ExpandDay(s, "2024-01-01")
	if len(s.Expenses) != 2 {
		t.Fatalf("len(Expenses) = %d, want 2", len(s.Expenses))
	}
}

func TestExpandRuleOrderDeterministic(t *testing.T) {
	s := core.DefaultState()
	s = AddPlanRule(s, core.PlanRuleInput{Cadence: core.Daily, Amount: 1, Title: "a"})
	s = AddPlanRule(s, core.PlanRuleInput{Cadence: core.Daily, Amount: 2, Title: "b"})

	occ := Preview(s, day("2024-03-01"), day("2024-03-02"))
	want := []struct{ date, title string }{
		{"2024-03-01", "b"}, {"2024-03-01", "a"},
		{"2024-03-02", "b"}, {"2024-03-02", "a"},
	}
	if len(occ) != len(want) {
		t.Fatalf("Preview() = %d occurrences, want %d", len(occ), len(want))
	}
	for i, w := range want {
		if occ[i].Date != w.date || occ[i].Title != w.title {
			t.Errorf("Preview()[%d] = %s/%s, want %s/%s", i, occ[i].Date, occ[i].Title, w.date, w.title)
		}
	}
}

func TestPreviewDoesNotChangeState(t *testing.T) {
	s := AddPlanRule(core.DefaultState(), core.PlanRuleInput{Cadence: core.Daily, Amount: 1})
	if occ := Preview(s, day("2024-01-01"), day("2024-01-03")); len(occ) != 3 {
		t.Fatalf("Preview() = %d occurrences, want 3", len(occ))
	}
	if len(s.Expenses) != 0 {
		t.Fatalf("Preview() mutated the state")
	}
	s = ExpandDay(s, "2024-01-02")
	if occ := Preview(s, day("2024-01-01"), day("2024-01-03")); len(occ) != 2 {
		t.Fatalf("Preview() after expansion = %d occurrences, want 2", len(occ))
	}
}

func TestExpandBudgetsUsesWeekdays(t *testing.T) {
	// Legacy rules fire on weekdays even when their frequency is monthly.
	s := AddBudgetRule(core.DefaultState(), BudgetRuleInput{Frequency: core.Monthly, Amount: 4, Days: []int{1}})
	s = AddBudgetRule(s, BudgetRuleInput{Frequency: core.Weekly, Amount: 4})

	s = ExpandBudgets(s, day("2024-01-01"), day("2024-01-31"))
	dates := generatedDates(s, s.Budgets[1].ID)
	if len(dates) != 5 {
		t.Fatalf("monthly legacy rule fired on %d Mondays, want 5: %v", len(dates), dates)
	}
	if n := len(generatedDates(s, s.Budgets[0].ID)); n != 0 {
		t.Fatalf("rule without days fired %d times", n)
	}

	again := ExpandBudgets(s, day("2024-01-01"), day("2024-01-31"))
	if len(again.Expenses) != len(s.Expenses) {
		t.Fatalf("ExpandBudgets() not idempotent")
	}
}
