package ledger

import (
	"fmt"
	"slices"
	"time"

	"billetera/internal/core"
)

// FiringChecker decides whether a plan rule produces an expense on a date.
// Each cadence has its own checker.
type FiringChecker interface {
	// Fires reports whether a rule with the given days fires on date.
	Fires(days []int, date time.Time) bool
}

// DailyChecker fires on every date.
type DailyChecker struct{}

func (DailyChecker) Fires(_ []int, _ time.Time) bool {
	return true
}

// WeeklyChecker fires when the weekday (0=Sunday) is selected.
type WeeklyChecker struct{}

func (WeeklyChecker) Fires(days []int, date time.Time) bool {
	return slices.Contains(days, int(date.Weekday()))
}

// MonthlyChecker fires when the day of month is selected. Only real
// calendar dates are visited, so day 31 is skipped in shorter months.
type MonthlyChecker struct{}

func (MonthlyChecker) Fires(days []int, date time.Time) bool {
	return slices.Contains(days, date.Day())
}

var firingStrategies = map[core.Cadence]FiringChecker{
	core.Daily:   DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
}

// GetFiringChecker returns the checker for a cadence.
func GetFiringChecker(c core.Cadence) (FiringChecker, error) {
	checker, ok := firingStrategies[c]
	if !ok {
		return nil, fmt.Errorf("unknown cadence: %s", c)
	}
	return checker, nil
}

// shouldFire applies the cadence checker. Non-daily rules without days and
// rules with an unknown cadence never fire.
func shouldFire(r core.PlanRule, date time.Time) bool {
	checker, err := GetFiringChecker(r.Cadence)
	if err != nil {
		return false
	}
	if r.Cadence != core.Daily && len(r.Days) == 0 {
		return false
	}
	return checker.Fires(r.Days, date)
}

// Occurrence is one (rule, date) pair produced by expansion.
type Occurrence struct {
	RuleID   string  `json:"ruleId"`
	Date     string  `json:"date"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
	Title    string  `json:"title"`
}

func dedupKey(ruleID, date string) string {
	return ruleID + "|" + date
}

// existingKeys collects "{sourceBudgetId}|{date}" for every generated
// expense. Plan and legacy budget rules share this key space.
func existingKeys(expenses []core.Expense) map[string]struct{} {
	keys := make(map[string]struct{}, len(expenses))
	for _, e := range expenses {
		if e.IsGenerated() {
			keys[dedupKey(*e.SourceBudgetID, e.Date)] = struct{}{}
		}
	}
	return keys
}

// eachDay calls fn for every calendar day from start to end inclusive.
// The walk steps calendar fields at noon, so a midnight that DST skips
// neither shifts nor drops a day.
func eachDay(start, end time.Time, fn func(day time.Time)) {
	last := core.DateToISO(end)
	y, m, d := start.Date()
	for n := d; ; n++ {
		day := time.Date(y, m, n, 12, 0, 0, 0, start.Location())
		if core.DateToISO(day) > last {
			return
		}
		fn(day)
	}
}

// planOccurrences walks the range day by day and, within a day, rules in
// list order. Keys are recorded as soon as they are produced so a rule
// fires at most once per date.
func planOccurrences(s core.LedgerState, start, end time.Time) []Occurrence {
	keys := existingKeys(s.Expenses)
	var out []Occurrence
	eachDay(start, end, func(day time.Time) {
		iso := core.DateToISO(day)
		for _, r := range s.PlanRules {
			if !shouldFire(r, day) {
				continue
			}
			key := dedupKey(r.ID, iso)
			if _, ok := keys[key]; ok {
				continue
			}
			keys[key] = struct{}{}
			out = append(out, Occurrence{
				RuleID:   r.ID,
				Date:     iso,
				Amount:   core.RoundMoney(r.Amount),
				Category: r.Category,
				Title:    r.Title,
			})
		}
	})
	return out
}

// budgetOccurrences mirrors planOccurrences for legacy budget rules, which
// fire when the weekday is selected regardless of their frequency.
func budgetOccurrences(s core.LedgerState, start, end time.Time) []Occurrence {
	keys := existingKeys(s.Expenses)
	var out []Occurrence
	eachDay(start, end, func(day time.Time) {
		iso := core.DateToISO(day)
		dow := int(day.Weekday())
		for _, r := range s.Budgets {
			if len(r.Days) == 0 || !slices.Contains(r.Days, dow) {
				continue
			}
			key := dedupKey(r.ID, iso)
			if _, ok := keys[key]; ok {
				continue
			}
			keys[key] = struct{}{}
			out = append(out, Occurrence{
				RuleID:   r.ID,
				Date:     iso,
				Amount:   core.RoundMoney(r.Amount),
				Category: r.Category,
				Title:    r.Title,
			})
		}
	})
	return out
}

// apply prepends one pending expense per occurrence, in order, so the
// last generated entry ends up first.
func apply(s core.LedgerState, occ []Occurrence) core.LedgerState {
	if len(occ) == 0 {
		return s
	}
	next := make([]core.Expense, 0, len(s.Expenses)+len(occ))
	for i := len(occ) - 1; i >= 0; i-- {
		o := occ[i]
		next = append(next, newExpense(ExpenseInput{
			Date:           o.Date,
			PlannedAmount:  o.Amount,
			Category:       o.Category,
			Title:          o.Title,
			SourceBudgetID: &o.RuleID,
		}))
	}
	s.Expenses = append(next, s.Expenses...)
	return s
}

// ExpandPlan creates a pending expense for every plan rule occurrence in
// [start, end] that does not exist yet. Running it twice over the same
// range adds nothing the second time. If end is before start nothing is
// generated.
func ExpandPlan(s core.LedgerState, start, end time.Time) core.LedgerState {
	return apply(s, planOccurrences(s, start, end))
}

// Preview lists the occurrences ExpandPlan would create, without creating
// them.
func Preview(s core.LedgerState, start, end time.Time) []Occurrence {
	return planOccurrences(s, start, end)
}

// ExpandDay expands the plan for a single ISO date.
func ExpandDay(s core.LedgerState, iso string) core.LedgerState {
	d := core.ParseISODate(iso)
	return ExpandPlan(s, d, d)
}

// ExpandWeek expands the Monday..Sunday week containing iso.
func ExpandWeek(s core.LedgerState, iso string) core.LedgerState {
	start, end := core.WeekRange(core.ParseISODate(iso))
	return ExpandPlan(s, start, end)
}

// ExpandMonth expands the calendar month containing iso.
func ExpandMonth(s core.LedgerState, iso string) core.LedgerState {
	start, end := core.MonthRange(core.ParseISODate(iso))
	return ExpandPlan(s, start, end)
}

// ExpandBudgets runs the legacy budget rule expansion over [start, end].
func ExpandBudgets(s core.LedgerState, start, end time.Time) core.LedgerState {
	return apply(s, budgetOccurrences(s, start, end))
}
