package ledger

import (
	"cmp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"billetera/internal/core"
)

// FilterExpenses returns the expenses on the UI filter date, or every
// expense when no filter is set, newest date first. Ties are broken by
// creation time, newest first. The result is a new slice.
func FilterExpenses(s core.LedgerState) []core.Expense {
	return expensesOn(s.Expenses, s.UI.FilterDate)
}

func expensesOn(list []core.Expense, date string) []core.Expense {
	out := make([]core.Expense, 0, len(list))
	for _, e := range list {
		if date == "" || e.Date == date {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b core.Expense) int {
		if c := strings.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return cmp.Compare(b.CreatedAt, a.CreatedAt)
	})
	return out
}

// ListExpenseDates returns the distinct non-empty expense dates, newest
// first.
func ListExpenseDates(s core.LedgerState) []string {
	seen := make(map[string]struct{}, len(s.Expenses))
	dates := make([]string, 0)
	for _, e := range s.Expenses {
		if e.Date == "" {
			continue
		}
		if _, ok := seen[e.Date]; ok {
			continue
		}
		seen[e.Date] = struct{}{}
		dates = append(dates, e.Date)
	}
	slices.SortFunc(dates, func(a, b string) int { return strings.Compare(b, a) })
	return dates
}

// DailyChecklist returns the expenses of the day being worked on: the
// filter date when one is set, otherwise today.
func DailyChecklist(s core.LedgerState, today string) []core.Expense {
	day := s.UI.FilterDate
	if day == "" {
		day = today
	}
	return expensesOn(s.Expenses, day)
}

// SummarizeRange aggregates expenses dated within [a, b]. Reversed bounds
// are swapped. Planned sums every expense, actual and savings only done
// ones. Categories are sorted by actual spending, highest first.
func SummarizeRange(s core.LedgerState, a, b string) core.RangeSummary {
	if a > b {
		a, b = b, a
	}

	type bucket struct{ planned, actual decimal.Decimal }
	byCategory := map[string]*bucket{}
	var order []string

	count := 0
	planned, actual, savings := decimal.Zero, decimal.Zero, decimal.Zero
	for _, e := range s.Expenses {
		if e.Date < a || e.Date > b {
			continue
		}
		count++
		cat := strings.TrimSpace(e.Category)
		if cat == "" {
			cat = core.DefaultCategory
		}
		bk, ok := byCategory[cat]
		if !ok {
			bk = &bucket{}
			byCategory[cat] = bk
			order = append(order, cat)
		}

		p := money(e.PlannedAmount)
		planned = planned.Add(p)
		bk.planned = bk.planned.Add(p)
		if e.Done {
			act := money(e.ActualAmount)
			actual = actual.Add(act)
			savings = savings.Add(p.Sub(act))
			bk.actual = bk.actual.Add(act)
		}
	}

	categories := make([]core.CategoryAmount, 0, len(order))
	for _, cat := range order {
		bk := byCategory[cat]
		categories = append(categories, core.CategoryAmount{
			Category: cat,
			Planned:  cents(bk.planned),
			Actual:   cents(bk.actual),
		})
	}
	slices.SortStableFunc(categories, func(x, y core.CategoryAmount) int {
		return cmp.Compare(y.Actual, x.Actual)
	})

	return core.RangeSummary{
		Start:      a,
		End:        b,
		Count:      count,
		Planned:    cents(planned),
		Actual:     cents(actual),
		Savings:    cents(savings),
		Categories: categories,
	}
}
