package ledger

import (
	"math"

	"github.com/shopspring/decimal"

	"billetera/internal/core"
)

// ComputeTotals derives the aggregates shown to the user:
//
//	incomesTotal   = sum of income amounts
//	expenseDone    = sum of actualAmount over done expenses
//	expensePending = sum of plannedAmount over pending expenses
//	savingsDone    = sum of (plannedAmount - actualAmount) over done expenses
//	balance        = initialBalance + incomesTotal - expenseDone
//
// Pending expenses never reduce the balance.
func ComputeTotals(s core.LedgerState) core.Totals {
	incomes := decimal.Zero
	for _, in := range s.Incomes {
		incomes = incomes.Add(money(in.Amount))
	}

	done, pending, savings := decimal.Zero, decimal.Zero, decimal.Zero
	for _, e := range s.Expenses {
		if e.Done {
			done = done.Add(money(e.ActualAmount))
			savings = savings.Add(money(e.PlannedAmount).Sub(money(e.ActualAmount)))
			continue
		}
		pending = pending.Add(money(e.PlannedAmount))
	}

	balance := money(s.InitialBalance).Add(incomes).Sub(done)

	return core.Totals{
		IncomesTotal:   cents(incomes),
		ExpenseDone:    cents(done),
		ExpensePending: cents(pending),
		SavingsDone:    cents(savings),
		Balance:        cents(balance),
	}
}

func money(x float64) decimal.Decimal {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(x)
}

func cents(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
