package ledger

import "billetera/internal/core"

// BudgetRuleInput describes a legacy budget rule.
type BudgetRuleInput struct {
	Frequency core.Cadence
	Amount    float64
	Category  string
	Title     string
	Days      []int
}

// AddBudgetRule prepends a legacy budget rule. New ledgers use plan rules;
// this exists so documents from the first app variant stay editable.
func AddBudgetRule(s core.LedgerState, in BudgetRuleInput) core.LedgerState {
	rule := core.BudgetRule{
		ID:        core.NewID(),
		Frequency: in.Frequency,
		Amount:    core.RoundMoney(in.Amount),
		Category:  in.Category,
		Title:     in.Title,
		Days:      copyDays(in.Days),
		CreatedAt: core.NowMillis(),
	}
	s.Budgets = prepend(s.Budgets, rule)
	return s
}

// DeleteBudgetRule removes a legacy rule. Expenses it generated stay.
func DeleteBudgetRule(s core.LedgerState, id string) core.LedgerState {
	next := make([]core.BudgetRule, 0, len(s.Budgets))
	for _, r := range s.Budgets {
		if r.ID != id {
			next = append(next, r)
		}
	}
	if len(next) == len(s.Budgets) {
		return s
	}
	s.Budgets = next
	return s
}
