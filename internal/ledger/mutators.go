// Package ledger implements the state transitions of a budgeting ledger.
//
// Every exported function takes a core.LedgerState and returns a new one.
// Inputs are never modified: collections that change are copied before
// being written, untouched collections are shared. Functions never fail;
// unknown ids are no-ops and malformed amounts are coerced to 0.
package ledger

import (
	"billetera/internal/core"
)

// IncomeInput describes a new income entry.
type IncomeInput struct {
	Date   string
	Amount float64
	Note   string
}

// ExpenseInput describes a new expense entry. ActualAmount and Done default
// to 0 and false; SourceBudgetID is nil for manual entries.
type ExpenseInput struct {
	Date           string
	PlannedAmount  float64
	ActualAmount   float64
	Category       string
	Title          string
	Note           string
	Done           bool
	SourceBudgetID *string
}

// ExpensePatch lists the fields to change on an expense. Nil fields are
// left untouched.
type ExpensePatch struct {
	Date          *string
	PlannedAmount *float64
	ActualAmount  *float64
	Category      *string
	Title         *string
	Note          *string
	Done          *bool
}

// PlanRulePatch lists the fields to change on a plan rule.
type PlanRulePatch struct {
	Cadence  *core.Cadence
	Amount   *float64
	Category *string
	Title    *string
	Days     []int // nil keeps the current days
}

// AddIncome prepends a new income.
func AddIncome(s core.LedgerState, in IncomeInput) core.LedgerState {
	entry := core.Income{
		ID:        core.NewID(),
		Date:      in.Date,
		Amount:    core.RoundMoney(in.Amount),
		Note:      core.CleanNote(in.Note),
		CreatedAt: core.NowMillis(),
	}
	s.Incomes = prepend(s.Incomes, entry)
	return s
}

// SetInitialBalance sets the opening balance and clears every income. The
// reset is destructive by contract; callers confirm with the user first.
func SetInitialBalance(s core.LedgerState, amount float64) core.LedgerState {
	s.InitialBalance = core.RoundMoney(amount)
	s.Incomes = []core.Income{}
	return s
}

// SetFilterDate sets the date filter; "" clears it. The value is not checked
// against existing expenses.
func SetFilterDate(s core.LedgerState, iso string) core.LedgerState {
	s.UI.FilterDate = iso
	return s
}

// ClearAll returns an empty ledger.
func ClearAll(core.LedgerState) core.LedgerState {
	return core.DefaultState()
}

// AddExpense prepends a new expense.
func AddExpense(s core.LedgerState, in ExpenseInput) core.LedgerState {
	s.Expenses = prepend(s.Expenses, newExpense(in))
	return s
}

func newExpense(in ExpenseInput) core.Expense {
	var source *string
	if in.SourceBudgetID != nil {
		id := *in.SourceBudgetID
		source = &id
	}
	return core.Expense{
		ID:             core.NewID(),
		Date:           in.Date,
		PlannedAmount:  core.RoundMoney(in.PlannedAmount),
		ActualAmount:   core.RoundMoney(in.ActualAmount),
		Category:       in.Category,
		Title:          in.Title,
		Note:           core.CleanNote(in.Note),
		Done:           in.Done,
		SourceBudgetID: source,
		CreatedAt:      core.NowMillis(),
	}
}

// UpdateExpense merges patch into the matching expense. The state is
// returned unchanged when no expense has that id.
func UpdateExpense(s core.LedgerState, id string, patch ExpensePatch) core.LedgerState {
	idx := indexOfExpense(s.Expenses, id)
	if idx < 0 {
		return s
	}
	next := append([]core.Expense(nil), s.Expenses...)
	e := next[idx]
	if patch.Date != nil {
		e.Date = *patch.Date
	}
	if patch.PlannedAmount != nil {
		e.PlannedAmount = core.RoundMoney(*patch.PlannedAmount)
	}
	if patch.ActualAmount != nil {
		e.ActualAmount = core.RoundMoney(*patch.ActualAmount)
	}
	if patch.Category != nil {
		e.Category = *patch.Category
	}
	if patch.Title != nil {
		e.Title = *patch.Title
	}
	if patch.Note != nil {
		e.Note = core.CleanNote(*patch.Note)
	}
	if patch.Done != nil {
		e.Done = *patch.Done
	}
	next[idx] = e
	s.Expenses = next
	return s
}

// DeleteExpense removes the matching expense, if any.
func DeleteExpense(s core.LedgerState, id string) core.LedgerState {
	if indexOfExpense(s.Expenses, id) < 0 {
		return s
	}
	next := make([]core.Expense, 0, len(s.Expenses)-1)
	for _, e := range s.Expenses {
		if e.ID != id {
			next = append(next, e)
		}
	}
	s.Expenses = next
	return s
}

// MarkExpenseDone records the realized amount. PlannedAmount is kept.
func MarkExpenseDone(s core.LedgerState, id string, actual float64) core.LedgerState {
	done := true
	return UpdateExpense(s, id, ExpensePatch{Done: &done, ActualAmount: &actual})
}

// MarkExpensePending reverts an expense to pending and discards the
// realized amount.
func MarkExpensePending(s core.LedgerState, id string) core.LedgerState {
	done := false
	zero := 0.0
	return UpdateExpense(s, id, ExpensePatch{Done: &done, ActualAmount: &zero})
}

// AddPlanRule prepends a new plan rule. Rules with a non-daily cadence and
// no days are stored but never fire.
func AddPlanRule(s core.LedgerState, in core.PlanRuleInput) core.LedgerState {
	rule := core.PlanRule{
		ID:        core.NewID(),
		Cadence:   in.Cadence,
		Amount:    core.RoundMoney(in.Amount),
		Category:  in.Category,
		Title:     in.Title,
		Days:      copyDays(in.Days),
		CreatedAt: core.NowMillis(),
	}
	if rule.Cadence == core.Daily {
		rule.Days = []int{}
	}
	s.PlanRules = prepend(s.PlanRules, rule)
	return s
}

// UpdatePlanRule merges patch into the matching rule. When the resulting
// cadence is daily the days are cleared, so stale selections cannot come
// back if the cadence is later switched again.
func UpdatePlanRule(s core.LedgerState, id string, patch PlanRulePatch) core.LedgerState {
	idx := -1
	for i, r := range s.PlanRules {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s
	}
	next := append([]core.PlanRule(nil), s.PlanRules...)
	r := next[idx]
	if patch.Cadence != nil {
		r.Cadence = *patch.Cadence
	}
	if patch.Amount != nil {
		r.Amount = core.RoundMoney(*patch.Amount)
	}
	if patch.Category != nil {
		r.Category = *patch.Category
	}
	if patch.Title != nil {
		r.Title = *patch.Title
	}
	if patch.Days != nil {
		r.Days = copyDays(patch.Days)
	} else {
		r.Days = copyDays(r.Days)
	}
	if r.Cadence == core.Daily {
		r.Days = []int{}
	}
	next[idx] = r
	s.PlanRules = next
	return s
}

// DeletePlanRule removes the matching rule. Expenses it generated stay.
func DeletePlanRule(s core.LedgerState, id string) core.LedgerState {
	next := make([]core.PlanRule, 0, len(s.PlanRules))
	for _, r := range s.PlanRules {
		if r.ID != id {
			next = append(next, r)
		}
	}
	if len(next) == len(s.PlanRules) {
		return s
	}
	s.PlanRules = next
	return s
}

// AddTransportRecharge tops up the transport card. The recharge is also a
// realized ledger expense, so both collections change in the one returned
// state.
func AddTransportRecharge(s core.LedgerState, in core.TransportInput) core.LedgerState {
	amount := core.RoundMoney(in.Amount)
	s = AddExpense(s, ExpenseInput{
		Date:          in.Date,
		PlannedAmount: amount,
		ActualAmount:  amount,
		Done:          true,
		Category:      core.TransportCategory,
		Title:         core.TransportCategory,
		Note:          in.Note,
	})
	return addTransportEvent(s, core.Recharge, in.Date, amount, in.Note)
}

// AddTransportTrip charges a trip to the transport card. The balance may go
// negative; the expense list is not touched.
func AddTransportTrip(s core.LedgerState, in core.TransportInput) core.LedgerState {
	amount := core.RoundMoney(in.Amount)
	return addTransportEvent(s, core.Trip, in.Date, -amount, in.Note)
}

func addTransportEvent(s core.LedgerState, typ core.TransportEventType, date string, delta float64, note string) core.LedgerState {
	amount := delta
	if amount < 0 {
		amount = -amount
	}
	ev := core.TransportEvent{
		ID:        core.NewID(),
		Type:      typ,
		Date:      date,
		Amount:    amount,
		Note:      core.CleanNote(note),
		CreatedAt: core.NowMillis(),
	}
	s.Transport = core.TransportState{
		Balance: core.SumMoney(s.Transport.Balance, delta),
		Events:  prepend(s.Transport.Events, ev),
	}
	return s
}

func indexOfExpense(list []core.Expense, id string) int {
	for i, e := range list {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// prepend returns a fresh slice with v in front of list.
func prepend[T any](list []T, v T) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, v)
	return append(out, list...)
}

func copyDays(days []int) []int {
	if days == nil {
		return []int{}
	}
	return append([]int{}, days...)
}
