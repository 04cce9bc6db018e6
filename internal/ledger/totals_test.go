package ledger

import (
	"math"
	"testing"

	"billetera/internal/core"
)

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name  string
		state func() core.LedgerState
		want  core.Totals
	}{
		{
			name:  "empty ledger",
			state: core.DefaultState,
			want:  core.Totals{},
		},
		{
			name: "pending expenses do not reduce balance",
			state: func() core.LedgerState {
				s := SetInitialBalance(core.DefaultState(), 100)
				return AddExpense(s, ExpenseInput{Date: "2024-01-01", PlannedAmount: 30})
			},
			want: core.Totals{ExpensePending: 30, Balance: 100},
		},
		{
			name: "done expenses use actual amount",
			state: func() core.LedgerState {
				s := SetInitialBalance(core.DefaultState(), 100)
				s = AddIncome(s, IncomeInput{Date: "2024-01-01", Amount: 50.1})
				s = AddIncome(s, IncomeInput{Date: "2024-01-02", Amount: 0.2})
				s = AddExpense(s, ExpenseInput{Date: "2024-01-01", PlannedAmount: 20})
				return MarkExpenseDone(s, s.Expenses[0].ID, 15.5)
			},
			want: core.Totals{IncomesTotal: 50.3, ExpenseDone: 15.5, SavingsDone: 4.5, Balance: 134.8},
		},
		{
			name: "overspend gives negative savings",
			state: func() core.LedgerState {
				s := AddExpense(core.DefaultState(), ExpenseInput{Date: "2024-01-01", PlannedAmount: 10, ActualAmount: 13, Done: true})
				return AddExpense(s, ExpenseInput{Date: "2024-01-02", PlannedAmount: 4})
			},
			want: core.Totals{ExpenseDone: 13, ExpensePending: 4, SavingsDone: -3, Balance: -13},
		},
		{
			name: "non-finite stored amounts count as zero",
			state: func() core.LedgerState {
				s := core.DefaultState()
				s.InitialBalance = math.NaN()
				s.Incomes = []core.Income{{Amount: math.Inf(1)}, {Amount: 5}}
				return s
			},
			want: core.Totals{IncomesTotal: 5, Balance: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeTotals(tt.state()); got != tt.want {
				t.Errorf("ComputeTotals() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTotalsConsistency(t *testing.T) {
	s := SetInitialBalance(core.DefaultState(), 250)
	s = AddIncome(s, IncomeInput{Date: "2024-01-01", Amount: 99.99})
	s = AddTransportRecharge(s, core.TransportInput{Date: "2024-01-01", Amount: 20})
	s = AddPlanRule(s, core.PlanRuleInput{Cadence: core.Daily, Amount: 7.3})
	s = ExpandWeek(s, "2024-01-01")
	for i, e := range s.Expenses {
		if i%2 == 0 && !e.Done {
			s = MarkExpenseDone(s, e.ID, 6.15)
		}
	}

	var incomes, done, savings float64
	for _, in := range s.Incomes {
		incomes += in.Amount
	}
	for _, e := range s.Expenses {
		if e.Done {
			done += e.ActualAmount
			savings += e.PlannedAmount - e.ActualAmount
		}
	}

	got := ComputeTotals(s)
	if want := core.RoundMoney(s.InitialBalance + incomes - done); got.Balance != want {
		t.Errorf("Balance = %v, want %v", got.Balance, want)
	}
	if want := core.RoundMoney(savings); got.SavingsDone != want {
		t.Errorf("SavingsDone = %v, want %v", got.SavingsDone, want)
	}
}
