package sheets

import (
	"testing"

	"billetera/internal/core"
	"billetera/internal/ledger"
)

func TestBuildRows(t *testing.T) {
	s := ledger.SetInitialBalance(core.DefaultState(), 100)
	s = ledger.AddExpense(s, ledger.ExpenseInput{Date: "2024-01-01", PlannedAmount: 10, Title: "Viejo", Category: "Casa"})
	s = ledger.AddExpense(s, ledger.ExpenseInput{Date: "2024-01-03", PlannedAmount: 4, ActualAmount: 4, Done: true, Title: "Nuevo"})
	rule := "r1"
	s = ledger.AddExpense(s, ledger.ExpenseInput{Date: "2024-01-02", PlannedAmount: 2, Title: "Plan", SourceBudgetID: &rule})
	s = ledger.SetFilterDate(s, "2024-01-01")

	rows := BuildRows(s, ledger.ComputeTotals(s))

	if len(rows) != 9+3 {
		t.Fatalf("BuildRows() returned %d rows, want 12 (filter must be ignored)", len(rows))
	}
	if rows[0][1] != 100.0 {
		t.Errorf("initial balance cell = %v, want 100", rows[0][1])
	}
	if rows[5][0] != "Balance" || rows[5][1] != 96.0 {
		t.Errorf("balance row = %v, want [Balance 96]", rows[5])
	}
	if len(rows[7]) != 0 {
		t.Errorf("separator row = %v, want empty", rows[7])
	}

	wantOrder := []string{"Nuevo", "Plan", "Viejo"}
	for i, title := range wantOrder {
		if got := rows[9+i][1]; got != title {
			t.Errorf("row %d title = %v, want %v", i, got, title)
		}
	}
	if rows[10][6] != "r1" || rows[9][6] != "" {
		t.Errorf("rule column = %v / %v", rows[10][6], rows[9][6])
	}
	if rows[9][5] != true {
		t.Errorf("done column = %v, want true", rows[9][5])
	}
}

func TestTabName(t *testing.T) {
	if got := TabName("Billetera", "ana"); got != "Billetera ana" {
		t.Errorf("TabName() = %q, want %q", got, "Billetera ana")
	}
}
