// Package sheets defines the remote mirror a saved ledger is copied to.
package sheets

import (
	"context"
	"fmt"

	"billetera/internal/core"
	"billetera/internal/ledger"
)

// Ports for outbound adapters.
type (
	// LedgerMirror replaces the remote copy of one user's ledger and
	// returns a reference to what it wrote.
	LedgerMirror interface {
		WriteLedger(ctx context.Context, userID string, state core.LedgerState, totals core.Totals) (ref string, err error)
	}
)

// ExpenseHeader labels the expense table written below the totals block.
var ExpenseHeader = []any{"Fecha", "Título", "Categoría", "Planificado", "Real", "Hecho", "Regla"}

// BuildRows lays out a ledger as a grid: a totals block, a blank row, the
// expense header and one row per expense, newest first.
func BuildRows(state core.LedgerState, totals core.Totals) [][]any {
	expenses := ledger.FilterExpenses(ledger.SetFilterDate(state, ""))

	rows := make([][]any, 0, 9+len(expenses))
	rows = append(rows,
		[]any{"Saldo inicial", state.InitialBalance},
		[]any{"Ingresos", totals.IncomesTotal},
		[]any{"Gastado", totals.ExpenseDone},
		[]any{"Pendiente", totals.ExpensePending},
		[]any{"Ahorro", totals.SavingsDone},
		[]any{"Balance", totals.Balance},
		[]any{"Transporte", state.Transport.Balance},
		[]any{},
		ExpenseHeader,
	)

	for _, e := range expenses {
		rule := ""
		if e.SourceBudgetID != nil {
			rule = *e.SourceBudgetID
		}
		rows = append(rows, []any{e.Date, e.Title, e.Category, e.PlannedAmount, e.ActualAmount, e.Done, rule})
	}
	return rows
}

// TabName is the per-user tab or key a mirror writes to.
func TabName(prefix, userID string) string {
	return fmt.Sprintf("%s %s", prefix, userID)
}
