package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"billetera/internal/core"
	"billetera/internal/ledger"
)

func newExpenseCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expense",
		Aliases: []string{"gasto"},
		Short:   "Manage planned and realized expenses",
	}
	cmd.AddCommand(
		newExpenseAddCmd(app),
		newExpenseListCmd(app),
		newExpenseUpdateCmd(app),
		newExpenseDeleteCmd(app),
		newExpenseDoneCmd(app),
		newExpensePendingCmd(app),
	)
	return cmd
}

func newExpenseAddCmd(app *App) *cobra.Command {
	var amount, actual, date, title, category, note string
	var done bool
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			planned, err := ParseAmountFlag(amount)
			if err != nil {
				return err
			}
			in := ledger.ExpenseInput{
				PlannedAmount: planned,
				Title:         strings.TrimSpace(title),
				Category:      categoryOrDefault(category),
				Note:          note,
				Done:          done,
			}
			if in.Date, err = ResolveDate(date, app.today()); err != nil {
				return err
			}
			if done {
				in.ActualAmount = planned
				if actual != "" {
					if in.ActualAmount, err = ParseAmountFlag(actual); err != nil {
						return err
					}
				}
			}
			if _, err := app.apply(cmd.Context(), func(s core.LedgerState) core.LedgerState {
				return ledger.AddExpense(s, in)
			}); err != nil {
				return err
			}
			app.printf("  Gasto %q de %s el %s\n", in.Title, app.money(planned), in.Date)
			return nil
		},
	}
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "Planned amount")
	cmd.Flags().StringVar(&actual, "actual", "", "Realized amount (with --done, default the planned amount)")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Short description")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Category (default "+core.DefaultCategory+")")
	cmd.Flags().StringVarP(&note, "note", "n", "", "Free-form note")
	cmd.Flags().BoolVar(&done, "done", false, "Record the expense as already paid")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newExpenseListCmd(app *App) *cobra.Command {
	var checklist bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses on the filter date, or all of them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := app.load(cmd.Context())
			if err != nil {
				return err
			}
			title := "Gastos"
			var list []core.Expense
			switch {
			case checklist:
				list = ledger.DailyChecklist(snap.State, app.today())
				title = "Checklist del día"
			default:
				list = ledger.FilterExpenses(snap.State)
			}
			if f := snap.State.UI.FilterDate; f != "" {
				title += " (" + f + ")"
			}
			if len(list) == 0 {
				app.println(RenderMuted("No hay gastos para mostrar."))
				return nil
			}
			app.println(RenderExpenses(app.Money, title, list))
			return nil
		},
	}
	cmd.Flags().BoolVar(&checklist, "checklist", false, "Only the expenses of the filter date or today")
	return cmd
}

// RenderExpenses renders expenses as a table. Generated expenses are
// marked in the last column.
func RenderExpenses(m core.MoneyFormatter, title string, list []core.Expense) string {
	rows := make([][]string, 0, len(list))
	for _, e := range list {
		source := ""
		if e.IsGenerated() {
			source = "plan"
		}
		rows = append(rows, []string{
			ShortID(e.ID),
			e.Date,
			e.Title,
			e.Category,
			m.Format(e.PlannedAmount),
			m.Format(e.ActualAmount),
			FormatStatus(e.Done),
			source,
		})
	}
	return RenderTable(Table{
		Title:      title,
		Headers:    []string{"ID", "Fecha", "Título", "Categoría", "Plan", "Real", "✓", ""},
		Rows:       rows,
		RightAlign: map[int]bool{4: true, 5: true},
	})
}

func newExpenseUpdateCmd(app *App) *cobra.Command {
	var amount, actual, date, title, category, note string
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change fields of an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch ledger.ExpensePatch
			flags := cmd.Flags()
			if flags.Changed("amount") {
				v, err := ParseAmountFlag(amount)
				if err != nil {
					return err
				}
				patch.PlannedAmount = &v
			}
			if flags.Changed("actual") {
				v, err := ParseAmountFlag(actual)
				if err != nil {
					return err
				}
				patch.ActualAmount = &v
			}
			if flags.Changed("date") {
				d, err := ResolveDate(date, app.today())
				if err != nil {
					return err
				}
				patch.Date = &d
			}
			if flags.Changed("title") {
				t := strings.TrimSpace(title)
				patch.Title = &t
			}
			if flags.Changed("category") {
				c := categoryOrDefault(category)
				patch.Category = &c
			}
			if flags.Changed("note") {
				patch.Note = &note
			}

			id, err := app.resolveExpense(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if _, err := app.apply(cmd.Context(), func(s core.LedgerState) core.LedgerState {
				return ledger.UpdateExpense(s, id, patch)
			}); err != nil {
				return err
			}
			app.printf("  Gasto %s actualizado\n", ShortID(id))
			return nil
		},
	}
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "Planned amount")
	cmd.Flags().StringVar(&actual, "actual", "", "Realized amount")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Short description")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Category")
	cmd.Flags().StringVarP(&note, "note", "n", "", "Free-form note")
	return cmd
}

func newExpenseDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := app.resolveExpense(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if _, err := app.apply(cmd.Context(), func(s core.LedgerState) core.LedgerState {
				return ledger.DeleteExpense(s, id)
			}); err != nil {
				return err
			}
			app.printf("  Gasto %s eliminado\n", ShortID(id))
			return nil
		},
	}
}

func newExpenseDoneCmd(app *App) *cobra.Command {
	var actual string
	cmd := &cobra.Command{
		Use:   "done ID",
		Short: "Mark an expense as paid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := app.load(cmd.Context())
			if err != nil {
				return err
			}
			id, err := matchID(expenseIDs(snap.State), args[0])
			if err != nil {
				return err
			}

			var amount *float64
			if cmd.Flags().Changed("actual") {
				v, err := ParseAmountFlag(actual)
				if err != nil {
					return err
				}
				amount = &v
			}

			var paid float64
			if _, err := app.apply(cmd.Context(), func(s core.LedgerState) core.LedgerState {
				// may run twice on conflict
				paid = plannedAmount(s, id)
				if amount != nil {
					paid = *amount
				}
				return ledger.MarkExpenseDone(s, id, paid)
			}); err != nil {
				return err
			}
			app.printf("  Gasto %s pagado: %s\n", ShortID(id), app.money(paid))
			return nil
		},
	}
	cmd.Flags().StringVar(&actual, "actual", "", "Realized amount (default the planned amount)")
	return cmd
}

func newExpensePendingCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "pending ID",
		Short: "Mark an expense as not paid yet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := app.resolveExpense(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if _, err := app.apply(cmd.Context(), func(s core.LedgerState) core.LedgerState {
				return ledger.MarkExpensePending(s, id)
			}); err != nil {
				return err
			}
			app.printf("  Gasto %s pendiente\n", ShortID(id))
			return nil
		},
	}
}

func (a *App) resolveExpense(ctx context.Context, prefix string) (string, error) {
	snap, err := a.load(ctx)
	if err != nil {
		return "", err
	}
	return matchID(expenseIDs(snap.State), prefix)
}

func expenseIDs(s core.LedgerState) []string {
	ids := make([]string, len(s.Expenses))
	for i, e := range s.Expenses {
		ids[i] = e.ID
	}
	return ids
}

func plannedAmount(s core.LedgerState, id string) float64 {
	for _, e := range s.Expenses {
		if e.ID == id {
			return e.PlannedAmount
		}
	}
	return 0
}

func categoryOrDefault(c string) string {
	c = strings.TrimSpace(c)
	if c == "" {
		return core.DefaultCategory
	}
	return c
}
