package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"billetera/internal/core"
	"billetera/internal/ledger"
)

func newTotalsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "totals",
		Short: "Show balance, incomes and spending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTotals(cmd.Context(), app)
		},
	}
}

func runTotals(ctx context.Context, app *App) error {
	snap, err := app.load(ctx)
	if err != nil {
		return err
	}
	app.println(RenderTotals(app.Money, snap.State, ledger.ComputeTotals(snap.State)))
	return nil
}

// RenderTotals renders the derived aggregates of a ledger.
func RenderTotals(m core.MoneyFormatter, s core.LedgerState, t core.Totals) string {
	rows := [][]string{
		{"Saldo inicial", m.Format(s.InitialBalance)},
		{"Ingresos", m.Format(t.IncomesTotal)},
		{"---"},
		{"Gastado", m.Format(t.ExpenseDone)},
		{"Pendiente", m.Format(t.ExpensePending)},
		{"Ahorro", RenderSignedAmount(t.SavingsDone, m.Format(t.SavingsDone))},
		{"---"},
		{"Balance", RenderSignedAmount(t.Balance, m.Format(t.Balance))},
		{"Transporte", m.Format(s.Transport.Balance)},
	}
	return RenderKeyValue("Totales", rows)
}

func newIncomeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "income",
		Short: "Manage incomes",
	}

	var amount, date, note string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add an income",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := ParseAmountFlag(amount)
			if err != nil {
				return err
			}
			if err := requirePositive(v); err != nil {
				return err
			}
			d, err := ResolveDate(date, app.today())
			if err != nil {
				return err
			}
			snap, err := app.apply(cmd.Context(), func(s core.LedgerState) core.LedgerState {
				return ledger.AddIncome(s, ledger.IncomeInput{Date: d, Amount: v, Note: note})
			})
			if err != nil {
				return err
			}
			app.printf("  Ingreso %s registrado el %s\n", app.money(v), d)
			app.println(RenderTotals(app.Money, snap.State, ledger.ComputeTotals(snap.State)))
			return nil
		},
	}
	add.Flags().StringVarP(&amount, "amount", "a", "", "Amount received")
	add.Flags().StringVarP(&date, "date", "d", "", "Date (YYYY-MM-DD, default today)")
	add.Flags().StringVarP(&note, "note", "n", "", "Free-form note")
	_ = add.MarkFlagRequired("amount")

	list := &cobra.Command{
		Use:   "list",
		Short: "List incomes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := app.load(cmd.Context())
			if err != nil {
				return err
			}
			if len(snap.State.Incomes) == 0 {
				app.println(RenderMuted("No hay ingresos registrados."))
				return nil
			}
			rows := make([][]string, 0, len(snap.State.Incomes))
			for _, in := range snap.State.Incomes {
				rows = append(rows, []string{ShortID(in.ID), in.Date, app.money(in.Amount), in.Note})
			}
			app.println(RenderTable(Table{
				Title:      "Ingresos",
				Headers:    []string{"ID", "Fecha", "Monto", "Nota"},
				Rows:       rows,
				RightAlign: map[int]bool{2: true},
			}))
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func newBalanceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Manage the initial balance",
	}

	var yes bool
	set := &cobra.Command{
		Use:   "set AMOUNT",
		Short: "Set the initial balance and delete every income",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := ParseAmountFlag(args[0])
			if err != nil {
				return err
			}
			if err := requireYes(yes, "set balance deletes all incomes"); err != nil {
				return err
			}
			snap, err := app.apply(cmd.Context(), func(s core.LedgerState) core.LedgerState {
				return ledger.SetInitialBalance(s, v)
			})
			if err != nil {
				return err
			}
			app.println(RenderTotals(app.Money, snap.State, ledger.ComputeTotals(snap.State)))
			return nil
		},
	}
	set.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm that incomes are cleared")

	cmd.AddCommand(set)
	return cmd
}

func newFilterCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Restrict expense views to one date",
	}

	set := &cobra.Command{
		Use:   "set DATE",
		Short: "Show only expenses on DATE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := ResolveDate(args[0], app.today())
			if err != nil {
				return err
			}
			if _, err := app.apply(cmd.Context(), func(s core.LedgerState) core.LedgerState {
				return ledger.SetFilterDate(s, d)
			}); err != nil {
				return err
			}
			app.printf("  Filtro: %s\n", d)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Show expenses of every date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := app.apply(cmd.Context(), func(s core.LedgerState) core.LedgerState {
				return ledger.SetFilterDate(s, "")
			}); err != nil {
				return err
			}
			app.println("  Filtro eliminado")
			return nil
		},
	}

	cmd.AddCommand(set, clearCmd)
	return cmd
}

func newSummaryCmd(app *App) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize spending over a date range (default this month)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, end := core.MonthRange(app.now())
			a, err := ResolveDate(from, core.DateToISO(start))
			if err != nil {
				return err
			}
			b, err := ResolveDate(to, core.DateToISO(end))
			if err != nil {
				return err
			}
			snap, err := app.load(cmd.Context())
			if err != nil {
				return err
			}
			app.println(RenderSummary(app.Money, ledger.SummarizeRange(snap.State, a, b)))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "First date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last date (YYYY-MM-DD)")
	return cmd
}

// RenderSummary renders a range summary with its category breakdown.
func RenderSummary(m core.MoneyFormatter, sum core.RangeSummary) string {
	var b strings.Builder
	b.WriteString(RenderTitle(fmt.Sprintf("RESUMEN  %s → %s", sum.Start, sum.End)))
	b.WriteString("\n")
	b.WriteString(RenderKeyValue("", [][]string{
		{"Gastos", fmt.Sprintf("%d", sum.Count)},
		{"Planificado", m.Format(sum.Planned)},
		{"Real", m.Format(sum.Actual)},
		{"Ahorro", RenderSignedAmount(sum.Savings, m.Format(sum.Savings))},
	}))
	if len(sum.Categories) == 0 {
		return b.String()
	}
	rows := make([][]string, 0, len(sum.Categories))
	for _, c := range sum.Categories {
		rows = append(rows, []string{c.Category, m.Format(c.Planned), m.Format(c.Actual)})
	}
	b.WriteString(RenderTable(Table{
		Title:      "Por categoría",
		Headers:    []string{"Categoría", "Planificado", "Real"},
		Rows:       rows,
		RightAlign: map[int]bool{1: true, 2: true},
	}))
	return b.String()
}

func newDatesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dates",
		Short: "List the dates that have expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := app.load(cmd.Context())
			if err != nil {
				return err
			}
			dates := ledger.ListExpenseDates(snap.State)
			if len(dates) == 0 {
				app.println(RenderMuted("No hay gastos registrados."))
				return nil
			}
			for _, d := range dates {
				marker := " "
				if d == snap.State.UI.FilterDate {
					marker = "*"
				}
				app.printf("  %s %s\n", marker, d)
			}
			return nil
		},
	}
}

func newExportCmd(app *App) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON backup of the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := app.Ledgers.Export(cmd.Context(), app.user, app.now())
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err := fmt.Fprintln(app.Out, string(data))
				return err
			}
			if err := os.WriteFile(output, append(data, '\n'), 0o600); err != nil {
				return fmt.Errorf("write backup: %w", err)
			}
			app.printf("  Copia guardada en %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Backup file (default stdout)")
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the ledger with a JSON backup (FILE or - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireYes(yes, "import replaces the ledger"); err != nil {
				return err
			}
			data, err := readInput(app.In, args[0])
			if err != nil {
				return err
			}
			snap, err := app.Ledgers.Import(cmd.Context(), app.user, data)
			if err != nil {
				return err
			}
			app.printf("  Importados %d gastos y %d ingresos\n", len(snap.State.Expenses), len(snap.State.Incomes))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm that the current ledger is replaced")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}
	return data, nil
}

func newResetCmd(app *App) *cobra.Command {
	var yes, purge bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every entry of the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireYes(yes, "reset deletes the whole ledger"); err != nil {
				return err
			}
			if purge {
				if err := app.Ledgers.Purge(cmd.Context(), app.user); err != nil {
					return err
				}
				app.println("  Ledger eliminado")
				return nil
			}
			if _, err := app.Ledgers.Reset(cmd.Context(), app.user); err != nil {
				return err
			}
			app.println("  Ledger reiniciado")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the reset")
	cmd.Flags().BoolVar(&purge, "purge", false, "Remove the stored document instead of emptying it")
	return cmd
}
