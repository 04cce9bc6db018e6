package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"billetera/internal/core"
	"billetera/internal/ledger"
	"billetera/internal/log"
)

// rangeFlags selects the expansion window around --date.
type rangeFlags struct {
	day, week, month bool
	date             string
}

func (r *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&r.day, "day", false, "Only the given date")
	cmd.Flags().BoolVar(&r.week, "week", false, "The Monday-Sunday week of the date (default)")
	cmd.Flags().BoolVar(&r.month, "month", false, "The calendar month of the date")
	cmd.Flags().StringVarP(&r.date, "date", "d", "", "Reference date (YYYY-MM-DD, default today)")
	cmd.MarkFlagsMutuallyExclusive("day", "week", "month")
}

func (r *rangeFlags) resolve(today string) (time.Time, time.Time, error) {
	iso, err := ResolveDate(r.date, today)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	d := core.ParseISODate(iso)
	switch {
	case r.day:
		return d, d, nil
	case r.month:
		start, end := core.MonthRange(d)
		return start, end, nil
	default:
		start, end := core.WeekRange(d)
		return start, end, nil
	}
}

func parseCadence(raw string) (core.Cadence, error) {
	c := core.Cadence(strings.ToLower(strings.TrimSpace(raw)))
	if !c.IsValid() {
		return "", fmt.Errorf("cadence %q: %w", raw, core.ErrInvalidCadence)
	}
	return c, nil
}

func newPlanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage recurring plan rules",
	}
	cmd.AddCommand(
		newPlanAddCmd(app),
		newPlanUpdateCmd(app),
		newPlanDeleteCmd(app),
		newPlanListCmd(app),
		newPlanExpandCmd(app),
		newPlanPreviewCmd(app),
	)
	return cmd
}

func newPlanAddCmd(app *App) *cobra.Command {
	var cadence, amount, title, category, days string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a plan rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := parseCadence(cadence)
			if err != nil {
				return err
			}
			v, err := ParseAmountFlag(amount)
			if err != nil {
				return err
			}
			d, err := ParseDays(days)
			if err != nil {
				return err
			}
			in := core.PlanRuleInput{
				Cadence:  c,
				Amount:   v,
				Category: categoryOrDefault(category),
				Title:    strings.TrimSpace(title),
				Days:     d,
			}
			if err := in.Validate(); err != nil {
				return err
			}
			if _, err := app.apply(cmd.Context(), func(s core.LedgerState) core.LedgerState {
				return ledger.AddPlanRule(s, in)
			}); err != nil {
				return err
			}
			app.printf("  Regla %q (%s, %s) creada\n", in.Title, c, FormatDays(c, in.Days))
			return nil
		},
	}
	cmd.Flags().StringVar(&cadence, "cadence", string(core.Daily), "daily, weekly or monthly")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "Amount of each occurrence")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Title of generated expenses")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Category of generated expenses")
	cmd.Flags().StringVar(&days, "days", "", "Weekdays 0-6 or month days 1-31, comma separated, or a preset (weekdays, weekend, first-and-fifteenth...)")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newPlanUpdateCmd(app *App) *cobra.Command {
	var cadence, amount, title, category, days string
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change a plan rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := app.load(cmd.Context())
			if err != nil {
				return err
			}
			id, err := matchID(planRuleIDs(snap.State), args[0])
			if err != nil {
				return err
			}
			current := findPlanRule(snap.State, id)

			var patch ledger.PlanRulePatch
			flags := cmd.Flags()
			next := current
			if flags.Changed("cadence") {
				c, err := parseCadence(cadence)
				if err != nil {
					return err
				}
				patch.Cadence = &c
				next.Cadence = c
			}
			if flags.Changed("amount") {
				v, err := ParseAmountFlag(amount)
				if err != nil {
					return err
				}
				patch.Amount = &v
			}
			if flags.Changed("title") {
				t := strings.TrimSpace(title)
				patch.Title = &t
			}
			if flags.Changed("category") {
				c := categoryOrDefault(category)
				patch.Category = &c
			}
			if flags.Changed("days") {
				d, err := ParseDays(days)
				if err != nil {
					return err
				}
				patch.Days = append([]int{}, d...)
				next.Days = patch.Days
			}
			if err := core.ValidateDays(next.Cadence, next.Days); err != nil {
				return err
			}

			if _, err := app.apply(cmd.Context(), func(s core.LedgerState) core.LedgerState {
				return ledger.UpdatePlanRule(s, id, patch)
			}); err != nil {
				return err
			}
			app.printf("  Regla %s actualizada\n", ShortID(id))
			return nil
		},
	}
	cmd.Flags().StringVar(&cadence, "cadence", "", "daily, weekly or monthly")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "Amount of each occurrence")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Title of generated expenses")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Category of generated expenses")
	cmd.Flags().StringVar(&days, "days", "", "Weekdays or month days, or a preset")
	return cmd
}

func newPlanDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a plan rule; expenses it generated stay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := app.load(cmd.Context())
			if err != nil {
				return err
			}
			id, err := matchID(planRuleIDs(snap.State), args[0])
			if err != nil {
				return err
			}
			if _, err := app.apply(cmd.Context(), func(s core.LedgerState) core.LedgerState {
				return ledger.DeletePlanRule(s, id)
			}); err != nil {
				return err
			}
			app.printf("  Regla %s eliminada\n", ShortID(id))
			return nil
		},
	}
}

func newPlanListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List plan rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := app.load(cmd.Context())
			if err != nil {
				return err
			}
			if len(snap.State.PlanRules) == 0 {
				app.println(RenderMuted("No hay reglas. Crea una con `billetera plan add`."))
				return nil
			}
			rows := make([][]string, 0, len(snap.State.PlanRules))
			for _, r := range snap.State.PlanRules {
				rows = append(rows, []string{
					ShortID(r.ID), r.Title, r.Category, string(r.Cadence),
					FormatDays(r.Cadence, r.Days), app.money(r.Amount),
				})
			}
			app.println(RenderTable(Table{
				Title:      "Plan",
				Headers:    []string{"ID", "Título", "Categoría", "Frecuencia", "Días", "Monto"},
				Rows:       rows,
				RightAlign: map[int]bool{5: true},
			}))
			return nil
		},
	}
}

func newPlanExpandCmd(app *App) *cobra.Command {
	var rf rangeFlags
	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Create the pending expenses of the plan for a day, week or month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, end, err := rf.resolve(app.today())
			if err != nil {
				return err
			}
			created := 0
			if _, err := app.apply(cmd.Context(), func(s core.LedgerState) core.LedgerState {
				next := ledger.ExpandPlan(s, start, end)
				created = len(next.Expenses) - len(s.Expenses)
				return next
			}); err != nil {
				return err
			}
			from, to := core.DateToISO(start), core.DateToISO(end)
			slog.DebugContext(cmd.Context(), "Expanded plan",
				append(log.NewFields().
					WithComponent(log.ComponentCLI).
					WithUser(app.user).
					WithOperation(log.OpExpand).
					WithRange(from, to).
					ToSlice(), log.FieldCreated, created)...)
			app.printf("  %d gastos creados (%s → %s)\n", created, from, to)
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}

func newPlanPreviewCmd(app *App) *cobra.Command {
	var rf rangeFlags
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show what plan expand would create",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, end, err := rf.resolve(app.today())
			if err != nil {
				return err
			}
			snap, err := app.load(cmd.Context())
			if err != nil {
				return err
			}
			occ := ledger.Preview(snap.State, start, end)
			if len(occ) == 0 {
				app.println(RenderMuted("Nada nuevo que generar."))
				return nil
			}
			app.println(RenderOccurrences(app.Money, occ))
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}

// RenderOccurrences renders pending plan occurrences with their total.
func RenderOccurrences(m core.MoneyFormatter, occ []ledger.Occurrence) string {
	rows := make([][]string, 0, len(occ)+2)
	amounts := make([]float64, 0, len(occ))
	for _, o := range occ {
		rows = append(rows, []string{o.Date, o.Title, o.Category, m.Format(o.Amount)})
		amounts = append(amounts, o.Amount)
	}
	rows = append(rows, []string{"---"}, []string{"Total", "", "", m.Format(core.SumMoney(amounts...))})
	return RenderTable(Table{
		Title:      fmt.Sprintf("Vista previa (%d)", len(occ)),
		Headers:    []string{"Fecha", "Título", "Categoría", "Monto"},
		Rows:       rows,
		RightAlign: map[int]bool{3: true},
	})
}

func planRuleIDs(s core.LedgerState) []string {
	ids := make([]string, len(s.PlanRules))
	for i, r := range s.PlanRules {
		ids[i] = r.ID
	}
	return ids
}

func findPlanRule(s core.LedgerState, id string) core.PlanRule {
	for _, r := range s.PlanRules {
		if r.ID == id {
			return r
		}
	}
	return core.PlanRule{}
}

func newBudgetCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage legacy weekly and monthly budget rules",
	}

	var frequency, amount, title, category, days string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a budget rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := parseCadence(frequency)
			if err != nil {
				return err
			}
			if c == core.Daily {
				return errors.New("budget rules are weekly or monthly; use plan add for daily rules")
			}
			v, err := ParseAmountFlag(amount)
			if err != nil {
				return err
			}
			d, err := ParseDays(days)
			if err != nil {
				return err
			}
			// budget days are weekdays for both frequencies
			if err := core.ValidateDays(core.Weekly, d); err != nil {
				return err
			}
			in := ledger.BudgetRuleInput{
				Frequency: c,
				Amount:    v,
				Category:  categoryOrDefault(category),
				Title:     strings.TrimSpace(title),
				Days:      d,
			}
			if _, err := app.apply(cmd.Context(), func(s core.LedgerState) core.LedgerState {
				return ledger.AddBudgetRule(s, in)
			}); err != nil {
				return err
			}
			app.printf("  Presupuesto %q (%s, %s) creado\n", in.Title, c, FormatDays(core.Weekly, d))
			return nil
		},
	}
	add.Flags().StringVar(&frequency, "frequency", string(core.Weekly), "weekly or monthly")
	add.Flags().StringVarP(&amount, "amount", "a", "", "Amount of each occurrence")
	add.Flags().StringVarP(&title, "title", "t", "", "Title of generated expenses")
	add.Flags().StringVarP(&category, "category", "c", "", "Category of generated expenses")
	add.Flags().StringVar(&days, "days", "", "Weekdays 0-6, comma separated, or a preset")
	_ = add.MarkFlagRequired("amount")

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a budget rule; expenses it generated stay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := app.load(cmd.Context())
			if err != nil {
				return err
			}
			ids := make([]string, len(snap.State.Budgets))
			for i, b := range snap.State.Budgets {
				ids[i] = b.ID
			}
			id, err := matchID(ids, args[0])
			if err != nil {
				return err
			}
			if _, err := app.apply(cmd.Context(), func(s core.LedgerState) core.LedgerState {
				return ledger.DeleteBudgetRule(s, id)
			}); err != nil {
				return err
			}
			app.printf("  Presupuesto %s eliminado\n", ShortID(id))
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List budget rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := app.load(cmd.Context())
			if err != nil {
				return err
			}
			if len(snap.State.Budgets) == 0 {
				app.println(RenderMuted("No hay presupuestos."))
				return nil
			}
			rows := make([][]string, 0, len(snap.State.Budgets))
			for _, b := range snap.State.Budgets {
				rows = append(rows, []string{
					ShortID(b.ID), b.Title, b.Category, string(b.Frequency),
					FormatDays(core.Weekly, b.Days), app.money(b.Amount),
				})
			}
			app.println(RenderTable(Table{
				Title:      "Presupuestos",
				Headers:    []string{"ID", "Título", "Categoría", "Frecuencia", "Días", "Monto"},
				Rows:       rows,
				RightAlign: map[int]bool{5: true},
			}))
			return nil
		},
	}

	var rf rangeFlags
	expand := &cobra.Command{
		Use:   "expand",
		Short: "Create the pending expenses of budget rules for a day, week or month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, end, err := rf.resolve(app.today())
			if err != nil {
				return err
			}
			created := 0
			if _, err := app.apply(cmd.Context(), func(s core.LedgerState) core.LedgerState {
				next := ledger.ExpandBudgets(s, start, end)
				created = len(next.Expenses) - len(s.Expenses)
				return next
			}); err != nil {
				return err
			}
			app.printf("  %d gastos creados (%s → %s)\n", created, core.DateToISO(start), core.DateToISO(end))
			return nil
		},
	}
	rf.register(expand)

	cmd.AddCommand(add, del, list, expand)
	return cmd
}
