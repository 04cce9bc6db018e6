package cli

import (
	"github.com/spf13/cobra"

	"billetera/internal/core"
	"billetera/internal/ledger"
	"billetera/internal/services"
)

func newTransportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transport",
		Short: "Manage the prepaid transport card",
	}

	var rechargeIn, tripIn transportFlags

	recharge := &cobra.Command{
		Use:   "recharge",
		Short: "Top up the card; also recorded as a paid expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := rechargeIn.input(app.today())
			if err != nil {
				return err
			}
			snap, err := app.apply(cmd.Context(), func(s core.LedgerState) core.LedgerState {
				return ledger.AddTransportRecharge(s, in)
			})
			if err != nil {
				return err
			}
			app.printf("  Recarga de %s. Saldo de la tarjeta: %s\n", app.money(in.Amount), app.money(snap.State.Transport.Balance))
			return nil
		},
	}
	rechargeIn.register(recharge)

	trip := &cobra.Command{
		Use:   "trip",
		Short: "Pay a trip with the card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := tripIn.input(app.today())
			if err != nil {
				return err
			}
			var rejected error
			snap, err := app.apply(cmd.Context(), payTrip(in, &rejected))
			if err != nil {
				return err
			}
			if rejected != nil {
				return rejected
			}
			app.printf("  Viaje de %s. Saldo de la tarjeta: %s\n", app.money(in.Amount), app.money(snap.State.Transport.Balance))
			return nil
		},
	}
	tripIn.register(trip)

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the card balance and its history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := app.load(cmd.Context())
			if err != nil {
				return err
			}
			app.println(RenderTransport(app.Money, snap.State.Transport))
			return nil
		},
	}

	cmd.AddCommand(recharge, trip, show)
	return cmd
}

// payTrip checks the card balance against the state being mutated, so two
// concurrent trips cannot both spend the same balance. A rejected trip
// leaves the state untouched and reports the reason through rejected.
func payTrip(in core.TransportInput, rejected *error) services.Mutation {
	return func(s core.LedgerState) core.LedgerState {
		// may run twice on conflict
		*rejected = core.ValidateTrip(s.Transport.Balance, in.Amount)
		if *rejected != nil {
			return s
		}
		return ledger.AddTransportTrip(s, in)
	}
}

type transportFlags struct {
	amount, date, note string
}

func (f *transportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.amount, "amount", "a", "", "Amount")
	cmd.Flags().StringVarP(&f.date, "date", "d", "", "Date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVarP(&f.note, "note", "n", "", "Free-form note")
	_ = cmd.MarkFlagRequired("amount")
}

func (f *transportFlags) input(today string) (core.TransportInput, error) {
	v, err := ParseAmountFlag(f.amount)
	if err != nil {
		return core.TransportInput{}, err
	}
	d, err := ResolveDate(f.date, today)
	if err != nil {
		return core.TransportInput{}, err
	}
	in := core.TransportInput{Date: d, Amount: v, Note: f.note}
	if err := in.Validate(); err != nil {
		return core.TransportInput{}, err
	}
	return in, nil
}

// RenderTransport renders the card balance followed by its events.
func RenderTransport(m core.MoneyFormatter, t core.TransportState) string {
	rows := [][]string{
		{"Saldo", RenderSignedAmount(t.Balance, m.Format(t.Balance))},
	}
	out := RenderKeyValue("Tarjeta de transporte", rows)
	if len(t.Events) == 0 {
		return out + RenderMuted("Sin movimientos.")
	}

	events := make([][]string, 0, len(t.Events))
	for _, ev := range t.Events {
		amount := m.Format(ev.Amount)
		kind := "Recarga"
		if ev.Type == core.Trip {
			amount = m.Format(-ev.Amount)
			kind = "Viaje"
		}
		events = append(events, []string{ev.Date, kind, amount, ev.Note})
	}
	return out + RenderTable(Table{
		Headers:    []string{"Fecha", "Tipo", "Monto", "Nota"},
		Rows:       events,
		RightAlign: map[int]bool{2: true},
	})
}
