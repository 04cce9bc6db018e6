package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"billetera/internal/config"
	"billetera/internal/core"
	"billetera/internal/log"
	"billetera/internal/services"
)

var (
	ErrConfirmationRequired = errors.New("confirmation required: pass --yes")
	ErrNoMatch              = errors.New("no entry matches id")
	ErrAmbiguousID          = errors.New("id prefix matches more than one entry")
)

// OpenFunc builds the ledger service on first use and returns its cleanup.
type OpenFunc func(ctx context.Context) (*services.LedgerService, func() error, error)

// App carries what every command needs. Tests fill Ledgers directly;
// the binary leaves it nil and sets Open.
type App struct {
	Ledgers     *services.LedgerService
	Open        OpenFunc
	Config      *config.Config
	Money       core.MoneyFormatter
	DefaultUser string
	Out         io.Writer
	In          io.Reader
	Now         func() time.Time

	user    string
	cleanup func() error
}

func (a *App) today() string {
	return core.DateToISO(a.now())
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.Out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.Out, format, args...)
}

func (a *App) money(v float64) string {
	return a.Money.Format(v)
}

// apply runs fn against the current user's ledger.
func (a *App) apply(ctx context.Context, fn services.Mutation) (services.Snapshot, error) {
	return a.Ledgers.Apply(ctx, a.user, fn)
}

func (a *App) load(ctx context.Context) (services.Snapshot, error) {
	return a.Ledgers.Load(ctx, a.user)
}

// NewRootCommand builds the billetera command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	if app.Out == nil {
		app.Out = os.Stdout
	}
	if app.In == nil {
		app.In = os.Stdin
	}

	root := &cobra.Command{
		Use:           "billetera",
		Short:         "Personal budgeting ledger",
		Long:          "Track an initial balance, incomes, planned and realized expenses, recurring plan rules and a transport card.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SetContext(log.StartTrace(cmd.Context(), "cli"))
			if cmd.Annotations[skipLedger] != "" {
				return nil
			}
			app.user = strings.TrimSpace(app.user)
			if app.user == "" {
				app.user = app.DefaultUser
			}
			if app.user == "" {
				return errors.New("user id cannot be empty")
			}
			if app.Ledgers != nil {
				return nil
			}
			if app.Open == nil {
				return errors.New("no ledger backend configured")
			}
			ledgers, cleanup, err := app.Open(cmd.Context())
			if err != nil {
				return err
			}
			app.Ledgers, app.cleanup = ledgers, cleanup
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return app.close()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTotals(cmd.Context(), app)
		},
	}
	root.SetOut(app.Out)
	root.SetIn(app.In)

	root.PersistentFlags().StringVarP(&app.user, "user", "u", "", "Ledger owner (default from BILLETERA_USER)")

	root.AddCommand(
		newTotalsCmd(app),
		newIncomeCmd(app),
		newBalanceCmd(app),
		newExpenseCmd(app),
		newPlanCmd(app),
		newBudgetCmd(app),
		newTransportCmd(app),
		newFilterCmd(app),
		newSummaryCmd(app),
		newDatesCmd(app),
		newExportCmd(app),
		newImportCmd(app),
		newResetCmd(app),
		newConfigCmd(app),
	)

	return root
}

// config returns the loaded configuration, or the defaults when none was
// supplied.
func (a *App) config() *config.Config {
	if a.Config != nil {
		return a.Config
	}
	return config.Default()
}

func (a *App) close() error {
	if a.cleanup == nil {
		return nil
	}
	err := a.cleanup()
	a.cleanup = nil
	return err
}

// Execute is the entry point used by cmd/billetera. It returns the process
// exit code.
func Execute() int {
	LoadEnvFile()

	cfg, err := LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	logger := SetupLogger(cfg.LogLevel, log.ComponentCLI)

	app := &App{
		Config:      cfg,
		Money:       core.NewMoneyFormatter(cfg.CurrencySymbol, cfg.Locale),
		DefaultUser: cfg.UserID,
		Open:        openFromConfig(logger, cfg),
	}

	root := NewRootCommand(app)
	if err := root.ExecuteContext(context.Background()); err != nil {
		app.close()
		fmt.Fprintln(os.Stderr, RenderWarning(err.Error()))
		return 1
	}
	return 0
}

func openFromConfig(logger *log.Logger, cfg *config.Config) OpenFunc {
	return func(ctx context.Context) (*services.LedgerService, func() error, error) {
		res, err := OpenBackend(ctx, logger.Logger, cfg)
		if err != nil {
			return nil, nil, err
		}
		return res.Ledgers, res.Cleanup, nil
	}
}

// requireYes guards destructive commands.
func requireYes(yes bool, action string) error {
	if !yes {
		return fmt.Errorf("%s: %w", action, ErrConfirmationRequired)
	}
	return nil
}

// matchID resolves a full id or a unique prefix against ids.
func matchID(ids []string, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", ErrNoMatch
	}
	found := ""
	for _, id := range ids {
		if id == prefix {
			return id, nil
		}
		if strings.HasPrefix(id, prefix) {
			if found != "" {
				return "", fmt.Errorf("%s: %w", prefix, ErrAmbiguousID)
			}
			found = id
		}
	}
	if found == "" {
		return "", fmt.Errorf("%s: %w", prefix, ErrNoMatch)
	}
	return found, nil
}

func requirePositive(v float64) error {
	if v <= 0 {
		return fmt.Errorf("amount must be positive: %w", core.ErrInvalidAmount)
	}
	return nil
}
