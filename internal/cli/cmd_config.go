package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"billetera/internal/config"
)

// skipLedger marks commands that run without opening the ledger backend.
const skipLedger = "billetera/skip-ledger"

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Show the effective configuration",
		Annotations: map[string]string{skipLedger: "true"},
		Args:        cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := app.config()
			path := config.Path()

			status := "using defaults (no config file)"
			if _, err := os.Stat(path); err == nil {
				status = "loaded"
			}

			app.println(RenderKeyValue("Configuración", [][]string{
				{"Archivo", path},
				{"Estado", status},
				{"---"},
				{"Backend", cfg.DataBackend},
				{"Base de datos", cfg.DBPath},
				{"Usuario", cfg.UserID},
				{"Moneda", cfg.CurrencySymbol + " (" + cfg.Locale + ")"},
				{"---"},
				{"AMQP", configured(cfg.AMQPURL != "")},
				{"Hoja de cálculo", configured(cfg.GoogleSpreadsheetID != "")},
				{"Horizonte de planes", cfg.PlanHorizon},
				{"Intervalo de planes", cfg.PlanInterval.String()},
				{"Caché", strconv.Itoa(cfg.CacheSize) + " / " + cfg.CacheTTL.String()},
			}))
			return nil
		},
	}

	var (
		path  string
		force bool
	)
	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Write the current settings to a TOML file",
		Annotations: map[string]string{skipLedger: "true"},
		Args:        cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if path == "" {
				path = config.Path()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists: %w", path, ErrConfirmationRequired)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("check config file: %w", err)
			}
			if err := config.Save(app.config(), path); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			app.printf("Configuración guardada en %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&path, "output", "o", "", "File to write (default: the config path)")
	initCmd.Flags().BoolVar(&force, "yes", false, "Overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}

func configured(ok bool) string {
	if ok {
		return "configurado"
	}
	return "no configurado"
}
