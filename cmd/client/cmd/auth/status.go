package auth

import (
	"fmt"
	"time"

	"gophistory/cmd/client/cmd/types"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Показать состояние входа и синхронизации",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		cfg := app.Config()
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "Устройство:   %s\n", app.Host())

		if !cfg.SyncEnabled {
			fmt.Fprintln(out, "Синхронизация: отключена")
			return nil
		}

		fmt.Fprintf(out, "Relay:        %s\n", cfg.SyncAddress)
		if app.LoggedIn() {
			fmt.Fprintf(out, "Вход:         %s\n", color.GreenString("выполнен"))
		} else {
			fmt.Fprintf(out, "Вход:         %s\n", color.YellowString("не выполнен"))
		}

		last := "никогда"
		if t := app.LastSync(); !t.IsZero() {
			last = t.Local().Format(time.DateTime)
		}
		fmt.Fprintf(out, "Синхронизация: %s\n", last)
		if v := app.ServerVersion(); v != "" {
			fmt.Fprintf(out, "Протокол relay: %s\n", v)
		}

		return nil
	},
}
