package history

import (
	"fmt"
	"strings"

	"gophistory/cmd/client/cmd/types"

	"github.com/spf13/cobra"
)

var StartCmd = &cobra.Command{
	Use:   "start -- <command...>",
	Short: "Начать запись команды",
	Long: `Сохраняет запущенную команду и печатает её id для history end.

Команды, которые не проходят фильтры (пустые, с ведущим пробелом,
history_filter, cwd_filter, секреты), не сохраняются, id не печатается.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		id, err := app.Start(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("ошибка записи команды: %w", err)
		}

		if id != "" {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}
