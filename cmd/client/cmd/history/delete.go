package history

import (
	"fmt"

	"gophistory/cmd/client/cmd/types"

	"github.com/spf13/cobra"
)

var DeleteCmd = &cobra.Command{
	Use:   "delete <id...>",
	Short: "Удалить записи истории",
	Long: `Добавляет в журнал записи удаления. После синхронизации команды
исчезнут из истории на всех устройствах.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		n, err := app.Delete(cmd.Context(), args...)
		if err != nil {
			return fmt.Errorf("ошибка удаления: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Удалено записей: %d\n", n)
		return nil
	},
}

var dryRun bool

var PruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Удалить записи, которые не проходят текущие фильтры",
	Long: `Удаляет из истории команды, которые были бы отброшены текущими
history_filter, cwd_filter и secrets_filter.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		candidates, err := app.Prune(cmd.Context(), dryRun)
		if err != nil {
			return fmt.Errorf("ошибка очистки: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, h := range candidates {
			fmt.Fprintf(out, "%s\t%s\n", h.ID, h.Command)
		}

		if dryRun {
			fmt.Fprintf(out, "Будет удалено записей: %d\n", len(candidates))
		} else {
			fmt.Fprintf(out, "Удалено записей: %d\n", len(candidates))
		}
		return nil
	},
}

func init() {
	PruneCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "только показать, что будет удалено")
}
