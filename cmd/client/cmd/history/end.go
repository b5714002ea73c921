package history

import (
	"fmt"
	"time"

	"gophistory/cmd/client/cmd/types"

	"github.com/spf13/cobra"
)

var (
	exitCode int64
	duration int64
)

var EndCmd = &cobra.Command{
	Use:   "end <id>",
	Short: "Завершить запись команды",
	Long: `Записывает код возврата и длительность команды, сохраняет её в журнал
и при необходимости запускает фоновую синхронизацию.

Без --duration длительность считается от момента history start.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		var d *time.Duration
		if cmd.Flags().Changed("duration") {
			v := time.Duration(duration)
			d = &v
		}

		if err := app.End(cmd.Context(), args[0], exitCode, d); err != nil {
			return fmt.Errorf("ошибка завершения команды: %w", err)
		}

		// хук оболочки не ждёт синхронизации, но процесс должен её дождаться
		app.Wait()
		return nil
	},
}

func init() {
	EndCmd.Flags().Int64VarP(&exitCode, "exit", "e", 0, "код возврата команды")
	EndCmd.Flags().Int64VarP(&duration, "duration", "d", 0, "длительность команды в наносекундах")
}
