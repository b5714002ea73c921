package sync

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gophistory/cmd/client/cmd/types"
	"gophistory/internal/app/client"
	"gophistory/internal/domain/record"
	"gophistory/internal/version"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	forceSync bool
	watch     bool
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Синхронизировать историю с relay",
	Long: `Выгружает на relay новые записи этого устройства и скачивает записи
других устройств.

С --force после синхронизации история пересобирается из журнала целиком,
например после импорта ключа. С --watch синхронизация повторяется при каждом
изменении журнала, пока команда не будет прервана.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()

		if watch {
			fmt.Fprintln(out, "Ожидание изменений журнала, Ctrl+C для выхода")
			return app.Watch(cmd.Context(), func(res *client.SyncResult, err error) {
				printResult(out, res, err)
			})
		}

		res, err := app.Sync(cmd.Context())
		if err != nil {
			return describe(err)
		}
		printResult(out, res, nil)

		if forceSync {
			rebuilt, err := app.Rebuild(cmd.Context())
			if err != nil {
				return fmt.Errorf("ошибка пересборки: %w", err)
			}
			fmt.Fprintf(out, "История пересобрана: %d записей, пропущено %d\n", rebuilt.Applied, rebuilt.Skipped)
		}

		return nil
	},
}

func printResult(out io.Writer, res *client.SyncResult, err error) {
	if err != nil {
		fmt.Fprintln(out, color.RedString("✗ %v", describe(err)))
		return
	}

	fmt.Fprintf(out, "%s выгружено %d, скачано %d за %v\n",
		color.GreenString("✓"), res.Uploaded, res.Downloaded, res.Duration.Round(time.Millisecond))

	if res.Skipped > 0 {
		fmt.Fprintln(out, color.YellowString("  не расшифровано записей: %d, проверьте ключ (gophistory store verify)", res.Skipped))
	}
}

// describe добавляет к ошибке подсказку для пользователя
func describe(err error) error {
	var (
		mismatch *record.VersionMismatchError
		netErr   *record.NetworkError
	)

	switch {
	case errors.As(err, &mismatch):
		return fmt.Errorf("версия relay %s несовместима с клиентом %s, %s: %w",
			mismatch.Server, mismatch.Client, upgradeHint(mismatch), err)
	case errors.As(err, &netErr):
		return fmt.Errorf("relay недоступен, синхронизация будет повторена позже: %w", err)
	case errors.Is(err, client.ErrSyncInProgress):
		return err
	}
	return fmt.Errorf("ошибка синхронизации: %w", err)
}

// upgradeHint какую сторону обновлять
func upgradeHint(mismatch *record.VersionMismatchError) string {
	if version.Newer(mismatch.Client, mismatch.Server) {
		return "обновите gophistory"
	}
	return "обновите relay"
}

func init() {
	SyncCmd.Flags().BoolVarP(&forceSync, "force", "f", false, "пересобрать историю из журнала после синхронизации")
	SyncCmd.Flags().BoolVarP(&watch, "watch", "w", false, "синхронизировать при каждом изменении журнала")
}
