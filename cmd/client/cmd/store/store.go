package store

import (
	"fmt"
	"text/tabwriter"

	"gophistory/cmd/client/cmd/types"
	"gophistory/internal/app/client"
	"gophistory/internal/domain/record"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// StoreCmd родительская команда для работы с локальным журналом
var StoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Управление локальным журналом записей",
}

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Показать статус локального журнала и relay",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		st, err := app.StoreStatus(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка чтения статуса: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Устройство: %s\n", st.Host)
		fmt.Fprintf(out, "Команд в истории: %d\n\n", st.Entries)

		streams := st.Local.Streams()
		if st.Remote != nil {
			for _, s := range st.Remote.Hosts.Streams() {
				if _, ok := st.Local.Get(s.Host, s.Tag); !ok {
					streams = append(streams, s)
				}
			}
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "HOST\tTAG\tLOCAL\tREMOTE\t")
		for _, s := range streams {
			mark := ""
			if s.Host == st.Host {
				mark = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.Host, s.Tag, next(st.Local.Get(s.Host, s.Tag)), remoteNext(st, s.Host, s.Tag), mark)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if st.RemoteErr != nil {
			fmt.Fprintln(out)
			fmt.Fprintln(out, color.YellowString("relay недоступен: %v", st.RemoteErr))
		}
		return nil
	},
}

// next число записей потока, "-" для отсутствующего
func next(idx record.Idx, ok bool) string {
	if !ok {
		return "-"
	}
	return fmt.Sprint(idx + 1)
}

func remoteNext(st *client.StoreStatus, host record.HostID, tag record.Tag) string {
	if st.Remote == nil {
		return "?"
	}
	return next(st.Remote.Hosts.Get(host, tag))
}

var RebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Пересобрать историю из журнала",
	Long: `Очищает локальную базу истории и заново применяет все записи журнала.
Записи, которые не расшифровываются текущим ключом, пропускаются.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		res, err := app.Rebuild(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка пересборки: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Применено записей: %d, пропущено: %d\n", res.Applied, res.Skipped)
		return nil
	},
}

var VerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Проверить, что все записи расшифровываются текущим ключом",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		ok, failed, err := app.Verify(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка проверки: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, rec := range failed {
			fmt.Fprintf(out, "%s %s/%s idx %d\n", color.RedString("✗"), rec.Host, rec.Tag, rec.Idx)
		}
		fmt.Fprintf(out, "Проверено записей: %d, ошибок: %d\n", ok+len(failed), len(failed))

		if len(failed) > 0 {
			return fmt.Errorf("%d записей не расшифровываются текущим ключом", len(failed))
		}
		return nil
	},
}
