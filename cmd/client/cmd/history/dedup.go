package history

import (
	"fmt"
	"time"

	"gophistory/cmd/client/cmd/types"

	"github.com/spf13/cobra"
)

var dedupOutput = outputFlags{human: true}

var (
	dedupBefore string
	dupKeep     int
	dedupDryRun bool
)

var DedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Удалить повторы команд",
	Long: `Удаляет записи с одинаковыми командой, каталогом и хостом, добавленные
раньше --before, оставляя --dupkeep самых новых копий каждой команды.

--before принимает дату (2024-05-01, "2024-05-01 12:00:00", RFC 3339),
длительность назад от текущего момента (72h) или now.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		loc, err := app.Config().Location()
		if err != nil {
			return err
		}

		before, err := parseBefore(dedupBefore, loc, time.Now())
		if err != nil {
			return err
		}

		dups, err := app.Dedup(cmd.Context(), before, dupKeep, dedupDryRun)
		if err != nil {
			return fmt.Errorf("ошибка удаления повторов: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(dups) == 0 {
			fmt.Fprintln(out, "Повторов не найдено")
			return nil
		}

		if dedupDryRun {
			fmt.Fprintf(out, "Будет удалено повторов: %d\n", len(dups))
			return dedupOutput.render(cmd, app, dups)
		}

		fmt.Fprintf(out, "Удалено повторов: %d\n", len(dups))
		return nil
	},
}

var beforeLayouts = []string{
	time.RFC3339,
	time.DateTime,
	"2006-01-02 15:04",
	time.DateOnly,
}

// parseBefore разбирает границу --before в часовом поясе loc
func parseBefore(s string, loc *time.Location, now time.Time) (time.Time, error) {
	if s == "now" {
		return now, nil
	}

	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}

	for _, layout := range beforeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("не удалось разобрать дату %q", s)
}

func init() {
	DedupCmd.Flags().StringVarP(&dedupBefore, "before", "b", "", "удалять только записи, добавленные раньше этой даты")
	DedupCmd.Flags().IntVar(&dupKeep, "dupkeep", 0, "сколько самых новых копий каждой команды оставить")
	DedupCmd.Flags().BoolVarP(&dedupDryRun, "dry-run", "n", false, "только показать, что будет удалено")
	_ = DedupCmd.MarkFlagRequired("before")
	_ = DedupCmd.MarkFlagRequired("dupkeep")
}
