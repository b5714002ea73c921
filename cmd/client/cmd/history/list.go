package history

import (
	"fmt"
	"os"
	"slices"

	"gophistory/cmd/client/cmd/types"
	"gophistory/internal/app/client"
	"gophistory/internal/app/client/format"
	domainhistory "gophistory/internal/domain/history"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type outputFlags struct {
	human   bool
	cmdOnly bool
	print0  bool
	format  string
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.human, "human", false, "длительность и время в удобочитаемом виде")
	cmd.Flags().BoolVar(&f.cmdOnly, "cmd-only", false, "выводить только команду")
	cmd.Flags().BoolVar(&f.print0, "print0", false, "разделять записи символом NUL")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "шаблон строки: {time} {command} {duration} {directory} {exit} {host} {user} {relativetime}")
}

func (f *outputFlags) render(cmd *cobra.Command, app *client.App, entries []*domainhistory.History) error {
	cfg := app.Config()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	tmpl := f.format
	if tmpl == "" && !f.human {
		tmpl = cfg.HistoryFormat
	}

	return format.Render(cmd.OutOrStdout(), entries, format.Options{
		Mode:     format.ModeFromFlags(f.human, f.cmdOnly),
		Format:   tmpl,
		Print0:   f.print0,
		Escape:   term.IsTerminal(int(os.Stdout.Fd())),
		Location: loc,
	})
}

var (
	listOutput     outputFlags
	listSession    bool
	listCwd        bool
	listReverse    bool
	includeDeleted bool
	listLimit      int
)

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Показать историю команд",
	Long: `Выводит историю, начиная со старых команд. Набор записей по умолчанию
определяется filter_mode, --session и --cwd сужают его.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		// limit отбирает самые новые записи, порядок вывода меняется после выборки
		entries, err := app.List(cmd.Context(), client.ListOptions{
			Session:        listSession,
			Cwd:            listCwd,
			IncludeDeleted: includeDeleted,
			Limit:          listLimit,
		})
		if err != nil {
			return fmt.Errorf("ошибка чтения истории: %w", err)
		}
		if !listReverse {
			slices.Reverse(entries)
		}

		return listOutput.render(cmd, app, entries)
	},
}

var lastOutput outputFlags

var LastCmd = &cobra.Command{
	Use:   "last",
	Short: "Показать последнюю завершённую команду",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		h, err := app.Last(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка чтения истории: %w", err)
		}

		return lastOutput.render(cmd, app, []*domainhistory.History{h})
	},
}

func init() {
	listOutput.register(ListCmd)
	ListCmd.Flags().BoolVarP(&listSession, "session", "s", false, "только текущая сессия оболочки")
	ListCmd.Flags().BoolVarP(&listCwd, "cwd", "c", false, "только текущий каталог")
	ListCmd.Flags().BoolVarP(&listReverse, "reverse", "r", false, "новые команды первыми")
	ListCmd.Flags().BoolVar(&includeDeleted, "include-deleted", false, "показывать удалённые записи")
	ListCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "не больше n записей")

	lastOutput.register(LastCmd)
}
