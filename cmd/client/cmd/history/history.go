package history

import (
	"github.com/spf13/cobra"
)

// HistoryCmd родительская команда для работы с историей команд
var HistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Управление историей команд",
	Long: `Запись, просмотр и удаление истории команд оболочки.

start и end вызываются хуками оболочки (gophistory init), остальные команды
предназначены для пользователя.`,
}
