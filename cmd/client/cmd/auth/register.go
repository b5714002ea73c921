package auth

import (
	"fmt"

	"gophistory/cmd/client/cmd/prompt"
	"gophistory/cmd/client/cmd/types"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var RegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Зарегистрировать учётную запись на relay",
	Long: `Создаёт учётную запись на relay и сразу выполняет вход.

Одна учётная запись объединяет все ваши устройства. Пароль учётной записи
не связан с ключом шифрования: relay никогда не видит историю в открытом виде.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		login, err := prompt.Line("Логин: ")
		if err != nil {
			return err
		}

		password, err := prompt.NewPassword("Пароль: ")
		if err != nil {
			return err
		}

		if err := app.Register(cmd.Context(), login, password); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Учётная запись создана, вход выполнен"))
		return nil
	},
}
