package auth

import (
	"fmt"

	"gophistory/cmd/client/cmd/prompt"
	"gophistory/cmd/client/cmd/types"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Войти в учётную запись relay",
	Long: `Получает токен relay и сохраняет его локально для синхронизации.

На новом устройстве импортируйте ключ шифрования (gophistory key import),
иначе записи других устройств не расшифруются.`,
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

		password, err := prompt.Password("Пароль: ")
		if err != nil {
			return err
		}

		if err := app.Login(cmd.Context(), login, password); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Вход выполнен"))
		return nil
	},
}

var LogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Выйти из учётной записи relay",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		if err := app.Logout(cmd.Context()); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Выход выполнен")
		return nil
	},
}
