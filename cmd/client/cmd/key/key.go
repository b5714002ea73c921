package key

import (
	"errors"
	"fmt"

	"gophistory/cmd/client/cmd/prompt"
	"gophistory/cmd/client/cmd/types"
	"gophistory/internal/app/client/crypto"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// KeyCmd родительская команда для работы с ключом шифрования
var KeyCmd = &cobra.Command{
	Use:   "key",
	Short: "Управление ключом шифрования",
	Long: `Все устройства одной учётной записи должны использовать один ключ.
Создайте ключ на первом устройстве и перенесите его на остальные
командами key export и key import.`,
}

var (
	withPassphrase bool
	force          bool
)

func readPassphrase() (string, error) {
	if !withPassphrase {
		return "", nil
	}
	return prompt.NewPassword("Пароль ключа: ")
}

func keyExists(err error) error {
	if errors.Is(err, crypto.ErrKeyExists) {
		return errors.New("ключ уже существует, используйте --force для замены")
	}
	return err
}

var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "Создать новый ключ шифрования",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		passphrase, err := readPassphrase()
		if err != nil {
			return err
		}

		if err := app.KeyInit(passphrase, force); err != nil {
			return keyExists(err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, color.GreenString("✓ Ключ создан"))
		fmt.Fprintln(out, "Перенесите его на другие устройства: gophistory key export")
		return nil
	},
}

var ExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Вывести ключ для переноса на другое устройство",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		encoded, err := app.KeyExport()
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), encoded)
		return nil
	},
}

var ImportCmd = &cobra.Command{
	Use:   "import <key>",
	Short: "Сохранить ключ, экспортированный на другом устройстве",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		passphrase, err := readPassphrase()
		if err != nil {
			return err
		}

		if err := app.KeyImport(args[0], passphrase, force); err != nil {
			return keyExists(err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Ключ импортирован"))
		fmt.Fprintln(cmd.OutOrStdout(), "Если история уже скачана, выполните gophistory store rebuild")
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{InitCmd, ImportCmd} {
		c.Flags().BoolVarP(&withPassphrase, "passphrase", "p", false, "защитить файл ключа паролем")
		c.Flags().BoolVar(&force, "force", false, "заменить существующий ключ")
	}
}
