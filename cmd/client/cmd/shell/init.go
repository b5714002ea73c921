package shell

import (
	_ "embed"
	"fmt"
	"strings"

	"gophistory/cmd/client/cmd/types"
	"gophistory/internal/app/client"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	//go:embed gophistory.zsh
	zshHook string

	//go:embed gophistory.bash
	bashHook string
)

var InitCmd = &cobra.Command{
	Use:   "init <zsh|bash>",
	Short: "Вывести хуки для подключения к оболочке",
	Long: `Печатает скрипт, который записывает каждую команду оболочки.
Добавьте в ~/.zshrc или ~/.bashrc:

  eval "$(gophistory init zsh)"`,
	Args:        cobra.ExactArgs(1),
	ValidArgs:   []string{"zsh", "bash"},
	Annotations: map[string]string{types.AnnotationNoApp: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		script, err := Script(args[0])
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), script)
		return nil
	},
}

// Script скрипт хуков для оболочки с новым идентификатором сессии
func Script(shell string) (string, error) {
	var hook string
	switch shell {
	case "zsh":
		hook = zshHook
	case "bash":
		hook = bashHook
	default:
		return "", fmt.Errorf("неподдерживаемая оболочка %q, доступны zsh и bash", shell)
	}

	session, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("export %s=%s\n", client.SessionEnv, strings.ReplaceAll(session.String(), "-", "")) + hook, nil
}
