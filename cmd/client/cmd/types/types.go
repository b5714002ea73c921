package types

import (
	"errors"

	"gophistory/internal/app/client"

	"github.com/spf13/cobra"
)

type contextKey string

// ClientAppKey ключ приложения в контексте команды
const ClientAppKey contextKey = "app"

// App достаёт приложение, созданное в PersistentPreRunE корневой команды
func App(cmd *cobra.Command) (*client.App, error) {
	app, ok := cmd.Context().Value(ClientAppKey).(*client.App)
	if !ok || app == nil {
		return nil, errors.New("приложение не инициализировано")
	}
	return app, nil
}

// AnnotationNoApp команды с этой аннотацией не открывают хранилища
const AnnotationNoApp = "no_app"
