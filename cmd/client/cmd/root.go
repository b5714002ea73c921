package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gophistory/cmd/client/cmd/auth"
	"gophistory/cmd/client/cmd/history"
	"gophistory/cmd/client/cmd/key"
	"gophistory/cmd/client/cmd/shell"
	"gophistory/cmd/client/cmd/store"
	"gophistory/cmd/client/cmd/sync"
	"gophistory/cmd/client/cmd/types"
	"gophistory/internal/app/client"
	"gophistory/internal/app/client/config"
	"gophistory/internal/utils/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
	app     *client.App
)

var rootCmd = &cobra.Command{
	Use:   "gophistory",
	Short: "Gophistory - история команд оболочки с синхронизацией между устройствами",
	Long: `Gophistory записывает историю команд оболочки в локальный журнал и
синхронизирует его между устройствами через relay.

Записи шифруются на клиенте, relay хранит только зашифрованные данные.
Для подключения к оболочке выполните: eval "$(gophistory init zsh)"`,
	PersistentPreRunE:  setupApp,
	PersistentPostRunE: closeApp,
	SilenceUsage:       true,
	SilenceErrors:      true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if app != nil {
		_ = app.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[types.AnnotationNoApp] != "" {
		return nil
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	// stdout занят выводом команд, поэтому логи идут в stderr
	level := cfg.LogLevel
	switch {
	case debug:
		level = "debug"
	case level == "":
		level = "warn"
	}
	log := logger.NewWriter(cfg.Env, os.Stderr, level)

	app, err = client.New(cfg, log)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}

	cmd.SetContext(context.WithValue(cmd.Context(), types.ClientAppKey, app))
	return nil
}

func closeApp(_ *cobra.Command, _ []string) error {
	if app == nil {
		return nil
	}

	err := app.Close()
	app = nil
	if err != nil {
		return fmt.Errorf("ошибка закрытия хранилищ: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "конфигурационный файл")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "включить отладочный режим")

	rootCmd.AddCommand(history.HistoryCmd)
	history.HistoryCmd.AddCommand(history.StartCmd)
	history.HistoryCmd.AddCommand(history.EndCmd)
	history.HistoryCmd.AddCommand(history.ListCmd)
	history.HistoryCmd.AddCommand(history.LastCmd)
	history.HistoryCmd.AddCommand(history.DeleteCmd)
	history.HistoryCmd.AddCommand(history.PruneCmd)
	history.HistoryCmd.AddCommand(history.DedupCmd)

	rootCmd.AddCommand(store.StoreCmd)
	store.StoreCmd.AddCommand(store.StatusCmd)
	store.StoreCmd.AddCommand(store.RebuildCmd)
	store.StoreCmd.AddCommand(store.VerifyCmd)

	rootCmd.AddCommand(key.KeyCmd)
	key.KeyCmd.AddCommand(key.InitCmd)
	key.KeyCmd.AddCommand(key.ExportCmd)
	key.KeyCmd.AddCommand(key.ImportCmd)

	rootCmd.AddCommand(auth.RegisterCmd)
	rootCmd.AddCommand(auth.LoginCmd)
	rootCmd.AddCommand(auth.LogoutCmd)
	rootCmd.AddCommand(auth.StatusCmd)

	rootCmd.AddCommand(sync.SyncCmd)
	rootCmd.AddCommand(shell.InitCmd)
}
