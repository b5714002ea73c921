package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"gophistory/internal/infrastructure/migration"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations
var migrations embed.FS

const (
	recordsMigrations = "migrations/records"
	historyMigrations = "migrations/history"
)

// openSQLite применяет миграции и открывает базу в режиме WAL.
// _txlock=immediate берёт блокировку записи в начале транзакции.
func openSQLite(path, migrationsDir string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога данных: %w", err)
	}

	mg := migration.NewMigration(migrations, migrationsDir, migration.SQLiteURL(path), nil)
	if err := mg.Up(); err != nil {
		return nil, fmt.Errorf("ошибка миграции %s: %w", path, err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы данных: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка открытия базы данных: %w", err)
	}

	return db, nil
}
