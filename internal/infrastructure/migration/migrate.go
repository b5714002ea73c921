package migration

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	// Blank import required for PostgreSQL driver registration for migrations
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	// Blank import required for SQLite driver registration for migrations
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migrator — интерфейс для самой библиотеки migrate.Migrate
type Migrator interface {
	Up() error
	Close() (error, error)
}

// MigrationEngine — фабрика для создания мигратора (чтобы не лезть в ФС и БД в тестах)
type MigrationEngine func(source fs.FS, dir, databaseURL string) (Migrator, error)

type Migration struct {
	source      fs.FS
	dir         string
	databaseURL string
	engine      MigrationEngine
}

// NewMigration создаёт миграцию из встроенных SQL файлов каталога dir
func NewMigration(source fs.FS, dir, databaseURL string, engine MigrationEngine) *Migration {
	if engine == nil {
		engine = DefaultEngine
	}

	return &Migration{
		source:      source,
		dir:         dir,
		databaseURL: databaseURL,
		engine:      engine,
	}
}

// DefaultEngine — реальная реализация для продакшена
func DefaultEngine(source fs.FS, dir, databaseURL string) (Migrator, error) {
	d, err := iofs.New(source, dir)
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}

	return migrate.NewWithSourceInstance("iofs", d, databaseURL)
}

// SQLiteURL адрес файла SQLite в формате golang-migrate
func SQLiteURL(path string) string {
	return "sqlite3://" + path
}

func (mg *Migration) Up() (err error) {
	m, err := mg.engine(mg.source, mg.dir, mg.databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		serr, dberr := m.Close()
		if serr != nil {
			if err != nil {
				err = fmt.Errorf("%w; migration source error: %v", err, serr)
			} else {
				err = serr
			}
		}
		if dberr != nil {
			if err != nil {
				err = fmt.Errorf("%w; migration database error: %v", err, dberr)
			} else {
				err = dberr
			}
		}
	}()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w; migration up error", err)
	}
	return nil
}
