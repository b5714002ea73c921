package migration

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockMigrator — мок для интерфейса Migrator
type MockMigrator struct {
	mock.Mock
}

func (m *MockMigrator) Up() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMigrator) Close() (error, error) {
	args := m.Called()
	return args.Error(0), args.Error(1)
}

var emptySource = fstest.MapFS{}

func TestMigration_Up_Success(t *testing.T) {
	mockM := new(MockMigrator)

	// Настраиваем поведение
	mockM.On("Up").Return(nil)
	mockM.On("Close").Return(nil, nil)

	// Инжектим мок через фабрику
	var gotDir, gotURL string
	engine := func(_ fs.FS, dir, db string) (Migrator, error) {
		gotDir, gotURL = dir, db
		return mockM, nil
	}

	mg := NewMigration(emptySource, "migrations", "postgres://localhost/db", engine)
	err := mg.Up()

	assert.NoError(t, err)
	assert.Equal(t, "migrations", gotDir)
	assert.Equal(t, "postgres://localhost/db", gotURL)
	mockM.AssertExpectations(t)
}

func TestMigration_Up_NoChange(t *testing.T) {
	mockM := new(MockMigrator)

	// ErrNoChange не должна считаться ошибкой в методе Up()
	mockM.On("Up").Return(migrate.ErrNoChange)
	mockM.On("Close").Return(nil, nil)

	engine := func(fs.FS, string, string) (Migrator, error) {
		return mockM, nil
	}

	mg := NewMigration(emptySource, "migrations", "", engine)
	err := mg.Up()

	assert.NoError(t, err)
}

func TestMigration_Up_EngineError(t *testing.T) {
	// Ошибка на этапе создания мигратора (например, неверный драйвер)
	engine := func(fs.FS, string, string) (Migrator, error) {
		return nil, errors.New("engine crash")
	}

	mg := NewMigration(emptySource, "migrations", "", engine)
	err := mg.Up()

	assert.Error(t, err)
	assert.Equal(t, "engine crash", err.Error())
}

func TestMigration_Up_CloseError(t *testing.T) {
	mockM := new(MockMigrator)
	mockM.On("Up").Return(errors.New("dirty"))
	mockM.On("Close").Return(nil, errors.New("db gone"))

	engine := func(fs.FS, string, string) (Migrator, error) {
		return mockM, nil
	}

	err := NewMigration(emptySource, "migrations", "", engine).Up()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "dirty")
	assert.Contains(t, err.Error(), "db gone")
}

func TestMigration_Up_SQLite(t *testing.T) {
	source := fstest.MapFS{
		"migrations/000001_init.up.sql":   {Data: []byte("CREATE TABLE t (id INTEGER PRIMARY KEY);")},
		"migrations/000001_init.down.sql": {Data: []byte("DROP TABLE t;")},
	}
	url := SQLiteURL(filepath.Join(t.TempDir(), "test.db"))

	require.NoError(t, NewMigration(source, "migrations", url, nil).Up())
	// Повторный запуск ничего не меняет
	require.NoError(t, NewMigration(source, "migrations", url, nil).Up())
}
