package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/accounts-api/internal/config"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpen_SQLiteCreatesDirectory(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "data", "accounts.db")

	store, err := Open(context.Background(), config.Storage{Driver: config.DriverSQLite, DSN: dsn}, discard())
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dsn)
	assert.NoError(t, err)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestOpen_SQLiteMemory(t *testing.T) {
	store, err := Open(context.Background(), config.Storage{Driver: config.DriverSQLite, DSN: ":memory:"}, discard())
	require.NoError(t, err)
	defer store.Close()

	exists, err := store.Users().ExistsByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.Storage{Driver: "mysql", DSN: "x"}, discard())
	assert.ErrorContains(t, err, `unknown driver "mysql"`)
}
