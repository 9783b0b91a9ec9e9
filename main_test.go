package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/krshsl/mumble/backend/repository"
	svc "github.com/krshsl/mumble/backend/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupCLI points the commands at a fresh sqlite file inside a temp working dir
func setupCLI(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)
	dbPath := filepath.Join(dir, "mumble.db")
	t.Setenv("DATABASE_DRIVER", repository.DriverSQLite)
	t.Setenv("DATABASE_URL", dbPath)
	t.Setenv("DATABASE_SEED", "false")
	t.Setenv("LOG_LEVEL", "error")
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	return dbPath
}

func execute(ctx context.Context, args ...string) error {
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

type seededState struct {
	demo     bool
	journals int64
}

func inspect(t *testing.T, dbPath string) seededState {
	t.Helper()

	db, err := repository.Open(t.Context(), repository.Options{Driver: repository.DriverSQLite, URL: dbPath})
	require.NoError(t, err)
	defer repository.Close(db)

	repo := repository.NewGORMRepository(db)
	user, err := repo.GetUserByEmail(t.Context(), svc.DemoEmail)
	require.NoError(t, err)
	if user == nil {
		return seededState{}
	}

	_, total, err := repository.NewJournalRepository(db).ListJournals(t.Context(), repository.JournalFilter{
		UserID:  user.ID,
		Page:    1,
		PerPage: 10,
	})
	require.NoError(t, err)
	return seededState{demo: true, journals: total}
}

func TestMigrateCommand(t *testing.T) {
	dbPath := setupCLI(t)

	require.NoError(t, execute(t.Context(), "migrate"))

	assert.Equal(t, seededState{}, inspect(t, dbPath), "migrate creates the schema without data")
}

func TestSeedCommand_Idempotent(t *testing.T) {
	dbPath := setupCLI(t)

	require.NoError(t, execute(t.Context(), "migrate"))
	require.NoError(t, execute(t.Context(), "seed"))
	require.NoError(t, execute(t.Context(), "seed"))

	assert.Equal(t, seededState{demo: true, journals: 1}, inspect(t, dbPath))
}

func TestServeCommand_SeedsAndStops(t *testing.T) {
	dbPath := setupCLI(t)
	t.Setenv("DATABASE_SEED", "true")
	t.Setenv("SERVER_PORT", "0")

	ctx, cancel := context.WithCancel(t.Context())
	timer := time.AfterFunc(200*time.Millisecond, cancel)
	defer timer.Stop()

	done := make(chan error, 1)
	go func() { done <- execute(ctx, "serve") }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after cancellation")
	}

	assert.Equal(t, seededState{demo: true, journals: 1}, inspect(t, dbPath))
}

func TestUnknownCommand(t *testing.T) {
	setupCLI(t)

	assert.Error(t, execute(t.Context(), "explode"))
}
