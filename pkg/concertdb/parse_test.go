package concertdb

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/migration"
	"github.com/surrealdb/surrealdb.go/contrib/concertdb/pkg/store"
)

func TestParse_Subcommands(t *testing.T) {
	for name, want := range map[string]Command{
		"run":     &RunCommand{},
		"migrate": &MigrateCommand{},
		"status":  &StatusCommand{},
		"reset":   &ResetCommand{},
	} {
		t.Run(name, func(t *testing.T) {
			cmd, config, err := Parse([]string{name})
			require.NoError(t, err)
			assert.Equal(t, want, cmd)
			assert.Equal(t, "8080", config.ServerPort)
			assert.Equal(t, "data/migration-status.json", config.StatusFile)
			assert.Equal(t, "admin@concerts.local", config.AdminEmail)
			assert.False(t, config.UseDocumentDB)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	_, _, err := Parse(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subcommand required")

	_, _, err = Parse([]string{"sync"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command: sync")

	_, _, err = Parse([]string{"-log-format=xml", "run"})
	require.Error(t, err)

	_, _, err = Parse([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml"), "run"})
	require.Error(t, err)
}

func TestParse_EnvironmentAndFlags(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("USE_DOCUMENT_DB", "true")
	t.Setenv("SURREALDB_NS", "tickets")
	t.Setenv("MIGRATION_STATUS_FILE", "/var/lib/concertdb/status.json")

	_, config, err := Parse([]string{"run"})
	require.NoError(t, err)
	assert.Equal(t, "9000", config.ServerPort)
	assert.True(t, config.UseDocumentDB)
	assert.Equal(t, "tickets", config.SurrealDBNS)
	assert.Equal(t, "/var/lib/concertdb/status.json", config.StatusFile)

	_, config, err = Parse([]string{"-port=7000", "-status-file=status.json", "run"})
	require.NoError(t, err)
	assert.Equal(t, "7000", config.ServerPort)
	assert.Equal(t, "status.json", config.StatusFile)
}

func TestParse_ConfigFile(t *testing.T) {
	// Empty variables count as unset, so the file values win.
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("ADMIN_EMAIL", "")

	path := filepath.Join(t.TempDir(), "concertdb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("postgres_dsn: sqlite://local.db\nadmin_email: root@example.com\n"), 0o644))

	_, config, err := Parse([]string{"-config", path, "status"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite://local.db", config.PostgresDSN)
	assert.Equal(t, "root@example.com", config.AdminEmail)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "warn", "json")
	require.NoError(t, err)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)

	_, err = NewLogger(&buf, "loud", "json")
	require.Error(t, err)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrapped: %w", store.ErrNotFound), http.StatusNotFound},
		{store.ErrUnsupportedOperation, http.StatusNotImplemented},
		{store.ErrSelfReferral, http.StatusBadRequest},
		{migration.ErrInProgress, http.StatusConflict},
		{fmt.Errorf("open: %w", store.ErrConnectivity), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
