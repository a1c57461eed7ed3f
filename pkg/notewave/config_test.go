package notewave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, cmd, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, CommandRun, cmd)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, ":8080", cfg.Addr)
}

func TestParseSubcommandAndFlags(t *testing.T) {
	cfg, cmd, err := Parse([]string{"migrate", "-backend", "postgres", "-postgres-dsn", "host=localhost"})
	require.NoError(t, err)
	assert.Equal(t, CommandMigrate, cmd)
	assert.Equal(t, BackendPostgres, cfg.Backend)
	assert.Equal(t, "host=localhost", cfg.PostgresDSN)
}

func TestParseRejectsUnknownBackend(t *testing.T) {
	_, _, err := Parse([]string{"-backend", "sqlite"})
	require.Error(t, err)
}

func TestParseRequiresPostgresDSN(t *testing.T) {
	_, _, err := Parse([]string{"-backend", "postgres"})
	require.Error(t, err)
}
