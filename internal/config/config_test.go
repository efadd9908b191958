package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"ADDR", "STORE", "SQLITE_PATH", "RATE_LIMIT", "RATE_BURST", "WORKERS", "RUN_TIMEOUT"} {
		t.Setenv(k, "")
	}
	c, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, ":8443", c.Addr)
	require.Equal(t, "sqlite", c.Store)
	require.Equal(t, "data/dam_results.db", c.DSN())
	require.Equal(t, 4, c.Workers)
	require.Equal(t, 2*time.Minute, c.RunTimeout)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STORE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://dam@localhost/dam")
	t.Setenv("WORKERS", "8")
	t.Setenv("RUN_TIMEOUT", "30s")

	c, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, "postgres://dam@localhost/dam", c.DSN())
	require.Equal(t, 8, c.Workers)
	require.Equal(t, 30*time.Second, c.RunTimeout)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	t.Setenv("STORE", "mongo")
	_, err := FromEnv()
	require.Error(t, err)

	t.Setenv("STORE", "memory")
	t.Setenv("WORKERS", "many")
	_, err = FromEnv()
	require.ErrorContains(t, err, "WORKERS")
}

func TestLoadReadsDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_FORMAT=json\n"), 0o600))
	t.Setenv("LOG_FORMAT", "")
	os.Unsetenv("LOG_FORMAT")

	c, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, "json", c.LogFormat)
}
