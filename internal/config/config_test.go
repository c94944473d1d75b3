package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		old, existed := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if existed {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	clearEnv(t, "DATABASE_URL")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t, "DATABASE_URL", "PORT", "MAX_CONCURRENT", "SOURCES_FILE")
	os.Setenv("DATABASE_URL", "postgres://localhost/datamart")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 2, cfg.Dispatcher.MaxConcurrent)
	assert.Empty(t, cfg.Sources)
}

func TestLoadSourcesFile(t *testing.T) {
	clearEnv(t, "DATABASE_URL", "SOURCES_FILE")
	os.Setenv("DATABASE_URL", "postgres://localhost/datamart")

	f, err := os.CreateTemp("", "sources-*.json")
	require.NoError(t, err)
	defer os.Remove(f.Name())
	_, err = f.WriteString(`[{"url": "https://example.com/dump.tar.gz", "check_interval": "12h"}]`)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	os.Setenv("SOURCES_FILE", f.Name())

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "https://example.com/dump.tar.gz", cfg.Sources[0].URL)
}
