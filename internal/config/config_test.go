package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "BASE_URL", "DB_DRIVER", "JWT_SECRET", "GENERATE_DELAY_MS", "LOG_HASH_SALT"} {
		t.Setenv(key, "")
	}
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2025, cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, DefaultCategories, cfg.Categories)
	assert.Equal(t, 300*time.Millisecond, cfg.GenerateDelay)
	assert.Equal(t, "http://localhost:2025", cfg.BaseURL)
	assert.Len(t, cfg.JWTSecret, 64)
	assert.True(t, cfg.GeneratedSecret)
	assert.Empty(t, cfg.LogHashSalt)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 8080
db_driver: pgx
db_dsn: postgres://localhost/notes
jwt_secret: from-file
generate_delay: 50ms
categories: [Work, Health]
`), 0o644))

	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_TTL_SECONDS", "5")
	t.Setenv("LOG_HASH_SALT", "salt-from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "pgx", cfg.DBDriver)
	assert.Equal(t, "postgres://localhost/notes", cfg.DBDSN)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.False(t, cfg.GeneratedSecret)
	assert.Equal(t, 50*time.Millisecond, cfg.GenerateDelay)
	assert.Equal(t, 5*time.Second, cfg.CacheTTL)
	assert.Equal(t, []string{"Work", "Health"}, cfg.Categories)
	assert.Equal(t, "http://localhost:9090", cfg.BaseURL)
	assert.Equal(t, "salt-from-env", cfg.LogHashSalt)
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
