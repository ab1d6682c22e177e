package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configVars = []string{
	"PORT", "REQUEST_TIMEOUT", "SHUTDOWN_TIMEOUT", "CORS_ALLOWED_ORIGINS",
	"JWT_SECRET", "LICENSE_JWT_PRIVATE_KEY", "ADMIN_API_KEY_HASH",
	"STORE_DRIVER", "MONGO_URI", "MONGO_DATABASE", "DATABASE_URL",
	"LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv blanks every config variable for the test and removes it, so that
// godotenv (which never overrides set variables) can populate it.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configVars {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func missingFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017/licenses")

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, DriverMongo, cfg.StoreDriver)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)

	lvl, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"PORT=8081\nJWT_SECRET=from-file\nSTORE_DRIVER=Postgres\nDATABASE_URL=postgres://localhost/lic\nCORS_ALLOWED_ORIGINS=https://a.example,https://b.example\n",
	), 0o600))
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"no signing key", map[string]string{"STORE_DRIVER": "memory"}},
		{"mongo without uri", map[string]string{"JWT_SECRET": "x"}},
		{"postgres without dsn", map[string]string{"JWT_SECRET": "x", "STORE_DRIVER": "postgres"}},
		{"unknown driver", map[string]string{"JWT_SECRET": "x", "STORE_DRIVER": "redis"}},
		{"bad level", map[string]string{"JWT_SECRET": "x", "STORE_DRIVER": "memory", "LOG_LEVEL": "loud"}},
		{"bad format", map[string]string{"JWT_SECRET": "x", "STORE_DRIVER": "memory", "LOG_FORMAT": "xml"}},
		{"bad port", map[string]string{"JWT_SECRET": "x", "STORE_DRIVER": "memory", "PORT": "70000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(missingFile(t))
			assert.Error(t, err)
		})
	}
}
