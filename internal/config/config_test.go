package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "DATABASE_DRIVER", "SERVER_ENV", "SERVER_PORT", "JWT_SECRET",
		"REDIS_ADDR", "RABBITMQ_URL", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, "memory", cfg.Database.Driver, "без DSN используется in-memory хранилище")
	assert.NotEmpty(t, cfg.JWT.Secret)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod())
	assert.Equal(t, 60*time.Second, cfg.PongWait())
	assert.Equal(t, "hrportal:realtime", cfg.Redis.Channel)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Contains(t, cfg.Upload.AllowedTypes, "application/pdf")
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9000
database:
  url: postgres://hr:hr@localhost/hr
realtime:
  pong_wait_sec: 30
cors:
  allowed_origins: ["https://hr.example.com"]
`)
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9100", cfg.Addr(), "env перекрывает файл")
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 27*time.Second, cfg.PingPeriod())
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"https://hr.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)

	cases := map[string]string{
		"postgres without dsn": "database:\n  driver: postgres\n",
		"unknown driver":       "database:\n  driver: mongo\n",
		"ping after pong":      "realtime:\n  ping_period_sec: 70\n  pong_wait_sec: 60\n",
		"unknown storage":      "storage:\n  type: ftp\n",
		"broken yaml":          "server: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	t.Run("production requires secret", func(t *testing.T) {
		t.Setenv("SERVER_ENV", "production")
		_, err := Load("")
		assert.ErrorContains(t, err, "jwt.secret")
	})
}
