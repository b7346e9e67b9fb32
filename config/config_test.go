package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strongSecret = "k7Qp2vXw9LmN4rTy8ZbC3dFh6JsG1aEu"

// writeConfig writes a config file into a temp dir and returns its path
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfigFile_Defaults(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: "+strongSecret+"\n")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, StartupModeStrict, cfg.StartupMode)
	assert.Equal(t, "127.0.0.1", cfg.API.Host)
	assert.Equal(t, 8081, cfg.API.Port)
	assert.Equal(t, 100, cfg.API.RateLimit.RequestsPerSecond)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Auth.JWTExpiry)
	assert.Equal(t, 32, cfg.Engine.MaxDepth)
	assert.Equal(t, 1024, cfg.Engine.MaxNodes)
	assert.Equal(t, 1000, cfg.Engine.CacheSize)
	assert.Equal(t, 30*time.Minute, cfg.Engine.CacheTTL)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, path, cfg.ConfigFileUsed())
	assert.Equal(t, filepath.Join("data", "alertfilter.db"), cfg.GetSQLitePath())
	assert.Equal(t, "127.0.0.1:8081", cfg.ListenAddr())
}

func TestLoadConfigFile_Overrides(t *testing.T) {
	path := writeConfig(t, `
startup_mode: graceful
data_paths:
  data_dir: /var/lib/alertfilter
api:
  host: 0.0.0.0
  port: 9000
auth:
  enabled: false
engine:
  max_depth: 8
  max_nodes: 64
redis:
  enabled: true
  addr: redis:6379
  ttl: 1m
`)

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsGracefulMode())
	assert.Equal(t, "/var/lib/alertfilter", cfg.GetDataDir())
	assert.Equal(t, "/var/lib/alertfilter/alertfilter.db", cfg.GetSQLitePath())
	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr())
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, 8, cfg.Engine.MaxDepth)
	assert.Equal(t, 64, cfg.Engine.MaxNodes)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, time.Minute, cfg.Redis.TTL)
}

func TestLoadConfigFile_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "api:\n  port: 9000\n")
	t.Setenv("ALERTFILTER_JWT_SECRET", strongSecret)
	t.Setenv("ALERTFILTER_API_PORT", "9100")
	t.Setenv("ALERTFILTER_SQLITE_PATH", "db/filters.db")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, strongSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, 9100, cfg.API.Port)
	assert.Equal(t, filepath.Join("db", "filters.db"), cfg.GetSQLitePath())
}

func TestLoadConfigFile_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_NoFileUsesDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ALERTFILTER_AUTH_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.ConfigFileUsed())
	assert.Equal(t, 8081, cfg.API.Port)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing jwt secret",
			content: "auth:\n  enabled: true\n",
			wantErr: "at least 32 characters",
		},
		{
			name:    "weak jwt secret",
			content: "auth:\n  jwt_secret: changeme-changeme-changeme-changeme\n",
			wantErr: "weak/default",
		},
		{
			name:    "invalid port",
			content: "auth:\n  enabled: false\napi:\n  port: 70000\n",
			wantErr: "Port",
		},
		{
			name:    "invalid startup mode",
			content: "auth:\n  enabled: false\nstartup_mode: yolo\n",
			wantErr: "StartupMode",
		},
		{
			name:    "zero max depth",
			content: "auth:\n  enabled: false\nengine:\n  max_depth: 0\n",
			wantErr: "MaxDepth",
		},
		{
			name:    "redis without port",
			content: "auth:\n  enabled: false\nredis:\n  enabled: true\n  addr: localhost\n",
			wantErr: "redis.addr",
		},
		{
			name:    "negative cache ttl",
			content: "auth:\n  enabled: false\nengine:\n  cache_ttl: -1s\n",
			wantErr: "cache_ttl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFile(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolveDataPaths(t *testing.T) {
	cfg := &Config{}
	cfg.ResolveDataPaths()
	assert.Equal(t, "./data", cfg.DataPaths.DataDir)
	assert.Equal(t, filepath.Join("data", "alertfilter.db"), cfg.DataPaths.SQLitePath)

	cfg = &Config{DataPaths: DataPaths{DataDir: "x", SQLitePath: "y/../z.db"}}
	cfg.ResolveDataPaths()
	assert.Equal(t, "z.db", cfg.DataPaths.SQLitePath)
}
