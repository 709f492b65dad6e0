package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Name: "cyborg-vpn", Version: "1.0.0"},
		Server: ServerConfig{Host: "0.0.0.0", Port: "8080", Timeout: 30},
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "staging.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  name: cyborg-vpn-site
  version: 2.0.0
server:
  host: 127.0.0.1
  port: "9090"
limits:
  rate_limiting:
    backend: redis
database:
  redis:
    addr: cache:6379
`), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("CYBORG_LIMITS_RATE_LIMITING_MAX_REQUESTS", "7")
	defer SetEnv("local")

	require.NoError(t, Load())
	cfg := Get()

	assert.Equal(t, "staging", GetEnv())
	assert.Equal(t, "cyborg-vpn-site", cfg.App.Name)
	assert.Equal(t, "127.0.0.1:9090", GetServerAddr())
	assert.Equal(t, BackendRedis, cfg.RateLimitBackend())
	assert.Equal(t, "cache:6379", cfg.Database.Redis.Addr)

	// 預設值
	assert.Equal(t, 30, cfg.Server.Timeout)
	assert.Equal(t, 60, cfg.Limits.RateLimiting.WindowSeconds)
	assert.Equal(t, 5, cfg.Limits.RateLimiting.CleanupInterval)
	assert.Equal(t, int64(64<<10), cfg.Limits.Request.MaxBodySize)
	assert.Equal(t, 500, cfg.Limits.Contact.DeliveryDelayMS)
	assert.True(t, cfg.Limits.RateLimiting.Enabled)
	assert.True(t, cfg.Security.Audit.Enabled)
	assert.False(t, IsDebug())

	// 環境變數覆蓋
	assert.Equal(t, 7, cfg.Limits.RateLimiting.MaxRequests)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	defer SetEnv("local")

	assert.Error(t, Load())
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid memory backend", func(*Config) {}, false},
		{"missing app name", func(c *Config) { c.App.Name = "" }, true},
		{"zero timeout", func(c *Config) { c.Server.Timeout = 0 }, true},
		{"https without cert", func(c *Config) { c.Server.UseHTTPS = true }, true},
		{"negative window", func(c *Config) { c.Limits.RateLimiting.WindowSeconds = -1 }, true},
		{"redis without addr", func(c *Config) { c.Limits.RateLimiting.Backend = BackendRedis }, true},
		{"redis with addr", func(c *Config) {
			c.Limits.RateLimiting.Backend = BackendRedis
			c.Database.Redis.Addr = "localhost:6379"
		}, false},
		{"mongo without database", func(c *Config) {
			c.Limits.RateLimiting.Backend = BackendMongo
			c.Database.Mongo.URL = "mongodb://localhost:27017"
		}, true},
		{"mongo pool sizes inverted", func(c *Config) {
			c.Limits.RateLimiting.Backend = BackendMongo
			c.Database.Mongo.URL = "mongodb://localhost:27017"
			c.Database.Mongo.Database = "cyborg_vpn"
			c.Database.Mongo.MinPoolSize = 10
			c.Database.Mongo.MaxPoolSize = 5
		}, true},
		{"unknown backend", func(c *Config) { c.Limits.RateLimiting.Backend = "etcd" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Load(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Same(t, cfg, Get())
		})
	}
}

func TestRateLimitBackendDefault(t *testing.T) {
	assert.Equal(t, BackendMemory, validConfig().RateLimitBackend())
}

func TestIsDebugFollowsLoadedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.App.Debug = true
	require.NoError(t, Load(cfg))
	assert.True(t, IsDebug())

	cfg = validConfig()
	require.NoError(t, Load(cfg))
	assert.False(t, IsDebug())
}
