package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "tenantapi", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenExpiration)
	assert.Equal(t, 30*24*time.Hour, cfg.Refresh.Expiration)
	assert.Equal(t, 7*24*time.Hour, cfg.Refresh.Retention)
	assert.Equal(t, "refresh_token", cfg.Refresh.CookieName)
	assert.Equal(t, "/api/v1/auth", cfg.Cookie.Path)
	assert.Equal(t, "lax", cfg.Cookie.SameSite)
	assert.False(t, cfg.Cookie.Secure)
	assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
	assert.Equal(t, 8, cfg.Idempotency.MinKeyLength)
	assert.False(t, cfg.Idempotency.ClaimInFlight)
	assert.Equal(t, 120, cfg.HTTP.ReadRateLimit)
	assert.Equal(t, 60, cfg.HTTP.WriteRateLimit)
	assert.Equal(t, 5, cfg.HTTP.AuthRateLimitRequests)
	assert.Equal(t, time.Minute, cfg.HTTP.AuthRateLimitWindow)
	assert.Equal(t, 30*24*time.Hour, cfg.Maintenance.SoftDeletedRetention)
	assert.Equal(t, 90*24*time.Hour, cfg.Maintenance.AuditRetention)
	assert.Empty(t, cfg.HTTP.CORSAllowOrigins)
	assert.Contains(t, cfg.HTTP.CORSAllowHeaders, "Idempotency-Key")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TENANTAPI_APP_PORT", "9000")
	t.Setenv("TENANTAPI_DATABASE_DRIVER", "sqlite")
	t.Setenv("TENANTAPI_DATABASE_PATH", "/tmp/x.db")
	t.Setenv("TENANTAPI_JWT_ACCESS_TOKEN_EXPIRATION", "5m")
	t.Setenv("TENANTAPI_IDEMPOTENCY_CLAIM_INFLIGHT", "true")
	t.Setenv("TENANTAPI_REDIS_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.Database.Path)
	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTokenExpiration)
	assert.True(t, cfg.Idempotency.ClaimInFlight)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[app]
name = "from-file"

[http]
read_rate_limit = 10
cors_allow_origins = ["https://app.example.com"]

[maintenance]
audit_retention = "48h"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.App.Name)
	assert.Equal(t, 10, cfg.HTTP.ReadRateLimit)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.HTTP.CORSAllowOrigins)
	assert.Equal(t, 48*time.Hour, cfg.Maintenance.AuditRetention)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "mysql" },
			wantErr: "database.driver",
		},
		{
			name:    "idle above open",
			mutate:  func(c *Config) { c.Database.MaxIdleConns = 100 },
			wantErr: "max_idle_conns",
		},
		{
			name:    "bad same site",
			mutate:  func(c *Config) { c.Cookie.SameSite = "sometimes" },
			wantErr: "cookie.same_site",
		},
		{
			name:    "same site none without secure",
			mutate:  func(c *Config) { c.Cookie.SameSite = "none" },
			wantErr: "cookie.secure",
		},
		{
			name: "production short secret",
			mutate: func(c *Config) {
				c.App.Env = "production"
				c.JWT.Secret = "short"
			},
			wantErr: "jwt.secret",
		},
		{
			name: "production sslmode disable",
			mutate: func(c *Config) {
				c.App.Env = "production"
				c.JWT.Secret = "0123456789abcdef0123456789abcdef"
			},
			wantErr: "sslmode",
		},
		{
			name: "production wildcard origin",
			mutate: func(c *Config) {
				c.App.Env = "production"
				c.JWT.Secret = "0123456789abcdef0123456789abcdef"
				c.Database.SSLMode = "require"
				c.HTTP.CORSAllowOrigins = []string{"*"}
			},
			wantErr: "cors_allow_origins",
		},
		{
			name:    "archive without storage",
			mutate:  func(c *Config) { c.Maintenance.ArchiveAudit = true },
			wantErr: "archive_audit",
		},
		{
			name:    "sampling out of range",
			mutate:  func(c *Config) { c.Telemetry.SamplingRatio = 2 },
			wantErr: "sampling_ratio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProductionForcesSecureCookie(t *testing.T) {
	cfg := &Config{App: AppConfig{Env: "production"}}
	applyDefaults(cfg)
	assert.True(t, cfg.Cookie.Secure)
	assert.True(t, cfg.IsProduction())
}

func TestDSN_EscapesPassword(t *testing.T) {
	d := DatabaseConfig{User: "app", Password: "p@ss word", Host: "db", Port: 5432, DBName: "tenantapi", SSLMode: "disable"}
	dsn := d.DSN()
	assert.Contains(t, dsn, "postgres://app:p%40ss%20word@db:5432/tenantapi")
	assert.Contains(t, dsn, "sslmode=disable")
}
