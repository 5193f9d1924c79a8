package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, ":5000", c.HTTPAddress)
	assert.Equal(t, BackendFile, c.StorageBackend)
	assert.Equal(t, "onechat.adithf", c.DataFile)
	assert.Equal(t, 24*time.Hour, c.RetentionWindow)
	assert.Equal(t, time.Hour, c.SweepInterval)
	assert.Zero(t, c.SessionValidityDuration)
	require.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "unknown backend", mutate: func(c *Config) { c.StorageBackend = "redis" }, wantErr: true},
		{name: "empty secret", mutate: func(c *Config) { c.SecretKey = "" }, wantErr: true},
		{name: "zero retention", mutate: func(c *Config) { c.RetentionWindow = 0 }, wantErr: true},
		{name: "zero sweep interval", mutate: func(c *Config) { c.SweepInterval = 0 }, wantErr: true},
		{name: "file backend without file", mutate: func(c *Config) { c.DataFile = "" }, wantErr: true},
		{name: "memory backend without file", mutate: func(c *Config) {
			c.StorageBackend = BackendMemory
			c.DataFile = ""
		}},
		{name: "postgres without dsn", mutate: func(c *Config) {
			c.StorageBackend = BackendPostgres
			c.DatabaseDSN = ""
		}, wantErr: true},
		{name: "bad env", mutate: func(c *Config) { c.Env = "staging" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaults()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_Layering(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "cfg.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{
		"http_address": ":7000",
		"storage_backend": "memory",
		"retention_window": "48h",
		"secret_key": "from-json"
	}`), 0o600))

	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("ONECHAT_SECRET_KEY=from-dotenv\nONECHAT_LOG_LEVEL=debug\n"), 0o600))

	t.Setenv("ONECHAT_SWEEP_INTERVAL", "30m")
	t.Setenv("ONECHAT_HTTP_ADDRESS", ":7100")
	// godotenv never overrides variables already present.
	t.Setenv("ONECHAT_LOG_LEVEL", "warn")
	os.Unsetenv("ONECHAT_SECRET_KEY")
	t.Cleanup(func() { os.Unsetenv("ONECHAT_SECRET_KEY") })

	cfg, err := LoadConfig([]string{"-c", jsonPath, "-env", envPath, "-a", ":7200", "-x", "ignored"})
	require.NoError(t, err)

	want := defaults()
	want.HTTPAddress = ":7200"
	want.StorageBackend = BackendMemory
	want.RetentionWindow = 48 * time.Hour
	want.SweepInterval = 30 * time.Minute
	want.SecretKey = "from-dotenv"
	want.LogLevel = "warn"

	assert.Empty(t, cmp.Diff(want, cfg))
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

	tests := []struct {
		name string
		args []string
	}{
		{name: "invalid json", args: []string{"-c", bad}},
		{name: "missing json", args: []string{"-config", filepath.Join(dir, "nope.json")}},
		{name: "missing explicit dotenv", args: []string{"-env", filepath.Join(dir, "nope.env")}},
		{name: "invalid backend", args: []string{"-m", "redis"}},
		{name: "bad duration flag", args: []string{"-w", "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(tt.args)
			assert.Error(t, err)
		})
	}
}
