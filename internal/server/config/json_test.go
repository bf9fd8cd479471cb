package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	full := writeTempJSON(t, dir, "full.json", map[string]any{
		"http_address":     ":8080",
		"grpc_address":     ":9090",
		"database_dsn":     "postgres://db",
		"aes_secret_key":   "vault-secret",
		"session_secret":   "session-secret",
		"session_validity": "2h",
		"sweep_interval":   "30s",
		"smtp_host":        "smtp.example.com",
		"smtp_port":        465,
		"smtp_timeout":     "10s",
		"s3_root_user":     "user",
		"s3_root_password": "password",
		"s3_bucket":        "bucket",
		"s3_region":        "region",
		"s3_base_endpoint": "base_endpoint",
		"log_backend":      "zerolog",
		"timezone":         "Europe/Riga",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", full}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, ":8080", cfg.HTTPAddr)
		assert.Equal(t, ":9090", cfg.GRPCAddr)
		assert.Equal(t, "postgres://db", cfg.DatabaseDSN)
		assert.Equal(t, "vault-secret", cfg.VaultSecret)
		assert.Equal(t, "session-secret", cfg.SessionSecret)
		assert.Equal(t, 2*time.Hour, cfg.SessionValidityDuration)
		assert.Equal(t, 30*time.Second, cfg.SweepInterval)
		assert.Equal(t, "smtp.example.com", cfg.SMTPHost)
		assert.Equal(t, 465, cfg.SMTPPort)
		assert.Equal(t, 10*time.Second, cfg.SMTPTimeout)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "zerolog", cfg.LogBackend)
		assert.Equal(t, "Europe/Riga", cfg.Timezone)
	})

	t.Run("partial file keeps other values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"sweep_interval": "5m"})
		os.Args = []string{"testbin", "-c", partial}

		var cfg Config
		cfg.LoadDefaults()
		parseJson(&cfg)

		assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
		assert.Equal(t, ":3000", cfg.HTTPAddr)
		assert.Equal(t, "smtp.gmail.com", cfg.SMTPHost)
	})

	t.Run("no config flag → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{HTTPAddr: "defaults:1234", SweepInterval: 2 * time.Minute}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.HTTPAddr)
		assert.Equal(t, 2*time.Minute, cfg.SweepInterval)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))
		os.Args = []string{"testbin", "-config", bad}

		require.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "absent.json")}

		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
