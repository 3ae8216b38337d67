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
	for _, key := range []string{"PORT", "HTMLMD_BIND_ADDRESS", "HTMLMD_LOG_LEVEL", "HTMLMD_NAMING_DELAY_MS", "HTMLMD_CONVERT_DELAY_MS"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_WritesDefaultWhenMissing(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "htmlmd.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "namingDelayMs: 400")

	again, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadConfig_ReadsFileOverDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "htmlmd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9100\nintake:\n  convertDelayMs: 0\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, time.Duration(0), cfg.Intake.ConvertDelay())
	assert.Equal(t, 400*time.Millisecond, cfg.Intake.NamingDelay(), "unset keys keep defaults")
	assert.Equal(t, "0.0.0.0:9100", cfg.GetServerAddr())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")
	t.Setenv("HTMLMD_BIND_ADDRESS", "127.0.0.1")
	t.Setenv("HTMLMD_LOG_LEVEL", "debug")
	t.Setenv("HTMLMD_NAMING_DELAY_MS", "0")
	t.Setenv("HTMLMD_CONVERT_DELAY_MS", "25")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "htmlmd.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.GetServerAddr())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, time.Duration(0), cfg.Intake.NamingDelay())
	assert.Equal(t, 25*time.Millisecond, cfg.Intake.ConvertDelay())
}

func TestLoadConfig_DotEnvNextToConfig(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("HTMLMD_LOG_LEVEL")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HTMLMD_LOG_LEVEL=warn\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("HTMLMD_LOG_LEVEL") })

	cfg, err := LoadConfig(filepath.Join(dir, "htmlmd.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{name: "bad yaml", file: "server: [unterminated"},
		{name: "bad port env", env: map[string]string{"PORT": "eighty"}},
		{name: "bad delay env", env: map[string]string{"HTMLMD_NAMING_DELAY_MS": "soon"}},
		{name: "port out of range", file: "server:\n  port: 70000\n"},
		{name: "negative delay", file: "intake:\n  namingDelayMs: -1\n"},
		{name: "unknown encoding", file: "logging:\n  encoding: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := filepath.Join(t.TempDir(), "htmlmd.yaml")
			if tt.file != "" {
				require.NoError(t, os.WriteFile(path, []byte(tt.file), 0644))
			}

			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestServerConfig_Origins(t *testing.T) {
	assert.Equal(t, []string{"*"}, ServerConfig{}.Origins())
	assert.Equal(t, []string{"http://a", "http://b"}, ServerConfig{AllowOrigins: " http://a, ,http://b "}.Origins())
}
