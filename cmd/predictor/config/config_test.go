package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HatiCode/autompg/pkg/models"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{"environment variable set", "AUTOMPG_TEST_VAR", "default", "from-env", "from-env"},
		{"environment variable not set", "AUTOMPG_NONEXISTENT_VAR", "default", "", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}
			assert.Equal(t, tt.want, getEnv(tt.key, tt.defaultValue))
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue int
		want         int
	}{
		{"valid integer", "42", 10, 42},
		{"invalid integer", "not-a-number", 10, 10},
		{"not set", "", 99, 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv("AUTOMPG_TEST_INT", tt.envValue)
			}
			assert.Equal(t, tt.want, getEnvInt("AUTOMPG_TEST_INT", tt.defaultValue))
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue time.Duration
		want         time.Duration
	}{
		{"valid duration", "5m", time.Minute, 5 * time.Minute},
		{"invalid duration", "not-a-duration", 30 * time.Second, 30 * time.Second},
		{"not set", "", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv("AUTOMPG_TEST_DURATION", tt.envValue)
			}
			assert.Equal(t, tt.want, getEnvDuration("AUTOMPG_TEST_DURATION", tt.defaultValue))
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("AUTOMPG_TEST_BOOL", "1")
	assert.True(t, getEnvBool("AUTOMPG_TEST_BOOL", false))

	t.Setenv("AUTOMPG_TEST_BOOL", "no")
	assert.False(t, getEnvBool("AUTOMPG_TEST_BOOL", true))

	assert.True(t, getEnvBool("AUTOMPG_TEST_BOOL_UNSET", true))
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Empty(t, cfg.GRPCListen)
	assert.Equal(t, models.DefaultPath, cfg.ModelPath)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.LogFile)
	assert.Equal(t, CacheNone, cfg.Cache)
	assert.Equal(t, 1024, cfg.CacheSize)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 5*time.Second, cfg.BYOMTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.TLS.Enabled)
}

func TestParse_CustomValues(t *testing.T) {
	cfg, err := Parse([]string{
		"-listen=:9090",
		"-grpc-listen=:9091",
		"-model-path=/models/mpg.json",
		"-log-format=json",
		"-log-level=debug",
		"-cache=memory",
		"-cache-size=64",
		"-cache-ttl=1m",
		"-byom-timeout=2s",
	})
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, ":9091", cfg.GRPCListen)
	assert.Equal(t, "/models/mpg.json", cfg.ModelPath)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, CacheMemory, cfg.Cache)
	assert.Equal(t, 64, cfg.CacheSize)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, 2*time.Second, cfg.BYOMTimeout)
}

func TestParse_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "predictor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":7000"
model_path: /from/file.json
log_level: warn
cache: memory
cache_ttl: 30s
tls:
  enabled: false
`), 0o600))

	t.Setenv("LOG_LEVEL", "error")

	cfg, err := Parse([]string{"--config-file", path, "-listen=:7001"})
	require.NoError(t, err)

	assert.Equal(t, ":7001", cfg.Listen, "flag beats file")
	assert.Equal(t, "error", cfg.LogLevel, "env beats file")
	assert.Equal(t, "/from/file.json", cfg.ModelPath, "file beats default")
	assert.Equal(t, CacheMemory, cfg.Cache)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, "text", cfg.LogFormat, "default when nothing set")
}

func TestParse_ConfigFileFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "predictor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grpc_listen: \":9999\"\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.GRPCListen)
}

func TestParse_Errors(t *testing.T) {
	badYAML := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(badYAML, []byte("listen: [unclosed"), 0o600))

	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"-workload=x"}},
		{"bad log format", []string{"-log-format=xml"}},
		{"bad log level", []string{"-log-level=verbose"}},
		{"bad cache", []string{"-cache=memcached"}},
		{"zero cache size", []string{"-cache=memory", "-cache-size=0"}},
		{"negative redis db", []string{"-cache=redis", "-redis-db=-1"}},
		{"zero byom timeout", []string{"-byom-timeout=0s"}},
		{"tls without cert", []string{"-tls-enabled"}},
		{"missing config file", []string{"-config-file=/does/not/exist.yaml"}},
		{"malformed config file", []string{"-config-file=" + badYAML}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.args)
			assert.Error(t, err)
		})
	}
}

func TestLookupArg(t *testing.T) {
	tests := []struct {
		args   []string
		want   string
		wantOK bool
	}{
		{[]string{"-config-file=a.yaml"}, "a.yaml", true},
		{[]string{"--config-file", "b.yaml"}, "b.yaml", true},
		{[]string{"-listen=:1", "-config-file", "c.yaml"}, "c.yaml", true},
		{[]string{"---config-file=d.yaml"}, "", false},
		{[]string{"--", "-config-file=e.yaml"}, "", false},
		{[]string{"config-file=f.yaml"}, "", false},
		{nil, "", false},
	}

	for _, tt := range tests {
		got, ok := lookupArg(tt.args, "config-file")
		assert.Equal(t, tt.wantOK, ok, "%v", tt.args)
		assert.Equal(t, tt.want, got, "%v", tt.args)
	}
}

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"debug", "INFO", "warn", "warning", "error"} {
		_, err := ParseLevel(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseLevel("trace")
	assert.Error(t, err)
}
