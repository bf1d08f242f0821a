package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	opts, err := parseArgs([]string{"-c", "gw.yaml", "--port", "9090", "--origin", "http://127.0.0.1:3000", "-d"})
	require.NoError(t, err)
	assert.Equal(t, options{configPath: "gw.yaml", port: 9090, origin: "http://127.0.0.1:3000", debug: true}, opts)

	_, err = parseArgs([]string{"--help"})
	assert.ErrorIs(t, err, errHelp)

	opts, err = parseArgs([]string{"-v"})
	require.NoError(t, err)
	assert.True(t, opts.version)
}

func TestParseArgs_Errors(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--config"}, "--config requires a value"},
		{[]string{"-p", "http"}, "invalid port 'http'"},
		{[]string{"-p", "70000"}, "invalid port '70000'"},
		{[]string{"--nope"}, "unknown option: --nope"},
	}
	for _, tt := range tests {
		_, err := parseArgs(tt.args)
		assert.EqualError(t, err, tt.want)
	}
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
origin:
  url: http://origin.internal
rewrite:
  mode: deferred
`), 0o600))

	cfg, err := loadConfig(options{configPath: path, port: 9000, debug: true})
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "http://origin.internal", cfg.Origin.URL)
	assert.Equal(t, "deferred", cfg.Rewrite.Mode)
	assert.Equal(t, "debug", cfg.Monitoring.LogLevel)

	cfg, err = loadConfig(options{configPath: path, origin: "http://127.0.0.1:3000"})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:3000", cfg.Origin.URL)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := loadConfig(options{configPath: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
