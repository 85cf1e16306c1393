package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, 8, cfg.Transfers.ParallelMoves)
	assert.Equal(t, "60s", cfg.Network.Timeout)
	assert.Equal(t, "info", cfg.Logging.LogLevel)
	assert.Equal(t, "auto", cfg.Logging.LogFormat)
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
[server]
url = "https://depot.example.com"
access_token = "tok"

[transfers]
parallel_moves = 4
verify_downloads = true

[network]
timeout = "30s"

[logging]
log_level = "debug"
log_format = "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://depot.example.com", cfg.Server.URL)
	assert.Equal(t, "tok", cfg.Server.AccessToken)
	assert.Equal(t, 4, cfg.Transfers.ParallelMoves)
	assert.True(t, cfg.Transfers.VerifyDownloads)
	assert.Equal(t, "30s", cfg.Network.Timeout)
	assert.Equal(t, "debug", cfg.Logging.LogLevel)
	assert.Equal(t, "json", cfg.Logging.LogFormat)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
url = "https://depot.example.com"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Transfers.ParallelMoves)
	assert.Equal(t, "60s", cfg.Network.Timeout)
	assert.Equal(t, "info", cfg.Logging.LogLevel)
}

func TestLoad_UnknownKeyIsFatal(t *testing.T) {
	path := writeConfig(t, `
[server]
url = "https://depot.example.com"
acces_token = "typo"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown keys")
	assert.Contains(t, err.Error(), "acces_token")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "negative parallel moves",
			content: "[transfers]\nparallel_moves = -1\n",
			want:    "parallel_moves",
		},
		{
			name:    "bad timeout",
			content: "[network]\ntimeout = \"soon\"\n",
			want:    "timeout",
		},
		{
			name:    "bad log level",
			content: "[logging]\nlog_level = \"chatty\"\n",
			want:    "log_level",
		},
		{
			name:    "bad log format",
			content: "[logging]\nlog_format = \"xml\"\n",
			want:    "log_format",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestResolve_OverrideChain(t *testing.T) {
	path := writeConfig(t, `
[server]
url = "https://file.example.com"
access_token = "file-token"
`)

	resolved, err := Resolve(
		EnvOverrides{ServerURL: "https://env.example.com", AccessToken: "env-token"},
		CLIOverrides{ConfigPath: path, ServerURL: "https://cli.example.com"},
	)
	require.NoError(t, err)

	// CLI beats env beats file; the token has no CLI flag so env wins.
	assert.Equal(t, "https://cli.example.com", resolved.ServerURL)
	assert.Equal(t, "env-token", resolved.AccessToken)
	assert.Equal(t, 60*time.Second, resolved.Timeout)
	assert.Equal(t, 8, resolved.ParallelMoves)
}

func TestResolve_EnvConfigPath(t *testing.T) {
	path := writeConfig(t, `
[server]
url = "https://depot.example.com"

[network]
timeout = "5s"
`)

	resolved, err := Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "https://depot.example.com", resolved.ServerURL)
	assert.Equal(t, 5*time.Second, resolved.Timeout)
}

func TestResolve_RequiresServerURL(t *testing.T) {
	_, err := Resolve(
		EnvOverrides{},
		CLIOverrides{ConfigPath: filepath.Join(t.TempDir(), "nope.toml")},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no server URL configured")
}

func TestResolve_RejectsBadServerURL(t *testing.T) {
	tests := []string{"ftp://depot.example.com", "depot.example.com", "https://"}

	for _, raw := range tests {
		_, err := Resolve(
			EnvOverrides{ServerURL: raw},
			CLIOverrides{ConfigPath: filepath.Join(t.TempDir(), "nope.toml")},
		)
		require.Error(t, err, raw)
	}
}
