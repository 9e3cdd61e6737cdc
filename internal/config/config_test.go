package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "http://localhost:5000", cfg.BackendURL)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.Debounce)
	assert.Equal(t, 300, cfg.SynthesisTimeout)
	assert.Equal(t, 3, cfg.SolutionCount)
	assert.Empty(t, cfg.RedisURL)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "intent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"port: 9000\nbackend_url: http://synth:5000\npoll_interval: 1s\nsolution_count: 5\n",
	), 0o600))

	t.Setenv("INTENT_PORT", "9100")
	t.Setenv("INTENT_CORS_ORIGINS", "http://a.test, http://b.test")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Parse([]string{"--poll-interval=250ms"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port, "env overrides file")
	assert.Equal(t, "http://synth:5000", cfg.BackendURL, "file overrides defaults")
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval, "flags override file")
	assert.Equal(t, 5, cfg.SolutionCount)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.Debounce, "unset flags keep lower layers")
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("INTENT_BACKEND_URL", "not a url")
	_, err := Load("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BackendURL")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}
