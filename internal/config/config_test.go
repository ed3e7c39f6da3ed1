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
	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Runs)
	assert.Equal(t, 120*time.Second, cfg.Timeout())
	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.Mock)
	assert.Equal(t, "playwright", cfg.Mode())
	assert.Equal(t, "http://127.0.0.1:8080/", cfg.TargetURL())
	assert.Equal(t, time.Second, cfg.SettleDelay)
	assert.Equal(t, []string{"wasm-pack", "build", "droneforge-web", "--release", "--target", "web"}, cfg.BuildCommand)
	assert.Len(t, cfg.Artifacts, 2)
	assert.Empty(t, cfg.ServerCommand)
	assert.True(t, cfg.Headless)
	assert.Equal(t, "#start-button", cfg.StartSelector)
	assert.Equal(t, "droneforgeMetrics", cfg.MetricsGlobal)
	assert.True(t, cfg.NeedsPrepare())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOADBENCH_MOCK", "1")
	t.Setenv("LOADBENCH_RUNS", "3")
	t.Setenv("LOADBENCH_SKIP_PREPARE", "true")
	t.Setenv("LOADBENCH_URL", "http://example.test/game.html")

	cfg, err := Load(New())
	require.NoError(t, err)
	assert.True(t, cfg.Mock)
	assert.Equal(t, "mock", cfg.Mode())
	assert.Equal(t, 3, cfg.Runs)
	assert.True(t, cfg.SkipPrepare)
	assert.False(t, cfg.NeedsPrepare())
	assert.Equal(t, "http://example.test/game.html", cfg.TargetURL())
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loadbench.yaml")
	body := "runs: 4\nport: 9090\nsettle-delay: 250ms\nserver-command:\n  - python3\n  - -m\n  - http.server\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	v := New()
	v.Set("config", path)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Runs)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.SettleDelay)
	assert.Equal(t, []string{"python3", "-m", "http.server"}, cfg.ServerCommand)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	v := New()
	v.Set("config", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load(v)
	require.Error(t, err)
}

func TestLoad_Validation(t *testing.T) {
	testCases := []struct {
		name string
		key  string
		val  any
	}{
		{name: "zero runs", key: "runs", val: 0},
		{name: "negative timeout", key: "timeout", val: -1},
		{name: "port too large", key: "port", val: 70000},
		{name: "port zero", key: "port", val: 0},
		{name: "no artifacts", key: "artifacts", val: []string{}},
		{name: "no build command", key: "build-command", val: ""},
		{name: "empty output", key: "output-dir", val: ""},
		{name: "no start selector", key: "start-selector", val: ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := New()
			v.Set(tc.key, tc.val)
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MockSkipsPrepareValidation(t *testing.T) {
	v := New()
	v.Set("mock", true)
	v.Set("artifacts", []string{})
	v.Set("build-command", "")
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.False(t, cfg.NeedsPrepare())
}
