package orchestrator

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/loadbench/internal/config"
	"github.com/mwiater/loadbench/internal/source"
)

type fakeProcess struct {
	done    chan error
	stopped bool
}

func newFakeProcess() *fakeProcess { return &fakeProcess{done: make(chan error, 1)} }

func (p *fakeProcess) Done() <-chan error { return p.done }
func (p *fakeProcess) Pid() int           { return 4242 }
func (p *fakeProcess) Stop(time.Duration) error {
	p.stopped = true
	return nil
}

type fakeCloser struct{ closed bool }

func (c *fakeCloser) Close() error {
	c.closed = true
	return nil
}

func quietLog() *logrus.Entry {
	l, _ := test.NewNullLogger()
	return logrus.NewEntry(l)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	artifact := filepath.Join(dir, "app_bg.wasm")
	require.NoError(t, os.WriteFile(artifact, []byte("\x00asm"), 0o644))
	return &config.Config{
		Runs:         1,
		TimeoutMS:    1000,
		Port:         8080,
		OutputDir:    filepath.Join(dir, "out"),
		BuildCommand: []string{"build"},
		Artifacts:    []string{artifact},
		ServeDir:     filepath.Join(dir, "web"),
		ArtifactDir:  "pkg",
	}
}

func portOf(t *testing.T, rawURL string) int {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	p, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return p
}

func unusedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestBuild_Success(t *testing.T) {
	cfg := testConfig(t)
	o := New(cfg, quietLog())
	var got []string
	o.runBuild = func(ctx context.Context, argv []string) error {
		got = argv
		return nil
	}
	require.NoError(t, o.Build(context.Background()))
	assert.Equal(t, []string{"build"}, got)
}

func TestBuild_MissingArtifactIsFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.Artifacts = append(cfg.Artifacts, filepath.Join(t.TempDir(), "missing.js"))
	o := New(cfg, quietLog())
	calls := 0
	o.runBuild = func(ctx context.Context, argv []string) error {
		calls++
		return nil
	}
	err := o.Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrArtifactMissing))
	assert.Equal(t, 1, calls, "no retry on a missing artifact")
}

func TestBuild_CommandFails(t *testing.T) {
	o := New(testConfig(t), quietLog())
	o.runBuild = func(ctx context.Context, argv []string) error { return errors.New("exit status 101") }
	err := o.Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build failed")
}

func TestStartServer_CopiesAndWaitsForReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(t)
	cfg.Port = portOf(t, srv.URL)
	o := New(cfg, quietLog())
	proc := newFakeProcess()
	var argv []string
	o.spawn = func(a []string, dir string) (serverProcess, error) {
		argv = a
		return proc, nil
	}

	require.NoError(t, o.StartServer(context.Background()))
	copied := filepath.Join(cfg.ServeDir, "pkg", "app_bg.wasm")
	b, err := os.ReadFile(copied)
	require.NoError(t, err)
	assert.Equal(t, "\x00asm", string(b))

	require.GreaterOrEqual(t, len(argv), 6)
	assert.Equal(t, []string{"serve", "--dir", cfg.ServeDir, "--port", strconv.Itoa(cfg.Port)}, argv[1:])

	require.NoError(t, o.Close())
	assert.True(t, proc.stopped)
	// second Close is a no-op
	require.NoError(t, o.Close())
}

func TestStartServer_NotReady(t *testing.T) {
	cfg := testConfig(t)
	cfg.Port = unusedPort(t)
	o := New(cfg, quietLog())
	o.probeAttempts = 2
	o.probeDelay = 10 * time.Millisecond
	proc := newFakeProcess()
	o.spawn = func([]string, string) (serverProcess, error) { return proc, nil }

	err := o.StartServer(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrServerNotReady))

	// teardown still stops the spawned process
	require.NoError(t, o.Close())
	assert.True(t, proc.stopped)
}

func TestStartServer_ProcessExited(t *testing.T) {
	cfg := testConfig(t)
	cfg.Port = unusedPort(t)
	o := New(cfg, quietLog())
	o.probeAttempts = 50
	o.probeDelay = 50 * time.Millisecond
	proc := newFakeProcess()
	proc.done <- errors.New("address already in use")
	o.spawn = func([]string, string) (serverProcess, error) { return proc, nil }

	start := time.Now()
	err := o.StartServer(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrServerNotReady))
	assert.Contains(t, err.Error(), "address already in use")
	assert.Less(t, time.Since(start), 2*time.Second, "an exited server must not be retried")
}

func TestStartServer_SpawnError(t *testing.T) {
	o := New(testConfig(t), quietLog())
	o.spawn = func([]string, string) (serverProcess, error) { return nil, errors.New("no such file") }
	err := o.StartServer(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start server")
	require.NoError(t, o.Close())
}

func TestServerArgv_Placeholders(t *testing.T) {
	cfg := testConfig(t)
	cfg.Port = 9000
	cfg.ServeDir = "public"
	cfg.ServerCommand = []string{"python3", "-m", "http.server", "{port}", "--directory", "{dir}"}
	o := New(cfg, quietLog())
	argv, err := o.serverArgv()
	require.NoError(t, err)
	assert.Equal(t, []string{"python3", "-m", "http.server", "9000", "--directory", "public"}, argv)
}

func TestPrepare_StopsAtBuildFailure(t *testing.T) {
	o := New(testConfig(t), quietLog())
	o.runBuild = func(context.Context, []string) error { return errors.New("boom") }
	spawned := false
	o.spawn = func([]string, string) (serverProcess, error) {
		spawned = true
		return newFakeProcess(), nil
	}
	o.ports.Strategy = PortStrategyNone

	require.Error(t, o.Prepare(context.Background()))
	assert.False(t, spawned)
}

func TestClose_ReleasesBrowser(t *testing.T) {
	o := New(testConfig(t), quietLog())
	b := &fakeCloser{}
	o.browser = b
	require.NoError(t, o.Close())
	assert.True(t, b.closed)
}

func TestLaunchBrowser_OutlivesCallerContext(t *testing.T) {
	cfg := testConfig(t)
	cfg.Headless = true
	o := New(cfg, quietLog())
	var launchCtx context.Context
	o.launch = func(ctx context.Context, opts source.ChromeOptions) (*source.Chrome, error) {
		launchCtx = ctx
		assert.True(t, opts.Headless)
		return &source.Chrome{Product: "HeadlessChrome/126.0"}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	chrome, err := o.LaunchBrowser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "HeadlessChrome/126.0", chrome.Product)

	cancel()
	require.NotNil(t, launchCtx)
	assert.NoError(t, launchCtx.Err())
}

func TestLaunchBrowser_CancelledBeforeLaunch(t *testing.T) {
	o := New(testConfig(t), quietLog())
	o.launch = func(context.Context, source.ChromeOptions) (*source.Chrome, error) {
		t.Fatal("launch must not run")
		return nil, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.LaunchBrowser(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
