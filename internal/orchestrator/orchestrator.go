// internal/orchestrator/orchestrator.go
// Package: orchestrator

// Package orchestrator prepares and tears down the benchmark environment:
// build, port, static server and browser.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sirupsen/logrus"

	"github.com/mwiater/loadbench/internal/config"
	"github.com/mwiater/loadbench/internal/source"
)

var (
	// ErrArtifactMissing means the build finished without producing an
	// expected file.
	ErrArtifactMissing = errors.New("build artifact missing")
	// ErrServerNotReady means the static server never answered.
	ErrServerNotReady = errors.New("static server not ready")
)

// Orchestrator owns the server process and the browser for the lifetime of
// a harness run. Close releases both.
type Orchestrator struct {
	cfg   *config.Config
	log   *logrus.Entry
	ports *PortFreer

	runBuild func(ctx context.Context, argv []string) error
	spawn    func(argv []string, dir string) (serverProcess, error)
	launch   func(ctx context.Context, opts source.ChromeOptions) (*source.Chrome, error)

	probeAttempts uint
	probeDelay    time.Duration
	stopGrace     time.Duration

	server  serverProcess
	browser io.Closer
}

// New returns an orchestrator for cfg using the host's port strategy.
func New(cfg *config.Config, log *logrus.Entry) *Orchestrator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("component", "orchestrator")
	o := &Orchestrator{
		cfg:           cfg,
		log:           log,
		ports:         NewPortFreer(StrategyFor(runtime.GOOS), log),
		launch:        source.LaunchChrome,
		probeAttempts: 20,
		probeDelay:    250 * time.Millisecond,
		stopGrace:     3 * time.Second,
	}
	o.runBuild = o.execBuild
	o.spawn = func(argv []string, dir string) (serverProcess, error) {
		return spawnProcess(argv, dir, o.log.WithField("process", "server").WriterLevel(logrus.DebugLevel))
	}
	return o
}

// Prepare builds the artifact, frees the port and starts the server.
// Failures are fatal for the harness.
func (o *Orchestrator) Prepare(ctx context.Context) error {
	if err := o.Build(ctx); err != nil {
		return err
	}
	o.FreePort(ctx)
	return o.StartServer(ctx)
}

// Build runs the build command and checks that every artifact exists.
func (o *Orchestrator) Build(ctx context.Context) error {
	o.log.WithField("command", strings.Join(o.cfg.BuildCommand, " ")).Info("building")
	start := time.Now()
	if err := o.runBuild(ctx, o.cfg.BuildCommand); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	for _, a := range o.cfg.Artifacts {
		if _, err := os.Stat(a); err != nil {
			return fmt.Errorf("%w: %s", ErrArtifactMissing, a)
		}
	}
	o.log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("build finished")
	return nil
}

func (o *Orchestrator) execBuild(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty build command")
	}
	w := o.log.WithField("process", "build").WriterLevel(logrus.DebugLevel)
	defer w.Close()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = w
	cmd.Stderr = w
	return cmd.Run()
}

// FreePort terminates any listener on the configured port. Best effort.
func (o *Orchestrator) FreePort(ctx context.Context) {
	if killed := o.ports.Free(ctx, o.cfg.Port); len(killed) > 0 {
		// give the old listener a moment to release the socket
		time.Sleep(200 * time.Millisecond)
	}
}

// StartServer copies the artifacts into the serving directory, spawns the
// static server and waits until it answers.
func (o *Orchestrator) StartServer(ctx context.Context) error {
	dest := filepath.Join(o.cfg.ServeDir, o.cfg.ArtifactDir)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	for _, a := range o.cfg.Artifacts {
		if err := copyFile(a, filepath.Join(dest, filepath.Base(a))); err != nil {
			return fmt.Errorf("copy artifact: %w", err)
		}
	}

	argv, err := o.serverArgv()
	if err != nil {
		return err
	}
	proc, err := o.spawn(argv, "")
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	o.server = proc
	o.log.WithFields(logrus.Fields{"pid": proc.Pid(), "port": o.cfg.Port, "dir": o.cfg.ServeDir}).Info("server started")

	select {
	case <-time.After(o.cfg.SettleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return o.waitReady(ctx)
}

// serverArgv expands {port} and {dir} in the configured command, or runs
// this binary's serve subcommand.
func (o *Orchestrator) serverArgv() ([]string, error) {
	port := strconv.Itoa(o.cfg.Port)
	if len(o.cfg.ServerCommand) > 0 {
		argv := make([]string, len(o.cfg.ServerCommand))
		for i, a := range o.cfg.ServerCommand {
			a = strings.ReplaceAll(a, "{port}", port)
			argv[i] = strings.ReplaceAll(a, "{dir}", o.cfg.ServeDir)
		}
		return argv, nil
	}
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	return []string{self, "serve", "--dir", o.cfg.ServeDir, "--port", port}, nil
}

func (o *Orchestrator) waitReady(ctx context.Context) error {
	url := fmt.Sprintf("http://127.0.0.1:%d/", o.cfg.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	err := retry.New(
		retry.Attempts(o.probeAttempts),
		retry.Delay(o.probeDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	).Do(func() error {
		select {
		case werr := <-o.server.Done():
			return retry.Unrecoverable(fmt.Errorf("server exited: %v", werr))
		default:
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w on %s: %v", ErrServerNotReady, url, err)
	}
	return nil
}

// LaunchBrowser starts the shared Chrome instance. Its lifetime ends with
// Close, not with ctx, so an interrupt does not kill the running trial.
func (o *Orchestrator) LaunchBrowser(ctx context.Context) (*source.Chrome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chrome, err := o.launch(context.WithoutCancel(ctx), source.ChromeOptions{
		Headless: o.cfg.Headless,
		ExecPath: o.cfg.ChromePath,
	})
	if err != nil {
		return nil, err
	}
	o.browser = chrome
	o.log.WithField("browser", chrome.Product).Info("browser launched")
	return chrome, nil
}

// Close stops the browser and the server. Safe to call more than once.
func (o *Orchestrator) Close() error {
	var errs []error
	if o.browser != nil {
		if err := o.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
		o.browser = nil
	}
	if o.server != nil {
		pid := o.server.Pid()
		if err := o.server.Stop(o.stopGrace); err != nil {
			errs = append(errs, fmt.Errorf("stop server: %w", err))
		} else {
			o.log.WithField("pid", pid).Info("server stopped")
		}
		o.server = nil
	}
	return errors.Join(errs...)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
