// cmd/loadbench/run.go
package loadbench

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/k0kubun/pp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwiater/loadbench/internal/bench"
	"github.com/mwiater/loadbench/internal/config"
	"github.com/mwiater/loadbench/internal/logging"
	"github.com/mwiater/loadbench/internal/orchestrator"
	"github.com/mwiater/loadbench/internal/progress"
	"github.com/mwiater/loadbench/internal/report"
	"github.com/mwiater/loadbench/internal/source"
)

// logFile receives the log stream while the progress view owns the terminal.
const logFile = "loadbench.log"

var runViper = config.New()

// runCmd represents the 'run' command.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the load-time benchmark",
	Long: `The 'run' command builds and serves the client, loads it in a headless
browser once per trial and writes load-metrics.json and load-metrics.md to the
output directory. With --mock it skips all of that and reports deterministic
synthetic metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBenchmark(cmd.Context(), runViper, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	f := runCmd.Flags()
	f.String("url", "", "Page under test (default http://127.0.0.1:<port>/)")
	f.Int("runs", 10, "Number of trials")
	f.Int("timeout", 120000, "Per-step wait limit in milliseconds")
	f.Bool("mock", false, "Produce synthetic metrics without a browser")
	f.Bool("skip-prepare", false, "Skip the build and local server")
	f.Int("port", 8080, "Port of the local static server")
	f.String("output-dir", "bench-results", "Directory for the reports")
	f.String("config", "", "Optional config file (yaml, json or toml)")
	f.String("serve-dir", "web", "Directory served to the browser")
	f.Bool("headless", true, "Run Chrome headless")
	f.String("chrome-path", "", "Chrome executable (default: autodetect)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text or json)")
	f.Bool("tui", false, "Show the interactive progress view")
	f.Bool("debug", false, "Print the resolved configuration")

	_ = runViper.BindPFlags(f)
	rootCmd.AddCommand(runCmd)
}

// runBenchmark resolves the configuration, prepares the environment, runs
// every trial and writes the reports. Only orchestration and report
// failures are returned; failed trials are part of the report.
func runBenchmark(ctx context.Context, v *viper.Viper, out, errOut io.Writer) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	if cfg.Debug {
		pp.Fprintln(errOut, cfg)
	}

	useTUI := cfg.TUI && isTerminal(out)
	logOut := errOut
	if useTUI {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		f, err := os.Create(filepath.Join(cfg.OutputDir, logFile))
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, logOut)
	if err != nil {
		return err
	}
	log := logging.Component(logger, "cli")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	// the first signal stops after the current trial; a second one exits
	context.AfterFunc(ctx, stop)

	src, cleanup, err := newSource(ctx, cfg, logrus.NewEntry(logger))
	defer cleanup()
	if err != nil {
		return err
	}

	opts := bench.Options{Runs: cfg.Runs, Mode: cfg.Mode(), URL: cfg.TargetURL()}
	log.WithFields(logrus.Fields{"mode": opts.Mode, "runs": opts.Runs, "url": opts.URL}).Info("benchmark starting")

	var payload bench.Payload
	var runErr error
	if useTUI {
		payload, runErr = runWithTUI(ctx, cfg, src, opts, out, logrus.NewEntry(logger))
	} else {
		observer := progress.NewLine(errOut, isTerminal(errOut))
		payload, runErr = bench.NewRunner(src, opts, observer, logrus.NewEntry(logger)).Run(ctx)
	}
	if runErr != nil {
		if !bench.IsInterrupted(runErr) {
			return runErr
		}
		log.WithField("recorded", len(payload.Metrics.PerRun)).Warn("interrupted, writing partial report")
	}

	jsonPath, mdPath, err := report.Write(cfg.OutputDir, payload)
	if err != nil {
		return err
	}
	fmt.Fprint(out, report.Console(payload))
	fmt.Fprintf(out, "\nWrote %s and %s\n", jsonPath, mdPath)
	log.WithFields(logrus.Fields{"succeeded": payload.Succeeded(), "json": jsonPath, "markdown": mdPath}).Info("benchmark finished")
	return nil
}

// newSource returns the run source for cfg. The cleanup func is always
// safe to call, including after an error.
func newSource(ctx context.Context, cfg *config.Config, entry *logrus.Entry) (source.RunSource, func(), error) {
	if cfg.Mock {
		return source.NewSynthetic(), func() {}, nil
	}

	orch := orchestrator.New(cfg, entry)
	cleanup := func() {
		if err := orch.Close(); err != nil {
			entry.WithError(err).Warn("cleanup failed")
		}
	}
	if cfg.NeedsPrepare() {
		if err := orch.Prepare(ctx); err != nil {
			return nil, cleanup, err
		}
	}
	chrome, err := orch.LaunchBrowser(ctx)
	if err != nil {
		return nil, cleanup, err
	}
	return source.NewBrowser(chrome, source.BrowserOptions{
		URL:           cfg.TargetURL(),
		Timeout:       cfg.Timeout(),
		StartSelector: cfg.StartSelector,
		MetricsGlobal: cfg.MetricsGlobal,
		Product:       chrome.Product,
	}, entry), cleanup, nil
}

// runWithTUI drives the runner from a goroutine while the Bubble Tea
// program owns the terminal. Quitting the view stops after the current
// trial.
func runWithTUI(ctx context.Context, cfg *config.Config, src source.RunSource, opts bench.Options, out io.Writer, entry *logrus.Entry) (bench.Payload, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := progress.NewModel(cfg.Runs, opts.Mode)
	p := tea.NewProgram(model, tea.WithOutput(out))

	var payload bench.Payload
	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		payload, runErr = bench.NewRunner(src, opts, progress.ProgramObserver{Program: p}, entry).Run(ctx)
		p.Send(progress.DoneMsg{Err: runErr})
	}()

	if _, err := p.Run(); err != nil {
		entry.WithError(err).Warn("progress view failed")
		cancel()
	}
	if model.Interrupted() {
		cancel()
		fmt.Fprintln(out, "stopping after the current trial...")
	}
	<-done
	return payload, runErr
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && progress.IsTerminal(f)
}
