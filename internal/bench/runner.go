// internal/bench/runner.go
// Package: bench

// Package bench runs the trial loop and assembles the report payload.
package bench

import (
	"context"
	"errors"
	"os"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mwiater/loadbench/internal/metrics"
	"github.com/mwiater/loadbench/internal/source"
)

// Observer is notified around every trial.
type Observer interface {
	TrialStarted(run, total int)
	TrialFinished(result metrics.RunResult, done, total int)
}

// Options configures a Runner.
type Options struct {
	Runs int
	Mode string
	URL  string
}

// Runner executes trials strictly one after another against a single
// source.
type Runner struct {
	src      source.RunSource
	opts     Options
	observer Observer
	log      *logrus.Entry
	now      func() time.Time
}

// NewRunner returns a runner. observer may be nil.
func NewRunner(src source.RunSource, opts Options, observer Observer, log *logrus.Entry) *Runner {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Runner{
		src:      src,
		opts:     opts,
		observer: observer,
		log:      log.WithField("component", "runner"),
		now:      time.Now,
	}
}

// Run executes every trial and returns the payload. A failed trial is
// recorded and the loop continues. Cancelling ctx lets the current trial
// finish, then returns the runs recorded so far with ctx's error.
func (r *Runner) Run(ctx context.Context) (Payload, error) {
	env := CollectEnvironment()
	id := r.src.Identity()
	env.Browser = id.Browser

	runs := make([]metrics.RunResult, 0, r.opts.Runs)
	var runErr error
	for i := 1; i <= r.opts.Runs; i++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			r.log.WithFields(logrus.Fields{"completed": len(runs), "err": err}).Warn("benchmark interrupted")
			break
		}
		if r.observer != nil {
			r.observer.TrialStarted(i, r.opts.Runs)
		}

		// a started trial runs to completion; only its own step timeouts apply
		start := time.Now()
		res := source.Trial(context.WithoutCancel(ctx), r.src, i)
		runs = append(runs, res)

		fields := logrus.Fields{"run": i, "elapsed": time.Since(start).Round(time.Millisecond)}
		if res.Failed() {
			fields["err"] = res.Error
			r.log.WithFields(fields).Warn("trial failed")
		} else {
			r.log.WithFields(fields).Debug("trial finished")
		}
		if r.observer != nil {
			r.observer.TrialFinished(res, len(runs), r.opts.Runs)
		}
	}

	// the user agent is only known after the first live trial
	id = r.src.Identity()
	env.Browser = id.Browser
	env.UserAgent = id.UserAgent

	return BuildPayload(r.opts, env, runs, r.now()), runErr
}

// BuildPayload assembles the report payload from recorded runs.
func BuildPayload(opts Options, env Environment, runs []metrics.RunResult, generatedAt time.Time) Payload {
	if runs == nil {
		runs = []metrics.RunResult{}
	}
	return Payload{
		GeneratedAt: generatedAt.UTC(),
		Mode:        opts.Mode,
		Runs:        opts.Runs,
		URL:         opts.URL,
		Environment: env,
		Metrics:     PerRun{PerRun: runs},
		Aggregates:  metrics.BuildAggregates(runs),
	}
}

// CollectEnvironment captures host details once at startup.
func CollectEnvironment() Environment {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return Environment{
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
		CPUs:      runtime.NumCPU(),
		GoVersion: runtime.Version(),
		Hostname:  host,
	}
}

// IsInterrupted reports whether err came from cancelling the run.
func IsInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
