// internal/progress/line.go
// Package: progress
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/progress"
	"golang.org/x/term"

	"github.com/mwiater/loadbench/internal/metrics"
)

// Line prints one status line per trial. On a terminal the line is redrawn
// in place with a progress bar; elsewhere every event gets its own line.
type Line struct {
	out         io.Writer
	interactive bool
	bar         progress.Model
}

// NewLine returns a line observer writing to out.
func NewLine(out io.Writer, interactive bool) *Line {
	return &Line{
		out:         out,
		interactive: interactive,
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(30), progress.WithoutPercentage()),
	}
}

// TrialStarted implements bench.Observer.
func (l *Line) TrialStarted(run, total int) {
	if l.interactive {
		fmt.Fprintf(l.out, "\r%s  run %d/%d ...", l.bar.ViewAs(ratio(run-1, total)), run, total)
		return
	}
	fmt.Fprintf(l.out, "run %d/%d started\n", run, total)
}

// TrialFinished implements bench.Observer.
func (l *Line) TrialFinished(r metrics.RunResult, done, total int) {
	status := "ok"
	if r.Failed() {
		status = "failed: " + r.Error
	} else if h := headline(r); h != "" {
		status = "ok (" + h + ")"
	}
	if l.interactive {
		fmt.Fprintf(l.out, "\r\033[K%s  run %d/%d %s", l.bar.ViewAs(ratio(done, total)), r.Run, total, status)
		if done == total {
			fmt.Fprintln(l.out)
		}
		return
	}
	fmt.Fprintf(l.out, "run %d/%d %s\n", r.Run, total, status)
}

func ratio(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
