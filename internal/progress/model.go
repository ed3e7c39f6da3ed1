// internal/progress/model.go
// Package: progress

// Package progress reports trial progress, either as a Bubble Tea view or
// as plain lines for non-interactive output.
package progress

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mwiater/loadbench/internal/metrics"
)

// recentLimit bounds the trial log shown under the bar.
const recentLimit = 5

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// TrialStartedMsg is sent before a trial begins.
type TrialStartedMsg struct {
	Run   int
	Total int
}

// TrialFinishedMsg carries a recorded trial.
type TrialFinishedMsg struct {
	Result metrics.RunResult
	Done   int
	Total  int
}

// DoneMsg ends the program once the loop has returned.
type DoneMsg struct {
	Err error
}

// Model is the Bubble Tea model for a benchmark in progress.
type Model struct {
	mode        string
	total       int
	current     int
	done        int
	failed      int
	recent      []string
	spinner     spinner.Model
	bar         progress.Model
	start       time.Time
	finished    bool
	interrupted bool
	err         error
}

// NewModel returns a model for total trials in the given mode.
func NewModel(total int, mode string) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return &Model{
		mode:    mode,
		total:   total,
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		start:   time.Now(),
	}
}

// Init starts the spinner.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles trial messages and the quit keys.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.interrupted = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		w := msg.Width - 20
		if w > 60 {
			w = 60
		}
		if w < 10 {
			w = 10
		}
		m.bar.Width = w
	case TrialStartedMsg:
		m.current = msg.Run
		m.total = msg.Total
	case TrialFinishedMsg:
		m.done = msg.Done
		m.total = msg.Total
		if msg.Result.Failed() {
			m.failed++
		}
		m.recent = append(m.recent, trialLine(msg.Result))
		if len(m.recent) > recentLimit {
			m.recent = m.recent[len(m.recent)-recentLimit:]
		}
	case DoneMsg:
		m.finished = true
		m.err = msg.Err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the header, bar and recent trials.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString("\n  " + headerStyle.Render(fmt.Sprintf("loadbench (%s)", m.mode)) + "\n\n")

	pct := 0.0
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}
	status := fmt.Sprintf("%d/%d", m.done, m.total)
	if m.failed > 0 {
		status += failStyle.Render(fmt.Sprintf(" (%d failed)", m.failed))
	}
	b.WriteString("  " + m.bar.ViewAs(pct) + "  " + status + "\n")

	if !m.finished && !m.interrupted && m.current > 0 && m.done < m.total {
		elapsed := time.Since(m.start).Round(time.Second)
		fmt.Fprintf(&b, "\n  %s trial %d running... %s\n", m.spinner.View(), m.current, elapsed)
	}
	if len(m.recent) > 0 {
		b.WriteString("\n")
		for _, line := range m.recent {
			b.WriteString("  " + line + "\n")
		}
	}
	switch {
	case m.interrupted:
		b.WriteString("\n  " + failStyle.Render("interrupted") + "\n")
	case m.finished && m.err != nil:
		b.WriteString("\n  " + failStyle.Render(m.err.Error()) + "\n")
	case m.finished:
		b.WriteString("\n  " + okStyle.Render("done") + "\n")
	default:
		b.WriteString("\n  " + hintStyle.Render("q: stop after the current trial") + "\n")
	}
	return b.String()
}

// Interrupted reports whether the user asked to stop.
func (m *Model) Interrupted() bool {
	return m.interrupted
}

// trialLine summarizes one trial in a single line.
func trialLine(r metrics.RunResult) string {
	if r.Failed() {
		return failStyle.Render(fmt.Sprintf("run %d failed: %s", r.Run, r.Error))
	}
	return okStyle.Render(fmt.Sprintf("run %d ok", r.Run)) + " " + hintStyle.Render(headline(r))
}

// headline picks the metrics worth a glance while trials run.
func headline(r metrics.RunResult) string {
	parts := make([]string, 0, 2)
	if v := r.Values[metrics.LoadingFirstFrame]; v != nil {
		parts = append(parts, fmt.Sprintf("first frame %.0fms", *v))
	}
	if v := r.Values[metrics.FirstFps]; v != nil {
		parts = append(parts, fmt.Sprintf("%.1f fps", *v))
	}
	return strings.Join(parts, ", ")
}

// ProgramObserver forwards runner callbacks to a running program.
type ProgramObserver struct {
	Program *tea.Program
}

// TrialStarted implements bench.Observer.
func (o ProgramObserver) TrialStarted(run, total int) {
	o.Program.Send(TrialStartedMsg{Run: run, Total: total})
}

// TrialFinished implements bench.Observer.
func (o ProgramObserver) TrialFinished(r metrics.RunResult, done, total int) {
	o.Program.Send(TrialFinishedMsg{Result: r, Done: done, Total: total})
}
