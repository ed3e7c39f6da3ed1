// internal/orchestrator/ports.go
// Package: orchestrator
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
)

// PortStrategy selects how listeners on a port are found and terminated.
type PortStrategy int

const (
	// PortStrategyNone leaves the port alone.
	PortStrategyNone PortStrategy = iota
	// PortStrategyLsof finds listeners with lsof and sends SIGTERM.
	PortStrategyLsof
	// PortStrategyNetstat finds listeners with netstat -ano and kills them.
	PortStrategyNetstat
)

func (s PortStrategy) String() string {
	switch s {
	case PortStrategyLsof:
		return "lsof"
	case PortStrategyNetstat:
		return "netstat"
	default:
		return "none"
	}
}

// StrategyFor returns the strategy for a GOOS value.
func StrategyFor(goos string) PortStrategy {
	switch goos {
	case "windows":
		return PortStrategyNetstat
	case "linux", "darwin", "freebsd", "openbsd", "netbsd", "dragonfly", "solaris", "illumos", "aix":
		return PortStrategyLsof
	default:
		return PortStrategyNone
	}
}

// PortFreer terminates whatever listens on a TCP port. Every failure is
// swallowed; an idle port is the common case.
type PortFreer struct {
	Strategy PortStrategy

	output func(ctx context.Context, name string, args ...string) ([]byte, error)
	kill   func(pid int) error
	self   int
	log    *logrus.Entry
}

// NewPortFreer returns a freer using the real process table.
func NewPortFreer(strategy PortStrategy, log *logrus.Entry) *PortFreer {
	f := &PortFreer{
		Strategy: strategy,
		output: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
		self: os.Getpid(),
		log:  log,
	}
	f.kill = func(pid int) error { return killPID(f.Strategy, pid) }
	return f
}

// Free terminates the listeners on port and returns the PIDs it signalled.
func (f *PortFreer) Free(ctx context.Context, port int) []int {
	pids, err := f.find(ctx, port)
	if err != nil {
		f.log.WithFields(logrus.Fields{"port": port, "strategy": f.Strategy, "err": err}).Debug("no listener found")
		return nil
	}

	var killed []int
	for _, pid := range pids {
		if pid == f.self {
			continue
		}
		if err := f.kill(pid); err != nil {
			f.log.WithFields(logrus.Fields{"port": port, "pid": pid, "err": err}).Debug("could not terminate listener")
			continue
		}
		killed = append(killed, pid)
	}
	if len(killed) > 0 {
		f.log.WithFields(logrus.Fields{"port": port, "pids": killed}).Info("freed port")
	}
	return killed
}

func (f *PortFreer) find(ctx context.Context, port int) ([]int, error) {
	switch f.Strategy {
	case PortStrategyLsof:
		// lsof exits 1 when nothing matches.
		out, err := f.output(ctx, "lsof", "-tiTCP:"+strconv.Itoa(port), "-sTCP:LISTEN")
		if err != nil {
			return nil, fmt.Errorf("lsof: %w", err)
		}
		return parseLsofPIDs(string(out)), nil
	case PortStrategyNetstat:
		out, err := f.output(ctx, "netstat", "-ano")
		if err != nil {
			return nil, fmt.Errorf("netstat: %w", err)
		}
		return parseNetstatPIDs(string(out), port), nil
	default:
		return nil, nil
	}
}

// parseLsofPIDs extracts PIDs from lsof -t output (one PID per line).
func parseLsofPIDs(output string) []int {
	var pids []int
	for _, p := range strings.Split(strings.TrimSpace(output), "\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if pid, err := strconv.Atoi(p); err == nil && pid > 0 {
			pids = append(pids, pid)
		}
	}
	return dedupe(pids)
}

// parseNetstatPIDs extracts listening PIDs for port from Windows netstat
// output. Format: TCP  0.0.0.0:7890  0.0.0.0:0  LISTENING  <PID>
func parseNetstatPIDs(output string, port int) []int {
	var pids []int
	suffix := ":" + strconv.Itoa(port)
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 5 || !strings.EqualFold(fields[3], "LISTENING") {
			continue
		}
		// match the local address exactly so :80 does not match :8080
		if !strings.HasSuffix(fields[1], suffix) {
			continue
		}
		if pid, err := strconv.Atoi(fields[len(fields)-1]); err == nil && pid > 0 {
			pids = append(pids, pid)
		}
	}
	return dedupe(pids)
}

func dedupe(pids []int) []int {
	seen := make(map[int]bool, len(pids))
	out := pids[:0]
	for _, p := range pids {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// killPID sends SIGTERM on unix-likes; Windows has no SIGTERM delivery, so
// the process is killed outright.
func killPID(strategy PortStrategy, pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}
	if strategy == PortStrategyNetstat {
		return process.Kill()
	}
	return process.Signal(syscall.SIGTERM)
}
