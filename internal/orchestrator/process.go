// internal/orchestrator/process.go
// Package: orchestrator
package orchestrator

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"
)

// pipeDrain bounds how long Wait keeps copying output after the server
// exits, in case a descendant still holds the pipe.
const pipeDrain = 2 * time.Second

// serverProcess is a spawned static file server.
type serverProcess interface {
	// Done delivers the process exit status once.
	Done() <-chan error
	// Stop asks the process to exit, killing it after grace.
	Stop(grace time.Duration) error
	Pid() int
}

type execProcess struct {
	cmd  *exec.Cmd
	done chan error
}

// spawnProcess starts argv in dir with output forwarded to out.
func spawnProcess(argv []string, dir string, out io.Writer) (serverProcess, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty server command")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.WaitDelay = pipeDrain
	setProcessGroup(cmd)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}
	p := &execProcess{cmd: cmd, done: make(chan error, 1)}
	go func() {
		p.done <- cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

func (p *execProcess) Done() <-chan error { return p.done }

func (p *execProcess) Pid() int { return p.cmd.Process.Pid }

// Stop interrupts the server's process group, kills the group after grace
// and waits for the server to be reaped.
func (p *execProcess) Stop(grace time.Duration) error {
	select {
	case <-p.done:
		// the server is gone; descendants may still be running
		_ = killGroup(p.cmd.Process)
		return nil
	default:
	}

	if err := interruptGroup(p.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	select {
	case <-p.done:
		_ = killGroup(p.cmd.Process)
		return nil
	case <-time.After(grace):
	}
	if err := killGroup(p.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	<-p.done
	return nil
}
