//go:build !unix

// internal/orchestrator/process_other.go
// Package: orchestrator
package orchestrator

import (
	"os"
	"os/exec"
)

func setProcessGroup(*exec.Cmd) {}

// interruptGroup kills outright; there is no portable interrupt here.
func interruptGroup(p *os.Process) error { return p.Kill() }

func killGroup(p *os.Process) error { return p.Kill() }
