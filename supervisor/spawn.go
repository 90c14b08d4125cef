// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"errors"
	"io"
	"os/exec"
)

// Command describes one bridge launch.
type Command struct {
	// Path is the absolute path of the bridge binary.
	Path string

	// Dir is the working directory.
	Dir string

	// Env is the complete environment. It is never nil, so the child
	// never inherits the hosting process's environment.
	Env []string

	Stdout io.Writer
	Stderr io.Writer
}

// Process is a launched bridge.
type Process interface {
	PID() int

	// Wait blocks until the process exits. A non-nil error that
	// implements ExitCode() int carries the exit status.
	Wait() error
}

// Spawner creates bridge processes. Production code uses ExecSpawner;
// tests inject fakes to count launches and capture commands.
type Spawner interface {
	Spawn(command Command) (Process, error)
}

// ExecSpawner launches processes with os/exec.
type ExecSpawner struct{}

// Spawn starts command and returns without waiting for it.
func (ExecSpawner) Spawn(command Command) (Process, error) {
	if command.Env == nil {
		return nil, errors.New("refusing to launch with an inherited environment")
	}
	cmd := exec.Command(command.Path)
	cmd.Dir = command.Dir
	cmd.Env = command.Env
	cmd.Stdout = command.Stdout
	cmd.Stderr = command.Stderr
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) PID() int { return p.cmd.Process.Pid }

func (p *execProcess) Wait() error { return p.cmd.Wait() }
