package engine

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"
)

// gracefulStopWait bounds how long a cancelled engine process may keep
// running after the interrupt before it is killed.
const gracefulStopWait = 5 * time.Second

// commandResult is an internal process execution response. Stdout is
// streamed line by line, so only stderr is captured whole.
type commandResult struct {
	Stderr   string
	ExitCode int
}

// commandRunner abstracts streaming process execution for testability.
// onLine receives each stdout line as it arrives; line boundaries double
// as the worker's cancellation checkpoints.
type commandRunner interface {
	Run(ctx context.Context, name string, args []string, onLine func(string)) (commandResult, error)
}

// execRunner executes commands via os/exec with interrupt-then-kill stop.
type execRunner struct{}

// Run starts the process, streams its stdout lines, and waits for exit.
// On context cancellation the process receives an interrupt and is killed
// after the graceful wait.
func (r *execRunner) Run(ctx context.Context, name string, args []string, onLine func(string)) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = gracefulStopWait

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return commandResult{ExitCode: -1}, err
	}
	if err := cmd.Start(); err != nil {
		return commandResult{ExitCode: -1}, err
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" && onLine != nil {
			onLine(line)
		}
	}

	err = cmd.Wait()
	result := commandResult{
		Stderr:   stderr.String(),
		ExitCode: 0,
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}

	return result, nil
}
