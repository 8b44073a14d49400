package git

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a single git invocation.
const DefaultTimeout = 15 * time.Second

// Runner executes git with the given arguments inside dir.
// Implementations must be safe for concurrent use.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
}

// ExecRunner shells out to the git binary. Every call gets its own timeout,
// and an optional limiter throttles how often git is started.
type ExecRunner struct {
	Binary  string
	Timeout time.Duration
	Limiter *rate.Limiter
}

// NewExecRunner returns a runner for binary (default "git").
func NewExecRunner(binary string, timeout time.Duration, limiter *rate.Limiter) *ExecRunner {
	if binary == "" {
		binary = "git"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExecRunner{Binary: binary, Timeout: timeout, Limiter: limiter}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	if r.Limiter != nil {
		if err := r.Limiter.Wait(ctx); err != nil {
			return nil, &ToolError{Args: args, Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Dir = dir
	// helpers git started (textconv, ssh, credential) may outlive it and
	// keep the output pipes open
	cmd.WaitDelay = waitDelay(r.Timeout)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, &ToolError{
			Args:     args,
			Stderr:   strings.TrimSpace(stderr.String()),
			TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
			Err:      err,
		}
	}
	return out, nil
}

// waitDelay is how long Run waits for stray pipe holders after git itself
// has exited or been killed.
func waitDelay(timeout time.Duration) time.Duration {
	return min(max(timeout/10, 50*time.Millisecond), time.Second)
}
