// Package executil runs the subject parser as a child process and captures
// its result.
package executil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"time"

	"github.com/lattice-substrate/joml-conformance/runerr"
)

// waitDelay bounds how long Run waits for the output pipes to drain after the
// child is killed, in case the child left descendants holding them open.
const waitDelay = 2 * time.Second

// Result is the captured outcome of one subject invocation.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
	// TimedOut is set when the child was killed at the runner's deadline.
	TimedOut bool
}

// Runner abstracts subject execution.
type Runner interface {
	Run(ctx context.Context, argv []string) (*Result, error)
}

// OSRunner executes commands on the host.
type OSRunner struct {
	// Timeout bounds each invocation; zero means no bound.
	Timeout time.Duration
	// Env is merged over the inherited environment.
	Env map[string]string
	// Dir is the child's working directory; empty inherits the caller's.
	Dir string
}

// Run executes argv once, capturing stdout and stderr separately and in
// full. A non-zero exit is reported through Result.ExitCode, not as an error;
// the returned error is reserved for failures to start the child.
func (r OSRunner) Run(ctx context.Context, argv []string) (*Result, error) {
	if len(argv) == 0 {
		return nil, runerr.New(runerr.CLIUsage, "", "empty argv")
	}

	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	// #nosec G204 -- argv is the operator-supplied subject binary and a fixture path.
	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = r.Dir
	cmd.WaitDelay = waitDelay
	killProcessGroup(cmd)
	if len(r.Env) != 0 {
		keys := make([]string, 0, len(r.Env))
		for k := range r.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		merged := cmd.Environ()
		for _, k := range keys {
			merged = append(merged, fmt.Sprintf("%s=%s", k, r.Env[k]))
		}
		cmd.Env = merged
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, runerr.Wrap(runerr.SubjectLaunch, argv[0], "start subject", err)
	}
	err := cmd.Wait()
	res := &Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err != nil && runCtx.Err() == nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) && !errors.Is(err, exec.ErrWaitDelay) {
			return nil, runerr.Wrap(runerr.InternalIO, argv[0], "wait for subject", err)
		}
	}
	if runCtx.Err() != nil && ctx.Err() == nil {
		res.TimedOut = true
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return res, nil
}
