package executor

import (
	"bytes"
	gocontext "context"
	"os"
	"os/exec"
	"sync"
	"time"

	"regatta/pkg/api"
	"regatta/pkg/util/context"
)

// LocalExecutor runs steps with the host shell.
type LocalExecutor struct {
	// Shell is the interpreter used for run commands, /bin/sh by default.
	Shell string
}

// NewLocalExecutor returns a new LocalExecutor.
func NewLocalExecutor() *LocalExecutor {
	return &LocalExecutor{}
}

// RunStep implements Executor.
func (e *LocalExecutor) RunStep(ctx context.Context, step api.StepSpec, opts StepOptions) api.StepResult {
	start := time.Now()
	res := api.StepResult{
		Name:      step.DisplayName(),
		StartTime: &start,
	}

	runCtx, cancel := gocontext.WithTimeout(ctx, opts.timeout(step))
	defer cancel()

	shell := e.Shell
	if shell == "" {
		shell = "/bin/sh"
	}
	cmd := exec.CommandContext(runCtx, shell, "-c", step.Run)

	// stdout and stderr share one buffer so lines keep the order they were
	// produced in, best-effort across the two pipes.
	var out lineBuffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.Env = append(os.Environ(), opts.Env...)
	if step.WorkDir != "" {
		cmd.Dir = step.WorkDir
	} else {
		cmd.Dir = opts.WorkDir
	}

	if err := cmd.Start(); err != nil {
		end := time.Now()
		res.EndTime = &end
		res.Outcome = api.StatusFailed
		res.ExitCode = -1
		res.LaunchError = err.Error()
		ctx.Logger().Errorf("cannot start step %q: %s", res.Name, err)
		return res
	}

	err := cmd.Wait()
	end := time.Now()
	res.EndTime = &end
	res.Output = out.Lines()

	switch {
	case runCtx.Err() == gocontext.DeadlineExceeded:
		res.Outcome = api.StatusTimedOut
		res.ExitCode = -1
	case err != nil:
		res.Outcome = api.StatusFailed
		res.ExitCode = cmd.ProcessState.ExitCode()
	default:
		res.Outcome = api.StatusSucceeded
	}
	return res
}

// lineBuffer collects writes from both output streams into whole lines.
type lineBuffer struct {
	mu      sync.Mutex
	lines   []string
	partial []byte
}

func (b *lineBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.partial = append(b.partial, p...)
	for {
		i := bytes.IndexByte(b.partial, '\n')
		if i < 0 {
			break
		}
		b.lines = append(b.lines, string(b.partial[:i]))
		b.partial = b.partial[i+1:]
	}
	return len(p), nil
}

// Lines returns the captured lines, including a trailing line not terminated
// by a newline.
func (b *lineBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	lines := make([]string, len(b.lines), len(b.lines)+1)
	copy(lines, b.lines)
	if len(b.partial) > 0 {
		lines = append(lines, string(b.partial))
	}
	return lines
}
