package executor

import (
	"bufio"
	gocontext "context"
	"time"

	"regatta/pkg/api"
	"regatta/pkg/util/context"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/pkg/errors"
)

const (
	labelRun      = "regatta/run"
	labelInstance = "regatta/instance"
)

// dockerExecutor runs each step inside a fresh container of a fixed image.
// It is the containerized backend bound to a matrix axis value, e.g.
// os=ubuntu -> ubuntu:22.04.
type dockerExecutor struct {
	cli   *client.Client
	image string
}

// NewDockerExecutor returns an executor running steps in containers of the
// given image, using the docker daemon configured by the environment.
func NewDockerExecutor(image string) (Executor, error) {
	cli, err := client.NewEnvClient()
	if err != nil {
		return nil, errors.Wrap(err, "cannot create docker client")
	}
	return &dockerExecutor{cli: cli, image: image}, nil
}

// RunStep implements Executor. A create/start error is a launch error: the
// step failed before its command ever ran.
func (d *dockerExecutor) RunStep(ctx context.Context, step api.StepSpec, opts StepOptions) api.StepResult {
	start := time.Now()
	res := api.StepResult{
		Name:      step.DisplayName(),
		StartTime: &start,
	}

	runCtx, cancel := gocontext.WithTimeout(ctx, opts.timeout(step))
	defer cancel()

	created, err := d.cli.ContainerCreate(runCtx, &container.Config{
		Image:      d.image,
		Cmd:        []string{"/bin/sh", "-c", step.Run},
		Env:        opts.Env,
		WorkingDir: step.WorkDir,
		Tty:        true,
		Labels: map[string]string{
			labelRun:      ctx.RunID(),
			labelInstance: ctx.InstanceID(),
		},
	}, &container.HostConfig{}, nil, "")
	if err != nil {
		return d.launchFailure(ctx, res, err)
	}
	id := created.ID
	defer d.remove(ctx, id)

	if err := d.cli.ContainerStart(runCtx, id, types.ContainerStartOptions{}); err != nil {
		return d.launchFailure(ctx, res, err)
	}

	type waitResult struct {
		code int64
		err  error
	}
	done := make(chan waitResult, 1)
	go func() {
		code, werr := d.cli.ContainerWait(gocontext.Background(), id)
		done <- waitResult{code: code, err: werr}
	}()

	select {
	case <-runCtx.Done():
		// Forcibly terminate the step.
		grace := time.Duration(0)
		if err := d.cli.ContainerStop(gocontext.Background(), id, &grace); err != nil {
			ctx.Logger().Errorf("cannot stop container %s: %s", id, err)
		}
		end := time.Now()
		res.EndTime = &end
		res.Output = d.logs(ctx, id)
		res.Outcome = api.StatusTimedOut
		res.ExitCode = -1
		return res
	case w := <-done:
		end := time.Now()
		res.EndTime = &end
		res.Output = d.logs(ctx, id)
		if w.err != nil {
			res.Outcome = api.StatusFailed
			res.ExitCode = -1
			res.LaunchError = w.err.Error()
			return res
		}
		res.ExitCode = int(w.code)
		if w.code == 0 {
			res.Outcome = api.StatusSucceeded
		} else {
			res.Outcome = api.StatusFailed
		}
		return res
	}
}

func (d *dockerExecutor) launchFailure(ctx context.Context, res api.StepResult, err error) api.StepResult {
	end := time.Now()
	res.EndTime = &end
	res.Outcome = api.StatusFailed
	res.ExitCode = -1
	res.LaunchError = err.Error()
	ctx.Logger().Errorf("cannot launch step %q in image %s: %s", res.Name, d.image, err)
	return res
}

func (d *dockerExecutor) logs(ctx context.Context, id string) []string {
	rc, err := d.cli.ContainerLogs(gocontext.Background(), id, types.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		ctx.Logger().Errorf("cannot read logs of container %s: %s", id, err)
		return nil
	}
	defer rc.Close()

	var lines []string
	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func (d *dockerExecutor) remove(ctx context.Context, id string) {
	if err := d.cli.ContainerRemove(gocontext.Background(), id, types.ContainerRemoveOptions{Force: true}); err != nil {
		ctx.Logger().Errorf("cannot remove container %s: %s", id, err)
	}
}
