package cmd

import (
	gocontext "context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"regatta/pkg/api"
	"regatta/pkg/events"
	"regatta/pkg/executor"
	"regatta/pkg/report"
	"regatta/pkg/runner"
	"regatta/pkg/scheduler"
	"regatta/pkg/store"
	"regatta/pkg/util/context"

	tm "github.com/buger/goterm"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Exit codes of the run command.
const (
	exitSuccess   = 0
	exitFailure   = 1
	exitSpecError = 2
)

type runOpts struct {
	maxParallel int           // --max-parallel
	quiet       bool          // --quiet
	stepTimeout time.Duration // --step-timeout
	workDir     string        // --workdir
}

// NewRunCommand returns a new instance of a regatta command
func NewRunCommand() *cobra.Command {
	var opts runOpts
	command := &cobra.Command{
		Use:   "run",
		Short: "run a pipeline to completion",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(run(args[0], opts))
		},
	}
	command.Flags().IntVarP(&opts.maxParallel, "max-parallel", "p", 0, "maximum number of job instances executing at once, 0 means unbounded")
	command.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "disable the live progress view")
	command.Flags().DurationVar(&opts.stepTimeout, "step-timeout", 0, "default timeout applied to steps that declare none")
	command.Flags().StringVar(&opts.workDir, "workdir", "", "scratch directory root, a temporary directory when empty")

	return command
}

func run(path string, opts runOpts) int {
	spec, err := api.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitSpecError
	}

	goctx, cancel := gocontext.WithCancel(gocontext.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Fprintln(os.Stderr, "interrupted, cancelling run")
		cancel()
	}()

	runID := uuid.New().String()
	ctx := context.WithRunID(context.FromContext(goctx), runID)

	registry, err := executor.NewRegistryFromConfig(ctx)
	if err != nil {
		ctx.Logger().Error(err)
		return exitFailure
	}
	notifier, err := newNotifier(ctx)
	if err != nil {
		ctx.Logger().Error(err)
		return exitFailure
	}
	defer notifier.Close()

	st := store.NewInMemoryStore()
	sched := scheduler.New(st, runner.New(registry, notifier), notifier)

	done := make(chan runOutcome, 1)
	go func() {
		res, err := sched.Run(ctx, runID, spec, scheduler.Options{
			MaxParallel:        opts.maxParallel,
			DefaultStepTimeout: opts.stepTimeout,
			WorkDir:            opts.workDir,
		})
		done <- runOutcome{res, err}
	}()

	var out runOutcome
	if opts.quiet {
		out = <-done
	} else {
		out = watch(ctx, st, runID, done)
	}
	if out.err != nil {
		fmt.Fprintln(os.Stderr, out.err)
		if _, ok := api.AsSpecError(out.err); ok {
			return exitSpecError
		}
		return exitFailure
	}

	report.Render(os.Stdout, out.res)
	if out.res.Verdict != api.VerdictSuccess {
		return exitFailure
	}
	return exitSuccess
}

type runOutcome struct {
	res api.PipelineResult
	err error
}

// watch redraws the live state of the run until the scheduler finishes.
func watch(ctx context.Context, st store.Store, runID string, done chan runOutcome) runOutcome {
	tm.Clear()
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case out := <-done:
			if state, err := st.State(ctx, runID); err == nil {
				tm.MoveCursor(1, 1)
				report.RenderState(tm.Screen, state)
				tm.Flush()
			}
			return out
		case <-ticker.C:
			state, err := st.State(ctx, runID)
			if err != nil {
				continue
			}
			tm.MoveCursor(1, 1)
			report.RenderState(tm.Screen, state)
			tm.Flush()
		}
	}
}

func newNotifier(ctx context.Context) (*events.Notifier, error) {
	sink, err := events.NewAMQPSinkFromConfig(ctx)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		return events.NewNotifier(events.NewLogSink()), nil
	}
	return events.NewNotifier(events.NewLogSink(), sink), nil
}
