// Package store holds the mutable state of pipeline runs: instance statuses,
// step progress and final results. Specs are read-only once a run is created,
// results are append-only and final once written.
package store

import (
	"time"

	"regatta/pkg/api"
	"regatta/pkg/util/context"
)

// TimeOption is used when setting time is necessary.
type TimeOption struct {
	StartTime time.Time
	EndTime   time.Time
}

// Store defines access to the run state backend.
type Store interface {
	// CreateRun registers a run with its spec and the fully materialized
	// instance set.
	CreateRun(ctx context.Context, runID string, spec api.PipelineSpec, instances []api.JobInstance) error

	// SetPipelineStatus sets the run status.
	SetPipelineStatus(ctx context.Context, runID string, status api.Status, opt TimeOption) error

	// SetInstanceStatus sets the status of one job instance.
	SetInstanceStatus(ctx context.Context, runID, instanceID string, status api.Status, opt TimeOption) error

	// SetInstanceProgress records how many steps of the instance finished.
	SetInstanceProgress(ctx context.Context, runID, instanceID string, stepsDone int) error

	// PutJobResult attaches the terminal result of one job instance.
	PutJobResult(ctx context.Context, runID string, res api.JobResult) error

	// JobResults returns the results recorded so far, keyed by instance ID.
	JobResults(ctx context.Context, runID string) (map[string]api.JobResult, error)

	// State returns the live state tree of the run, instances in
	// materialization order.
	State(ctx context.Context, runID string) (api.PipelineState, error)
}
