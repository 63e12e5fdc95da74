package store

import (
	"fmt"
	"sync"
	"time"

	"regatta/pkg/api"
	"regatta/pkg/util/context"
)

type run struct {
	spec      api.PipelineSpec
	status    api.Status
	order     []string
	instances map[string]*instance
	results   map[string]api.JobResult
	startTime *time.Time
	endTime   *time.Time
}

type instance struct {
	id         string
	job        string
	status     api.Status
	stepsDone  int
	stepsTotal int
	startTime  *time.Time
	endTime    *time.Time
}

// NewInMemoryStore returns a new InMemory store
func NewInMemoryStore() Store {
	return &inMemory{
		runs: make(map[string]*run),
	}
}

type inMemory struct {
	mu   sync.Mutex
	runs map[string]*run
}

func (s *inMemory) CreateRun(ctx context.Context, runID string, spec api.PipelineSpec, instances []api.JobInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := run{
		spec:      spec,
		status:    api.StatusPending,
		instances: make(map[string]*instance),
		results:   make(map[string]api.JobResult),
	}
	for _, inst := range instances {
		id := inst.ID()
		r.order = append(r.order, id)
		r.instances[id] = &instance{
			id:         id,
			job:        inst.Spec.Name,
			status:     api.StatusPending,
			stepsTotal: len(inst.Spec.Steps),
		}
	}
	s.runs[runID] = &r
	return nil
}

func (s *inMemory) SetPipelineStatus(ctx context.Context, runID string, status api.Status, opt TimeOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, exists := s.runs[runID]
	if !exists {
		return NotFoundError(fmt.Sprintf("run %s", runID))
	}
	r.status = status
	if !opt.StartTime.IsZero() {
		t := opt.StartTime
		r.startTime = &t
	}
	if !opt.EndTime.IsZero() {
		t := opt.EndTime
		r.endTime = &t
	}
	return nil
}

func (s *inMemory) SetInstanceStatus(ctx context.Context, runID, instanceID string, status api.Status, opt TimeOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, err := s.instance(runID, instanceID)
	if err != nil {
		return err
	}
	inst.status = status
	if !opt.StartTime.IsZero() {
		t := opt.StartTime
		inst.startTime = &t
	}
	if !opt.EndTime.IsZero() {
		t := opt.EndTime
		inst.endTime = &t
	}
	return nil
}

func (s *inMemory) SetInstanceProgress(ctx context.Context, runID, instanceID string, stepsDone int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, err := s.instance(runID, instanceID)
	if err != nil {
		return err
	}
	inst.stepsDone = stepsDone
	return nil
}

func (s *inMemory) PutJobResult(ctx context.Context, runID string, res api.JobResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, exists := s.runs[runID]
	if !exists {
		return NotFoundError(fmt.Sprintf("run %s", runID))
	}
	if _, exists := r.instances[res.Instance]; !exists {
		return NotFoundError(fmt.Sprintf("instance %s in run %s", res.Instance, runID))
	}
	r.results[res.Instance] = res
	return nil
}

func (s *inMemory) JobResults(ctx context.Context, runID string) (map[string]api.JobResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, exists := s.runs[runID]
	if !exists {
		return nil, NotFoundError(fmt.Sprintf("run %s", runID))
	}
	res := make(map[string]api.JobResult, len(r.results))
	for k, v := range r.results {
		res[k] = v
	}
	return res, nil
}

func (s *inMemory) State(ctx context.Context, runID string) (api.PipelineState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, exists := s.runs[runID]
	if !exists {
		return api.PipelineState{}, NotFoundError(fmt.Sprintf("run %s", runID))
	}
	state := api.PipelineState{
		Name:      r.spec.Name,
		RunID:     runID,
		Status:    r.status,
		StartTime: r.startTime,
		EndTime:   r.endTime,
	}
	for _, id := range r.order {
		inst := r.instances[id]
		state.Instances = append(state.Instances, api.InstanceState{
			ID:         inst.id,
			Job:        inst.job,
			Status:     inst.status,
			StepsDone:  inst.stepsDone,
			StepsTotal: inst.stepsTotal,
			StartTime:  inst.startTime,
			EndTime:    inst.endTime,
		})
	}
	return state, nil
}

// instance must be called with the mutex held.
func (s *inMemory) instance(runID, instanceID string) (*instance, error) {
	r, exists := s.runs[runID]
	if !exists {
		return nil, NotFoundError(fmt.Sprintf("run %s", runID))
	}
	inst, exists := r.instances[instanceID]
	if !exists {
		return nil, NotFoundError(fmt.Sprintf("instance %s in run %s", instanceID, runID))
	}
	return inst, nil
}
