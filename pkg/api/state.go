package api

import (
	"time"
)

// PipelineState represents the live state of a run, used for progress
// rendering while the scheduler is executing.
type PipelineState struct {
	Name      string          `json:"name"`
	RunID     string          `json:"runID"`
	Status    Status          `json:"status"`
	Instances []InstanceState `json:"instances,omitempty"`
	StartTime *time.Time      `json:"startTime,omitempty"`
	EndTime   *time.Time      `json:"endTime,omitempty"`
}

// InstanceState represents the live state of one job instance.
type InstanceState struct {
	ID         string     `json:"id"`
	Job        string     `json:"job"`
	Status     Status     `json:"status"`
	StepsDone  int        `json:"stepsDone"`
	StepsTotal int        `json:"stepsTotal"`
	StartTime  *time.Time `json:"startTime,omitempty"`
	EndTime    *time.Time `json:"endTime,omitempty"`
}
