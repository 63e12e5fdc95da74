// Package events emits the lifecycle of a pipeline run to pluggable sinks so
// external consumers can follow job and step outcomes without polling.
package events

import (
	"fmt"
	"time"

	"regatta/pkg/api"
	"regatta/pkg/util/context"
)

// EventType type of event
type EventType string

const (
	TypePipelineStarted  EventType = "PIPELINE_STARTED"
	TypePipelineFinished EventType = "PIPELINE_FINISHED"
	TypeJobStarted       EventType = "JOB_STARTED"
	TypeJobFinished      EventType = "JOB_FINISHED"
	TypeStepFinished     EventType = "STEP_FINISHED"
)

// Event represents one lifecycle notification.
type Event struct {
	Type     EventType  `json:"type"`
	RunID    string     `json:"runID"`
	Pipeline string     `json:"pipeline,omitempty"`
	Job      string     `json:"job,omitempty"`
	Instance string     `json:"instance,omitempty"`
	Step     string     `json:"step,omitempty"`
	Status   api.Status `json:"status,omitempty"`
	Time     time.Time  `json:"time"`
}

func (e Event) String() string {
	if e.Instance == "" {
		return fmt.Sprintf("%s for run %s", e.Type, e.RunID)
	}
	return fmt.Sprintf("%s for instance %s", e.Type, e.Instance)
}

// Sink receives lifecycle events.
type Sink interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// Notifier fans events out to its sinks. Publishing is best-effort: a sink
// error is logged and never fails the run.
type Notifier struct {
	sinks []Sink
}

// NewNotifier returns a notifier over the given sinks.
func NewNotifier(sinks ...Sink) *Notifier {
	return &Notifier{sinks: sinks}
}

// Notify publishes the event to every sink.
func (n *Notifier) Notify(ctx context.Context, evt Event) {
	if evt.Time.IsZero() {
		evt.Time = time.Now()
	}
	if evt.RunID == "" {
		evt.RunID = ctx.RunID()
	}
	for _, s := range n.sinks {
		if err := s.Publish(ctx, evt); err != nil {
			ctx.Logger().Errorf("cannot publish event %s: %s", evt, err)
		}
	}
}

// Close closes every sink.
func (n *Notifier) Close() error {
	var firstErr error
	for _, s := range n.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
