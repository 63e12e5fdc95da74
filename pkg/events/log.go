package events

import (
	"regatta/pkg/util/context"
)

// logSink writes every event to the run logger.
type logSink struct{}

// NewLogSink returns a Sink logging events instead of publishing them.
func NewLogSink() Sink {
	return logSink{}
}

func (logSink) Publish(ctx context.Context, evt Event) error {
	ctx.Logger().WithField("event", string(evt.Type)).Debugf("%s", evt)
	return nil
}

func (logSink) Close() error {
	return nil
}
