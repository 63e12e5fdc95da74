// Package context extends the regular golang context.Context with the
// identity of the current pipeline run, job and instance, and gives access to
// a logger pre-tagged with those fields.
package context

import (
	gocontext "context"
	"os"

	"github.com/sirupsen/logrus"
)

// Context carries the identity of the work being executed through every
// component of a run.
type Context interface {
	gocontext.Context
	Logger() *logrus.Entry
	RunID() string
	JobName() string
	InstanceID() string
}

var baseLogger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyMsg: "message",
		},
	})
	level, err := logrus.ParseLevel(os.Getenv("REGATTA_LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	return l
}

// Background returns a non-nil, empty Context.
func Background() Context {
	return ctx{
		Context: gocontext.Background(),
	}
}

// FromContext returns a new Context from the given go context.
func FromContext(c gocontext.Context) Context {
	return ctx{
		Context: c,
	}
}

// WithRunID returns a copy of the context with a run identifier.
func WithRunID(c Context, runID string) Context {
	return ctx{c, runID, c.JobName(), c.InstanceID()}
}

// WithJobName returns a copy of the context with a job name.
func WithJobName(c Context, job string) Context {
	return ctx{c, c.RunID(), job, c.InstanceID()}
}

// WithInstanceID returns a copy of the context with a job instance identity.
func WithInstanceID(c Context, instanceID string) Context {
	return ctx{c, c.RunID(), c.JobName(), instanceID}
}

type ctx struct {
	gocontext.Context
	runID      string
	jobName    string
	instanceID string
}

func (c ctx) Logger() *logrus.Entry {
	e := logrus.NewEntry(baseLogger)
	if c.runID != "" {
		e = e.WithField("run_id", c.runID)
	}
	if c.jobName != "" {
		e = e.WithField("job", c.jobName)
	}
	if c.instanceID != "" {
		e = e.WithField("instance", c.instanceID)
	}
	return e
}

func (c ctx) RunID() string {
	return c.runID
}

func (c ctx) JobName() string {
	return c.jobName
}

func (c ctx) InstanceID() string {
	return c.instanceID
}
