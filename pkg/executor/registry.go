package executor

import (
	"regatta/pkg/api"
	"regatta/pkg/util/config"
	"regatta/pkg/util/context"

	"github.com/pkg/errors"
)

// Config configures which executor backend serves each matrix axis value.
type Config struct {
	// Axis is the matrix axis that selects the backend, "os" by default.
	Axis string `mapstructure:"axis" env:"REGATTA_EXECUTOR_AXIS"`
	// Docker maps axis values to container images. Instances carrying a
	// mapped value run their steps inside a container of that image instead
	// of the local shell.
	Docker map[string]string `mapstructure:"docker"`
}

// Registry selects the executor backend provisioned for a job instance based
// on its matrix assignment. Instances without a registered backend fall back
// to the local executor.
type Registry struct {
	axis     string
	backends map[string]Executor
	fallback Executor
}

// NewRegistry returns a registry with the given fallback backend, keyed on
// the given axis.
func NewRegistry(axis string, fallback Executor) *Registry {
	if axis == "" {
		axis = "os"
	}
	return &Registry{
		axis:     axis,
		backends: make(map[string]Executor),
		fallback: fallback,
	}
}

// Register binds an axis value to a backend.
func (r *Registry) Register(value string, e Executor) {
	r.backends[value] = e
}

// For returns the backend serving the given instance.
func (r *Registry) For(inst api.JobInstance) Executor {
	if v, ok := inst.Assignment.Get(r.axis); ok {
		if e, ok := r.backends[v]; ok {
			return e
		}
	}
	return r.fallback
}

// NewRegistryFromConfig builds the registry from the "executors" config
// section: a local fallback plus one docker backend per configured image.
func NewRegistryFromConfig(ctx context.Context) (*Registry, error) {
	var c Config
	if err := config.Unmarshal("executors", &c); err != nil {
		return nil, errors.Wrap(err, "cannot read executors config")
	}

	r := NewRegistry(c.Axis, NewLocalExecutor())
	for value, image := range c.Docker {
		ctx.Logger().Debugf("using image %s for %s=%s", image, r.axis, value)
		d, err := NewDockerExecutor(image)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot create docker backend for %s=%s", r.axis, value)
		}
		r.Register(value, d)
	}
	return r, nil
}
