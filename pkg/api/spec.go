package api

import (
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// PipelineSpec is the specification of a pipeline.
// Job order follows declaration order in the description document and is used
// as the tie-break when several instances become eligible at the same time.
type PipelineSpec struct {
	Name string
	// On lists the triggers of the pipeline. Triggers are evaluated by an
	// external gate before the runner is invoked, they are carried as-is and
	// never interpreted.
	On   []string
	Jobs []JobSpec
}

// JobSpec is the specification of a job.
type JobSpec struct {
	Name   string      `yaml:"-"`
	Needs  []string    `yaml:"needs"`
	Matrix *MatrixSpec `yaml:"matrix"`
	Steps  []StepSpec  `yaml:"steps"`
}

// StepSpec is a single shell-invocable unit of work within a job.
type StepSpec struct {
	Name string `yaml:"name"`
	Run  string `yaml:"run"`
	// WorkDir overrides the working directory for this step. When empty the
	// step runs in the per-instance scratch directory.
	WorkDir string `yaml:"workdir"`
	// Timeout bounds the step execution. Zero means the runner default.
	Timeout Duration `yaml:"timeout"`
}

// DisplayName returns the step name, falling back to the command line when no
// name was declared.
func (s StepSpec) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Run
}

// MatrixSpec maps axis names to their ordered value lists. Axis declaration
// order is preserved from the document, it defines both instance identity
// ordering and expansion order.
type MatrixSpec struct {
	Axes []Axis
}

// Axis is one matrix dimension.
type Axis struct {
	Name   string
	Values []string
}

// UnmarshalYAML decodes a matrix mapping while keeping axis declaration order,
// which a plain map would lose.
func (m *MatrixSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return errors.New("matrix must be a mapping of axis name to values")
	}
	for i := 0; i < len(value.Content); i += 2 {
		var values []string
		if err := value.Content[i+1].Decode(&values); err != nil {
			return errors.Wrapf(err, "cannot decode values of matrix axis %s", value.Content[i].Value)
		}
		m.Axes = append(m.Axes, Axis{Name: value.Content[i].Value, Values: values})
	}
	return nil
}

// UnmarshalYAML decodes the top-level pipeline document. Jobs are declared as
// a mapping, the declaration order is preserved.
func (p *PipelineSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return errors.New("pipeline description must be a mapping")
	}
	for i := 0; i < len(value.Content); i += 2 {
		key := value.Content[i]
		val := value.Content[i+1]
		switch key.Value {
		case "name":
			p.Name = val.Value
		case "on", "true": // yaml 1.1 parsers resolve the bare key `on` as a boolean
			if val.Kind == yaml.ScalarNode {
				p.On = []string{val.Value}
			} else if err := val.Decode(&p.On); err != nil {
				return errors.Wrap(err, "cannot decode triggers")
			}
		case "jobs":
			if val.Kind != yaml.MappingNode {
				return errors.New("jobs must be a mapping of job name to job")
			}
			for j := 0; j < len(val.Content); j += 2 {
				var job JobSpec
				if err := val.Content[j+1].Decode(&job); err != nil {
					return errors.Wrapf(err, "cannot decode job %s", val.Content[j].Value)
				}
				job.Name = val.Content[j].Value
				p.Jobs = append(p.Jobs, job)
			}
		}
	}
	return nil
}

// Job returns the job with the given name.
func (p PipelineSpec) Job(name string) (JobSpec, bool) {
	for _, j := range p.Jobs {
		if j.Name == name {
			return j, true
		}
	}
	return JobSpec{}, false
}

// Duration is a time.Duration decodable from YAML duration strings such as
// "90s" or "15m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	td, err := time.ParseDuration(value.Value)
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", value.Value)
	}
	*d = Duration(td)
	return nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
