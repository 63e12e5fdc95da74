package api

import (
	"io/ioutil"

	"gopkg.in/yaml.v3"
)

// Parse decodes a pipeline description document.
// The spec is parsed once and is read-only for the duration of the run.
func Parse(data []byte) (PipelineSpec, error) {
	var spec PipelineSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return PipelineSpec{}, NewSpecError(ParseError, "cannot decode pipeline description: %v", err)
	}
	return spec, nil
}

// Load reads and parses the pipeline description at the given path.
func Load(path string) (PipelineSpec, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return PipelineSpec{}, NewSpecError(ParseError, "cannot read pipeline description: %v", err)
	}
	return Parse(data)
}
