// Package config loads declarative sequence definitions from YAML or TOML
// files and builds ready-to-run command sequences from them.
package config

type File struct {
	Sequence SequenceConfig `yaml:"sequence" toml:"sequence"`
	Steps    []StepConfig   `yaml:"steps" toml:"steps"`
}

type SequenceConfig struct {
	Name   string `yaml:"name" toml:"name"`
	Runner string `yaml:"runner" toml:"runner"`
}

type StepConfig struct {
	Name             string `yaml:"name" toml:"name"`
	Command          string `yaml:"command" toml:"command"`
	WorkingDirectory string `yaml:"working_directory" toml:"working_directory"`
	// Timeout is a Go duration string, e.g. "30s". Empty means no timeout.
	Timeout  string `yaml:"timeout" toml:"timeout"`
	Strategy string `yaml:"strategy" toml:"strategy"`
}
