package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/stepline/stepline/internal/command"
	"github.com/stepline/stepline/internal/model"
	"github.com/stepline/stepline/internal/sequence"
)

// LoadError wraps any failure to read, parse or validate a sequence file.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load reads a sequence definition, selecting the format by file
// extension: .yaml/.yml or .toml. Every failure is returned as a
// *LoadError.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	case ".toml":
		err = toml.Unmarshal(data, &f)
	default:
		err = fmt.Errorf("unsupported sequence file format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	if err := f.validate(); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return &f, nil
}

func (f *File) validate() error {
	if f.Sequence.Name == "" {
		return fmt.Errorf("sequence.name is required")
	}
	for i, step := range f.Steps {
		if step.Command == "" {
			return fmt.Errorf("step %d (%s): command is required", i, step.Name)
		}
		if step.Timeout != "" {
			if _, err := time.ParseDuration(step.Timeout); err != nil {
				return fmt.Errorf("step %d (%s): invalid timeout %q: %w", i, step.Name, step.Timeout, err)
			}
		}
		if step.Strategy != "" && !model.IsValidStrategy(model.Strategy(step.Strategy)) {
			return fmt.Errorf("step %d (%s): unknown strategy %q", i, step.Name, step.Strategy)
		}
	}
	return nil
}

// BuildSequence constructs a CommandSequence with one process step per
// configured step, queued in file order.
func (f *File) BuildSequence() (*sequence.CommandSequence, error) {
	seq := sequence.NewCommandSequence(f.Sequence.Name, f.Sequence.Runner)
	for i, step := range f.Steps {
		var timeout time.Duration
		if step.Timeout != "" {
			// Already validated by Load; parse errors here mean the File
			// was built by hand.
			d, err := time.ParseDuration(step.Timeout)
			if err != nil {
				return nil, fmt.Errorf("step %d (%s): invalid timeout %q: %w", i, step.Name, step.Timeout, err)
			}
			timeout = d
		}
		cmd, err := command.NewProcessCommand(command.ProcessConfig{
			Command:    step.Command,
			Name:       step.Name,
			WorkingDir: step.WorkingDirectory,
			Timeout:    timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Name, err)
		}
		seq.AddStep(cmd, model.Strategy(step.Strategy))
	}
	return seq, nil
}
