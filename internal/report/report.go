// Package report serializes finished sequence runs to YAML files, written
// atomically so readers never observe a partial report.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stepline/stepline/internal/model"
	"github.com/stepline/stepline/internal/sequence"
)

const schemaVersion = 1

type Report struct {
	SchemaVersion int          `yaml:"schema_version"`
	SequenceName  string       `yaml:"sequence_name"`
	SequenceID    string       `yaml:"sequence_id,omitempty"`
	Runner        string       `yaml:"runner,omitempty"`
	Status        model.Status `yaml:"status"`
	StartedAt     string       `yaml:"started_at,omitempty"`
	StoppedAt     string       `yaml:"stopped_at,omitempty"`
	Steps         []StepReport `yaml:"steps"`
}

type StepReport struct {
	Number   int            `yaml:"number"`
	Name     string         `yaml:"name"`
	Status   model.Status   `yaml:"status"`
	Duration string         `yaml:"duration"`
	Strategy model.Strategy `yaml:"strategy"`
	Output   string         `yaml:"output,omitempty"`
	Error    string         `yaml:"error,omitempty"`
}

// FromStatus flattens a sequence status into a report, steps in ascending
// step-number order.
func FromStatus(status sequence.SequenceStatus) Report {
	r := Report{
		SchemaVersion: schemaVersion,
		SequenceName:  status.SequenceName,
		SequenceID:    status.SequenceID,
		Runner:        status.SequenceRunner,
		Status:        status.Status,
	}
	if !status.StartTime.IsZero() {
		r.StartedAt = status.StartTime.Format(time.RFC3339)
	}
	if status.StopTime != nil {
		r.StoppedAt = status.StopTime.Format(time.RFC3339)
	}

	numbers := make([]int, 0, len(status.StepStates))
	for n := range status.StepStates {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	for _, n := range numbers {
		st := status.StepStates[n]
		r.Steps = append(r.Steps, StepReport{
			Number:   st.Number,
			Name:     st.Name,
			Status:   st.Status,
			Duration: st.Duration.String(),
			Strategy: st.Strategy,
			Output:   st.Output,
			Error:    st.Error,
		})
	}
	return r
}

// Write marshals the report and renames it into place. The temp file lives
// in the target directory so the rename stays on one volume.
func Write(path string, r Report) error {
	content, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("yaml marshal: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".stepline-tmp-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}
