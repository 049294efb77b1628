// Package sequence runs ordered lists of commands one at a time, applying
// per-step exit strategies and aggregating step snapshots into a single
// sequence status.
package sequence

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/stepline/stepline/internal/command"
	"github.com/stepline/stepline/internal/model"
)

// SequenceStatus aggregates per-step snapshots into one overall status.
// The aggregate only ever worsens under step submissions: Error never
// downgrades and Warning never downgrades to Success.
type SequenceStatus struct {
	SequenceName   string
	SequenceRunner string
	SequenceID     string
	Status         model.Status
	StartTime      time.Time
	// StopTime is nil until the sequence finishes.
	StopTime   *time.Time
	StepStates map[int]model.StepState
}

func NewSequenceStatus(name string) *SequenceStatus {
	return &SequenceStatus{
		SequenceName: name,
		Status:       model.StatusNotExecuted,
		StepStates:   make(map[int]model.StepState),
	}
}

// Update records a snapshot of step keyed by its number and recomputes the
// aggregate. Running is sticky against step submissions: once the sequence
// driver marks the aggregate running, only direct assignment by the driver
// moves it off Running again.
func (s *SequenceStatus) Update(step command.Command) {
	snap := model.StepState{
		Number:   step.Number(),
		Name:     step.Name(),
		Status:   step.Status(),
		Output:   step.Output(),
		Error:    step.ErrorOutput(),
		Duration: step.ExecTime(),
		Strategy: step.Strategy(),
	}
	s.StepStates[snap.Number] = snap

	if s.Status == model.StatusRunning {
		return
	}
	prev := s.Status
	switch snap.Status {
	case model.StatusRunning:
		s.Status = model.StatusRunning
	case model.StatusWarning:
		if prev != model.StatusError {
			s.Status = model.StatusWarning
		}
	case model.StatusError:
		s.Status = model.StatusError
	case model.StatusSuccess:
		if prev != model.StatusError && prev != model.StatusWarning {
			s.Status = model.StatusSuccess
		}
	case model.StatusNotExecuted:
		// Re-registering an unrun step leaves the aggregate alone.
	}
}

func (s *SequenceStatus) Executed() bool {
	return s.Status != model.StatusNotExecuted
}

func (s *SequenceStatus) Success() bool {
	return s.Status == model.StatusSuccess
}

// Completed reports whether the sequence can go no further: either a
// fail-fast step hit its triggering condition, or every step reached a
// terminal status. A never-executed sequence is not completed.
func (s *SequenceStatus) Completed() bool {
	if !s.Executed() {
		return false
	}
	for _, st := range s.StepStates {
		if st.Status == model.StatusError && st.Strategy == model.FailOnError {
			return true
		}
		if st.Status == model.StatusWarning && st.Strategy == model.FailOnWarning {
			return true
		}
	}
	for _, st := range s.StepStates {
		if st.Status == model.StatusNotExecuted || st.Status == model.StatusRunning {
			return false
		}
	}
	return true
}

// StepState returns the snapshot for a step number, reporting whether one
// was ever submitted.
func (s *SequenceStatus) StepState(number int) (model.StepState, bool) {
	st, ok := s.StepStates[number]
	return st, ok
}

// Summary renders a deterministic multi-line report: optional id prefix,
// sequence name and aggregate status, then one line per step in ascending
// step-number order.
func (s *SequenceStatus) Summary() string {
	var b strings.Builder
	if s.SequenceID != "" {
		fmt.Fprintf(&b, "[%s] ", s.SequenceID)
	}
	fmt.Fprintf(&b, "%s: %s", s.SequenceName, s.Status)
	numbers := make([]int, 0, len(s.StepStates))
	for n := range s.StepStates {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	for _, n := range numbers {
		st := s.StepStates[n]
		fmt.Fprintf(&b, "\nstep %d - %s: %s", n, st.Name, st.Status)
	}
	return b.String()
}

// Clone returns an independent value snapshot, safe to hand to observers.
func (s *SequenceStatus) Clone() SequenceStatus {
	c := *s
	if s.StopTime != nil {
		t := *s.StopTime
		c.StopTime = &t
	}
	c.StepStates = make(map[int]model.StepState, len(s.StepStates))
	for n, st := range s.StepStates {
		c.StepStates[n] = st
	}
	return c
}
