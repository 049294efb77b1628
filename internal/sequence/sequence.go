package sequence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stepline/stepline/internal/command"
	"github.com/stepline/stepline/internal/model"
)

// Observer receives a sequence status snapshot on every transition:
// sequence start, each step start, each step's pre-result re-announcement,
// sequence end, reset, and add-step.
type Observer interface {
	SequenceUpdate(status SequenceStatus)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(SequenceStatus)

func (f ObserverFunc) SequenceUpdate(status SequenceStatus) { f(status) }

// CommandSequence owns an ordered list of steps and executes them one at a
// time on the calling goroutine, applying each step's exit strategy.
// Steps are added with AddStep, which clones the given command: the
// sequence only ever mutates its own clones.
type CommandSequence struct {
	name      string
	runner    string
	id        string
	steps     []command.Command
	status    *SequenceStatus
	observers []Observer
	logger    zerolog.Logger
}

// NewCommandSequence creates an empty sequence. runner is informational
// (typically the host the sequence runs on).
func NewCommandSequence(name, runner string) *CommandSequence {
	s := &CommandSequence{
		name:   name,
		runner: runner,
		id:     uuid.NewString(),
		logger: zerolog.Nop(),
	}
	s.status = NewSequenceStatus(name)
	s.status.SequenceRunner = runner
	s.status.SequenceID = s.id
	return s
}

func (s *CommandSequence) Name() string { return s.name }

func (s *CommandSequence) Runner() string { return s.runner }

func (s *CommandSequence) ID() string { return s.id }

// Status returns a value snapshot of the current sequence status.
func (s *CommandSequence) Status() SequenceStatus { return s.status.Clone() }

func (s *CommandSequence) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

func (s *CommandSequence) SetLogger(l zerolog.Logger) { s.logger = l }

// AddStep clones step, resets the clone, assigns it the next sequential
// number and the given exit strategy (unrecognized strategies fall back to
// fail_on_error), queues it and returns it. Callers inspect the returned
// clone; the original is never touched again.
func (s *CommandSequence) AddStep(step command.Command, strategy model.Strategy) command.Command {
	owned := step.Clone()
	owned.Reset()
	owned.SetNumber(len(s.steps))
	owned.SetStrategy(model.NormalizeStrategy(strategy))
	s.steps = append(s.steps, owned)
	s.status.Update(owned)
	s.notify()
	return owned
}

// Run executes every queued step in insertion order and returns the final
// aggregate status. Step failures never surface as errors; they are
// reflected in the statuses only. An empty sequence finishes as Warning.
//
// Observers see two running snapshots per step: one when the step starts
// and one immediately after its result is read, still showing the step as
// running. Terminal per-step states only land in the aggregate's step
// snapshots when the loop ends or an early-exit strategy fires, so a
// finished step visibly stays Running until sequence end. Downstream
// consumers of the notification order rely on this.
func (s *CommandSequence) Run(ctx context.Context, env any) model.Status {
	s.status.Status = model.StatusRunning
	s.status.StartTime = time.Now()
	s.status.StopTime = nil
	s.status.SequenceRunner = s.runner
	s.notify()

	s.logger.Info().Str("sequence", s.name).Int("steps", len(s.steps)).Msg("sequence started")

	outcome := model.StatusSuccess
	if len(s.steps) == 0 {
		// An empty sequence is never considered fully successful.
		outcome = model.StatusWarning
	}

loop:
	for _, step := range s.steps {
		step.SetStatus(model.StatusRunning)
		s.status.Update(step)
		s.notify()

		result := step.Run(ctx, env)

		step.SetStatus(model.StatusRunning)
		s.status.Update(step)
		s.notify()
		step.SetStatus(result)

		switch result {
		case model.StatusError:
			s.logger.Error().Str("step", step.Name()).Int("number", step.Number()).Msg("step failed")
			outcome = model.StatusError
			if step.Strategy() == model.FailOnError {
				s.status.Status = model.StatusError
				break loop
			}
		case model.StatusWarning:
			s.logger.Warn().Str("step", step.Name()).Int("number", step.Number()).Msg("step finished with warning")
			if outcome != model.StatusError {
				outcome = model.StatusWarning
			}
			switch step.Strategy() {
			case model.FlunkOnWarning:
				outcome = model.StatusError
			case model.FailOnWarning:
				s.status.Status = model.StatusError
				break loop
			}
		}
	}

	for _, step := range s.steps {
		s.status.Update(step)
	}
	now := time.Now()
	s.status.StopTime = &now
	s.status.Status = outcome
	s.notify()

	s.logger.Info().Str("sequence", s.name).Str("status", string(outcome)).Msg("sequence finished")
	return outcome
}

// Reset returns the sequence to its pre-run state: every owned step is
// reset and a fresh status is seeded from the reset snapshots. The runner
// and sequence id are preserved.
func (s *CommandSequence) Reset() {
	status := NewSequenceStatus(s.name)
	status.SequenceRunner = s.runner
	status.SequenceID = s.id
	for _, step := range s.steps {
		step.Reset()
		status.Update(step)
	}
	s.status = status
	s.notify()
}

func (s *CommandSequence) notify() {
	snap := s.status.Clone()
	for _, o := range s.observers {
		o.SequenceUpdate(snap)
	}
}
