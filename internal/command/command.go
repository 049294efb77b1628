// Package command provides the runnable-step abstraction used by sequences:
// a shared contract, subprocess execution with an optional timeout, and
// in-process block execution.
package command

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/stepline/stepline/internal/model"
)

// Command is the contract every runnable step implements. Run must never
// panic past its own boundary: any failure inside Run is captured into
// status, error output and backtrace instead of propagating to the caller.
//
// Status, number and strategy are set externally by the owning sequence
// while queuing and running; everything else is mutated only by Run.
type Command interface {
	Name() string
	Status() model.Status
	SetStatus(model.Status)
	Number() int
	SetNumber(int)
	Strategy() model.Strategy
	SetStrategy(model.Strategy)
	Output() string
	ErrorOutput() string
	Backtrace() string
	ExecTime() time.Duration

	// Run executes the step and returns its terminal status. env is an
	// opaque payload handed through by the sequence; steps that do not
	// need it ignore it.
	Run(ctx context.Context, env any) model.Status
	// Reset restores the exact mutable state of a fresh construction.
	Reset()
	// Clone returns an independent copy of the step. Sequences clone every
	// step they are given, so running a sequence never mutates the
	// caller's original.
	Clone() Command
	Success() bool
	Executed() bool
}

// Base carries the shared state of a runnable step and provides the
// default contract behavior: a Base run succeeds unconditionally, which is
// all a trivial placeholder step needs. Concrete steps embed Base and
// override Run and Clone.
type Base struct {
	name        string
	status      model.Status
	output      string
	errorOutput string
	backtrace   string
	execTime    time.Duration
	number      int
	strategy    model.Strategy
	logger      zerolog.Logger
}

// NewBase returns a trivial command that succeeds unconditionally.
func NewBase(name string) *Base {
	return &Base{
		name:   name,
		status: model.StatusNotExecuted,
		logger: zerolog.Nop(),
	}
}

func (b *Base) Name() string { return b.name }

func (b *Base) Status() model.Status { return b.status }

func (b *Base) SetStatus(s model.Status) { b.status = s }

func (b *Base) Number() int { return b.number }

func (b *Base) SetNumber(n int) { b.number = n }

func (b *Base) Strategy() model.Strategy { return b.strategy }

func (b *Base) SetStrategy(s model.Strategy) { b.strategy = s }

func (b *Base) Output() string { return b.output }

func (b *Base) ErrorOutput() string { return b.errorOutput }

func (b *Base) Backtrace() string { return b.backtrace }

func (b *Base) ExecTime() time.Duration { return b.execTime }

// SetOutput replaces the captured output. Block callables use this to
// report through the same accessors the sequence reads.
func (b *Base) SetOutput(s string) { b.output = s }

// SetErrorOutput replaces the captured error output.
func (b *Base) SetErrorOutput(s string) { b.errorOutput = s }

// SetLogger installs the logger sink used for debug and failure logging.
// The default is a no-op logger.
func (b *Base) SetLogger(l zerolog.Logger) { b.logger = l }

func (b *Base) Run(ctx context.Context, env any) model.Status {
	b.status = model.StatusSuccess
	return b.status
}

func (b *Base) Reset() {
	b.status = model.StatusNotExecuted
	b.output = ""
	b.errorOutput = ""
	b.backtrace = ""
	b.execTime = 0
}

func (b *Base) Clone() Command {
	c := *b
	return &c
}

func (b *Base) Success() bool {
	return b.status == model.StatusSuccess
}

func (b *Base) Executed() bool {
	return b.status != model.StatusNotExecuted
}
