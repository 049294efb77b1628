package command

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/stepline/stepline/internal/model"
)

// BlockFunc is the body of an in-process step. It receives the command
// itself so it can report through SetOutput and SetErrorOutput. A nil
// return means Success; a non-nil return (or a panic) means Error.
type BlockFunc func(*BlockCommand) error

// BlockCommand executes a callable in a given working directory. The
// process working directory is changed for the duration of the call and
// restored afterwards, so block commands must not run concurrently with
// anything else that depends on the process working directory.
type BlockCommand struct {
	Base
	workdir string
	block   BlockFunc

	// Context is the payload passed to Run, visible to the block only for
	// the duration of the call. It is cleared to nil once Run returns.
	Context any
}

// NewBlockCommand returns a step wrapping block. A nil block is a
// *ParameterError.
func NewBlockCommand(name, workdir string, block BlockFunc) (*BlockCommand, error) {
	if block == nil {
		return nil, &ParameterError{Param: "block"}
	}
	if workdir == "" {
		workdir = "."
	}
	return &BlockCommand{
		Base:    *NewBase(name),
		workdir: workdir,
		block:   block,
	}, nil
}

func (b *BlockCommand) WorkingDir() string { return b.workdir }

func (b *BlockCommand) Clone() Command {
	c := *b
	c.Context = nil
	return &c
}

// Run invokes the block inside the working directory. Errors and panics
// are captured: the message lands in the error output prefixed by a
// newline and a stack snapshot in the backtrace. ExecTime is recorded on
// every exit path.
func (b *BlockCommand) Run(ctx context.Context, env any) model.Status {
	_ = ctx
	b.output = ""
	b.errorOutput = ""
	b.backtrace = ""
	b.Context = env
	start := time.Now()
	defer func() {
		b.execTime = time.Since(start)
		b.Context = nil
	}()

	prev, err := os.Getwd()
	if err != nil {
		b.status = model.StatusError
		b.errorOutput = fmt.Sprintf("determine working directory: %v", err)
		return b.status
	}
	if err := os.Chdir(b.workdir); err != nil {
		b.status = model.StatusError
		b.errorOutput = fmt.Sprintf("enter working directory %s: %v", b.workdir, err)
		return b.status
	}
	defer func() { _ = os.Chdir(prev) }()

	if blockErr := b.invoke(); blockErr != nil {
		b.status = model.StatusError
		b.errorOutput += "\n" + blockErr.Error()
		if b.backtrace == "" {
			b.backtrace = string(debug.Stack())
		}
		b.logger.Error().Err(blockErr).Str("block", b.Name()).Msg("block failed")
	} else {
		b.status = model.StatusSuccess
	}
	return b.status
}

func (b *BlockCommand) invoke() (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.backtrace = string(debug.Stack())
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return b.block(b)
}
