package command

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepline/stepline/internal/model"
)

func TestNewBlockCommand_RequiresBlock(t *testing.T) {
	_, err := NewBlockCommand("no block", "", nil)

	require.Error(t, err)
	var paramErr *ParameterError
	require.ErrorAs(t, err, &paramErr)
	assert.Equal(t, "block", paramErr.Param)
}

func TestBlockCommand_Run_Success(t *testing.T) {
	b, err := NewBlockCommand("report", "", func(cmd *BlockCommand) error {
		cmd.SetOutput("all good")
		return nil
	})
	require.NoError(t, err)

	status := b.Run(context.Background(), nil)

	assert.Equal(t, model.StatusSuccess, status)
	assert.Equal(t, "all good", b.Output())
	assert.Empty(t, b.ErrorOutput())
	assert.Empty(t, b.Backtrace())
}

func TestBlockCommand_Run_Error(t *testing.T) {
	b, err := NewBlockCommand("boom", "", func(cmd *BlockCommand) error {
		return errors.New("boom")
	})
	require.NoError(t, err)

	status := b.Run(context.Background(), nil)

	assert.Equal(t, model.StatusError, status)
	assert.Equal(t, "\nboom", b.ErrorOutput())
	assert.NotEmpty(t, b.Backtrace())
}

func TestBlockCommand_Run_Panic(t *testing.T) {
	b, err := NewBlockCommand("kaboom", "", func(cmd *BlockCommand) error {
		panic("kaboom")
	})
	require.NoError(t, err)

	status := b.Run(context.Background(), nil)

	assert.Equal(t, model.StatusError, status)
	assert.Contains(t, b.ErrorOutput(), "panic: kaboom")
	assert.NotEmpty(t, b.Backtrace())
}

func TestBlockCommand_Run_ContextPayload(t *testing.T) {
	payload := map[string]string{"key": "value"}
	var seen any
	b, err := NewBlockCommand("ctx", "", func(cmd *BlockCommand) error {
		seen = cmd.Context
		return nil
	})
	require.NoError(t, err)

	b.Run(context.Background(), payload)

	assert.Equal(t, payload, seen, "payload must be visible to the block during the run")
	assert.Nil(t, b.Context, "payload must be cleared once the run finishes")
}

func TestBlockCommand_Run_ContextClearedOnFailure(t *testing.T) {
	b, err := NewBlockCommand("ctx", "", func(cmd *BlockCommand) error {
		return errors.New("nope")
	})
	require.NoError(t, err)

	b.Run(context.Background(), "payload")

	assert.Nil(t, b.Context)
}

func TestBlockCommand_Run_WorkingDir(t *testing.T) {
	workdir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	before, err := os.Getwd()
	require.NoError(t, err)

	var inside string
	b, err := NewBlockCommand("wd", workdir, func(cmd *BlockCommand) error {
		wd, wdErr := os.Getwd()
		if wdErr != nil {
			return wdErr
		}
		inside = wd
		return nil
	})
	require.NoError(t, err)

	status := b.Run(context.Background(), nil)

	require.Equal(t, model.StatusSuccess, status)
	resolved, err := filepath.EvalSymlinks(inside)
	require.NoError(t, err)
	assert.Equal(t, workdir, resolved)

	after, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, before, after, "process working directory must be restored")
}

func TestBlockCommand_Run_MissingWorkingDir(t *testing.T) {
	b, err := NewBlockCommand("wd", filepath.Join(t.TempDir(), "absent"), func(cmd *BlockCommand) error {
		return nil
	})
	require.NoError(t, err)

	status := b.Run(context.Background(), nil)

	assert.Equal(t, model.StatusError, status)
	assert.NotEmpty(t, b.ErrorOutput())
}

func TestBlockCommand_Run_ExecTimeRecordedOnFailure(t *testing.T) {
	b, err := NewBlockCommand("slow failure", "", func(cmd *BlockCommand) error {
		time.Sleep(20 * time.Millisecond)
		return errors.New("late boom")
	})
	require.NoError(t, err)

	b.Run(context.Background(), nil)

	assert.GreaterOrEqual(t, b.ExecTime(), 20*time.Millisecond)
}

func TestBlockCommand_CloneIsIndependent(t *testing.T) {
	calls := 0
	b, err := NewBlockCommand("counted", "", func(cmd *BlockCommand) error {
		calls++
		return nil
	})
	require.NoError(t, err)

	clone := b.Clone().(*BlockCommand)
	clone.Run(context.Background(), nil)

	assert.Equal(t, 1, calls, "clone shares the callable")
	assert.Equal(t, model.StatusNotExecuted, b.Status())
	assert.Equal(t, model.StatusSuccess, clone.Status())
}
