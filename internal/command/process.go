package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stepline/stepline/internal/model"
)

// ProcessConfig describes an external-process step.
type ProcessConfig struct {
	// Command is the shell command line to execute. Required.
	Command string
	Name    string
	// WorkingDir is created if missing. Defaults to ".".
	WorkingDir string
	// Timeout bounds the run. Zero means no timeout.
	Timeout time.Duration
}

// ProcessCommand executes a command line as an external process, capturing
// stdout and stderr separately and enforcing an optional timeout. The
// command line is interpreted by the shell, so builtins and pipelines work.
type ProcessCommand struct {
	Base
	cmdline string
	workdir string
	timeout time.Duration
}

// NewProcessCommand validates cfg and returns a ready command. A missing
// command line is a *ParameterError.
func NewProcessCommand(cfg ProcessConfig) (*ProcessCommand, error) {
	if cfg.Command == "" {
		return nil, &ParameterError{Param: "command"}
	}
	workdir := cfg.WorkingDir
	if workdir == "" {
		workdir = "."
	}
	p := &ProcessCommand{
		Base:    *NewBase(cfg.Name),
		cmdline: cfg.Command,
		workdir: workdir,
		timeout: cfg.Timeout,
	}
	return p, nil
}

func (p *ProcessCommand) CommandLine() string { return p.cmdline }

func (p *ProcessCommand) WorkingDir() string { return p.workdir }

func (p *ProcessCommand) Timeout() time.Duration { return p.timeout }

func (p *ProcessCommand) Clone() Command {
	c := *p
	return &c
}

// Run spawns the command line in the working directory, creating the
// directory first if it does not exist. Exit code 0 maps to Success, a
// non-zero exit to Error, and a process that terminated without a
// reportable exit status (killed by an outside signal) to Warning. A spawn
// failure never escapes: it becomes Error with the failure description in
// the error output. ExecTime is the wall-clock duration of the call
// regardless of outcome.
func (p *ProcessCommand) Run(ctx context.Context, env any) model.Status {
	_ = env
	p.Reset()
	start := time.Now()
	defer func() { p.execTime = time.Since(start) }()

	if err := os.MkdirAll(p.workdir, 0755); err != nil {
		p.status = model.StatusError
		p.errorOutput = fmt.Sprintf("create working directory %s: %v", p.workdir, err)
		return p.status
	}

	cmd := exec.Command("sh", "-c", p.cmdline)
	cmd.Dir = p.workdir
	// The shell gets its own process group so a timeout kill reaches its
	// children too; otherwise pipeline members survive the kill and hold
	// the output pipes open past the timeout.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		p.status = model.StatusError
		p.errorOutput = fmt.Sprintf("stdout pipe: %v", err)
		return p.status
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		p.status = model.StatusError
		p.errorOutput = fmt.Sprintf("stderr pipe: %v", err)
		return p.status
	}

	p.logger.Debug().Str("command", p.cmdline).Str("dir", p.workdir).Msg("spawning process")

	if err := cmd.Start(); err != nil {
		p.status = model.StatusError
		p.errorOutput = fmt.Sprintf("start %q: %v", p.cmdline, err)
		p.logger.Error().Err(err).Str("command", p.cmdline).Msg("process failed to start")
		return p.status
	}

	var outBuf, errBuf bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&outBuf, stdout)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&errBuf, stderr)
		return err
	})

	// Wait is only called after both pipes are drained; the buffers are
	// not touched again after waitCh delivers.
	waitCh := make(chan error, 1)
	go func() {
		_ = g.Wait()
		waitCh <- cmd.Wait()
	}()

	var (
		waitErr  error
		killErr  error
		timedOut bool
		canceled bool
	)
	if p.timeout > 0 {
		timer := time.NewTimer(p.timeout)
		defer timer.Stop()
		select {
		case waitErr = <-waitCh:
		case <-timer.C:
			timedOut = true
			killErr = killGroup(cmd)
			waitErr = <-waitCh
		case <-ctx.Done():
			canceled = true
			killErr = killGroup(cmd)
			waitErr = <-waitCh
		}
	} else {
		select {
		case waitErr = <-waitCh:
		case <-ctx.Done():
			canceled = true
			killErr = killGroup(cmd)
			waitErr = <-waitCh
		}
	}

	p.output = outBuf.String()
	p.errorOutput = errBuf.String()
	if killErr != nil {
		// A failed kill is reported but does not decide the status.
		p.errorOutput += fmt.Sprintf("\nfailed to kill process: %v", killErr)
	}

	switch {
	case timedOut:
		p.errorOutput += fmt.Sprintf("\ncommand timed out after %s", p.timeout)
		p.status = model.StatusError
	case canceled:
		p.errorOutput += fmt.Sprintf("\ncommand canceled: %v", ctx.Err())
		p.status = model.StatusError
	case waitErr == nil:
		p.status = model.StatusSuccess
	default:
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			if exitErr.ExitCode() >= 0 {
				p.status = model.StatusError
			} else {
				// Terminated without a reportable exit status.
				p.status = model.StatusWarning
			}
		} else {
			p.status = model.StatusError
			p.errorOutput += fmt.Sprintf("\nwait: %v", waitErr)
		}
	}

	if p.status == model.StatusError {
		p.logger.Error().Str("command", p.cmdline).Str("error_output", p.errorOutput).Msg("process failed")
	}
	return p.status
}

// killGroup signals the shell's whole process group. An already-exited
// group is not an error.
func killGroup(cmd *exec.Cmd) error {
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return err
	}
	return nil
}
