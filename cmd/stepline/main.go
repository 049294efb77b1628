package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	flags "github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"

	"github.com/stepline/stepline/internal/config"
	"github.com/stepline/stepline/internal/lock"
	"github.com/stepline/stepline/internal/logging"
	"github.com/stepline/stepline/internal/model"
	"github.com/stepline/stepline/internal/report"
	"github.com/stepline/stepline/internal/sequence"
)

type options struct {
	Config   string `short:"c" long:"config" description:"sequence definition file (YAML or TOML)" required:"true"`
	Report   string `short:"r" long:"report" description:"write a YAML run report to this path"`
	Watch    bool   `short:"w" long:"watch" description:"re-run the sequence whenever the definition file changes"`
	Runner   string `long:"runner" description:"runner name recorded in the status (defaults to the hostname)"`
	LockFile string `long:"lock-file" description:"guard the run with an exclusive file lock"`
	LogLevel string `long:"log-level" description:"log level: debug, info, warn or error" default:"info"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		os.Exit(2)
	}

	logger := logging.New(opts.LogLevel)

	// os.Exit skips deferred calls, so run owns the lock lifetime and
	// main only translates its result.
	os.Exit(run(opts, logger))
}

func run(opts options, logger zerolog.Logger) int {
	if opts.Runner == "" {
		if host, err := os.Hostname(); err == nil {
			opts.Runner = host
		}
	}

	if opts.LockFile != "" {
		fl := lock.NewFileLock(opts.LockFile)
		if err := fl.TryLock(); err != nil {
			logger.Error().Err(err).Msg("could not acquire lock")
			return 3
		}
		defer fl.Unlock()
	}

	if !opts.Watch {
		return exitCode(runOnce(opts, logger))
	}
	return watchLoop(opts, logger)
}

func runOnce(opts options, logger zerolog.Logger) model.Status {
	file, err := config.Load(opts.Config)
	if err != nil {
		logger.Error().Err(err).Msg("could not load sequence file")
		return model.StatusError
	}
	if opts.Runner != "" && file.Sequence.Runner == "" {
		file.Sequence.Runner = opts.Runner
	}

	seq, err := file.BuildSequence()
	if err != nil {
		logger.Error().Err(err).Msg("could not build sequence")
		return model.StatusError
	}
	seq.SetLogger(logger)
	seq.AddObserver(sequence.ObserverFunc(func(st sequence.SequenceStatus) {
		logger.Debug().Str("sequence", st.SequenceName).Str("status", string(st.Status)).Msg("status update")
	}))

	status := seq.Run(context.Background(), nil)
	finalStatus := seq.Status()
	logger.Info().Msg(finalStatus.Summary())

	if opts.Report != "" {
		if err := report.Write(opts.Report, report.FromStatus(seq.Status())); err != nil {
			logger.Error().Err(err).Str("path", opts.Report).Msg("could not write report")
			return model.StatusError
		}
	}
	return status
}

// watchLoop re-runs the sequence whenever the definition file changes,
// until interrupted. Editor save patterns (rename + create) are handled by
// watching the directory and filtering on the file name.
func watchLoop(opts options, logger zerolog.Logger) int {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error().Err(err).Msg("could not create watcher")
		return 3
	}
	defer watcher.Close()

	dir := filepath.Dir(opts.Config)
	if err := watcher.Add(dir); err != nil {
		logger.Error().Err(err).Str("dir", dir).Msg("could not watch directory")
		return 3
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	runOnce(opts, logger)

	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	target := filepath.Clean(opts.Config)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return 0
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(300 * time.Millisecond)
		case err, ok := <-watcher.Errors:
			if !ok {
				return 0
			}
			logger.Warn().Err(err).Msg("watch error")
		case <-debounce.C:
			logger.Info().Str("config", opts.Config).Msg("sequence file changed, re-running")
			runOnce(opts, logger)
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("shutting down")
			return 0
		}
	}
}

func exitCode(status model.Status) int {
	switch status {
	case model.StatusSuccess:
		return 0
	case model.StatusWarning:
		return 1
	case model.StatusError:
		return 2
	default:
		return 3
	}
}
