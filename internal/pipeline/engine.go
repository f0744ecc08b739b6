package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cargohook/cargohook/internal/toolchain"
	"github.com/cargohook/cargohook/pkg/logger"
)

// ChannelProber reports which rustup toolchain channels are installed.
// *toolchain.Rustup satisfies it.
type ChannelProber interface {
	Available() bool
	Channels(ctx context.Context) ([]string, error)
}

// Engine executes hook stages in priority order with fail-fast semantics for
// required stages. An Engine is good for a single Run; channel and staged-file
// probes are performed at most once per run.
type Engine struct {
	Invoker Invoker
	Prober  ChannelProber
	// StagedFiles lists the repository's staged paths (slash-separated,
	// relative to the root). It is consulted lazily, only when a stage
	// declares path patterns. A nil func disables path gating.
	StagedFiles func() ([]string, error)
	// DefaultTimeout bounds stages that do not declare their own timeout.
	// Zero means no bound.
	DefaultTimeout time.Duration
	// Verbose promotes progress logs from debug to info level.
	Verbose bool
	// NoOp logs what would run without executing anything.
	NoOp bool

	rustupFound    bool
	channels       []string
	channelsLoaded bool
	staged         []string
	stagedKnown    bool
	stagedLoaded   bool
}

// NewEngine returns an engine that executes stages as external processes.
func NewEngine(prober ChannelProber) *Engine {
	return &Engine{Invoker: ExecInvoker{}, Prober: prober}
}

// Run executes the stages for a hook in the project rooted at root.
//
// Stages are sorted by priority (lower first, manifest order preserved for
// ties). A stage is skipped when its required toolchain channel is not
// installed or when none of its path patterns match a staged file. Advisory
// stage failures are logged and discarded. The first required-stage failure
// stops the run and is returned as a *StageError carrying the tool's exit
// status.
func (e *Engine) Run(ctx context.Context, root string, stages []Stage) error {
	if len(stages) == 0 {
		logger.Debug("pipeline: no stages configured")
		return nil
	}

	sorted := make([]Stage, len(stages))
	copy(sorted, stages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	e.logProgress(fmt.Sprintf("pipeline: executing %d stage(s)", len(sorted)))

	for i, st := range sorted {
		progress := fmt.Sprintf("[%d/%d]", i+1, len(sorted))

		if st.RequiresChannel != "" {
			installed, reason := e.channelInstalled(ctx, st.RequiresChannel)
			if !installed {
				logger.Warn(fmt.Sprintf("pipeline: %s skipping %s: %s", progress, st.Name, reason))
				continue
			}
		}
		if len(st.Paths) > 0 && !e.stagedMatch(st.Paths) {
			logger.Debug(fmt.Sprintf("pipeline: %s skipping %s: no staged files match", progress, st.Name))
			continue
		}
		if e.NoOp {
			logger.Info(fmt.Sprintf("pipeline: %s would run: %s", progress, st.CommandLine()))
			continue
		}

		e.logProgress(fmt.Sprintf("pipeline: %s running: %s", progress, st.CommandLine()))
		start := time.Now()
		err := e.invoke(ctx, root, st)
		elapsed := time.Since(start)

		if err != nil {
			if st.Advisory {
				logger.Warn(fmt.Sprintf("pipeline: %s advisory stage %s failed, continuing", progress, st.Name), logger.Err(err))
				continue
			}
			code := exitStatus(err)
			logger.Error(fmt.Sprintf("pipeline: %s stage %s failed", progress, st.Name),
				logger.Int("exit_status", code), logger.Err(err))
			return &StageError{Stage: st.Name, Code: code, Hint: hintFor(sorted, i), Err: err}
		}

		logger.Debug(fmt.Sprintf("pipeline: %s completed: %s", progress, st.Name),
			logger.Duration("elapsed", elapsed))
	}

	e.logProgress("pipeline: all stages completed")
	return nil
}

// logProgress logs at info level only if Verbose is enabled, otherwise at debug.
func (e *Engine) logProgress(msg string) {
	if e.Verbose {
		logger.Info(msg)
	} else {
		logger.Debug(msg)
	}
}

// invoke runs one stage with its timeout applied. Advisory stages run quiet.
func (e *Engine) invoke(ctx context.Context, root string, st Stage) error {
	timeout := st.Timeout
	if timeout <= 0 {
		timeout = e.DefaultTimeout
	}
	if timeout <= 0 {
		return e.Invoker.Invoke(ctx, st, root, st.Advisory)
	}

	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := e.Invoker.Invoke(stageCtx, st, root, st.Advisory)
	if stageCtx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("timed out after %s: %w", timeout, context.DeadlineExceeded)
	}
	return err
}

// channelInstalled reports whether the given rustup channel is installed.
// The rustup probe runs at most once per engine.
func (e *Engine) channelInstalled(ctx context.Context, channel string) (bool, string) {
	if !e.channelsLoaded {
		e.channelsLoaded = true
		if e.Prober != nil && e.Prober.Available() {
			e.rustupFound = true
			chans, err := e.Prober.Channels(ctx)
			if err != nil {
				logger.Warn("pipeline: failed to list toolchain channels", logger.Err(err))
			}
			e.channels = chans
		}
	}
	if !e.rustupFound {
		return false, "rustup not found"
	}
	if toolchain.HasChannel(e.channels, channel) {
		return true, ""
	}
	return false, fmt.Sprintf("toolchain channel %s not installed", channel)
}

// stagedMatch reports whether any staged file matches one of the patterns.
// When the staged set cannot be determined the stage runs anyway.
func (e *Engine) stagedMatch(patterns []string) bool {
	if !e.stagedLoaded {
		e.stagedLoaded = true
		if e.StagedFiles != nil {
			files, err := e.StagedFiles()
			if err != nil {
				logger.Warn("pipeline: failed to list staged files, running stage anyway", logger.Err(err))
			} else {
				e.staged = files
				e.stagedKnown = true
			}
		}
	}
	if !e.stagedKnown {
		return true
	}
	for _, pattern := range patterns {
		for _, file := range e.staged {
			ok, err := doublestar.Match(pattern, file)
			if err != nil {
				logger.Warn(fmt.Sprintf("pipeline: invalid path pattern %q", pattern))
				break
			}
			if ok {
				return true
			}
		}
	}
	return false
}

// hintFor returns the command line of the nearest advisory stage preceding the
// failed one. That command is the fix a developer should run by hand.
func hintFor(stages []Stage, failed int) string {
	for i := failed - 1; i >= 0; i-- {
		if stages[i].Advisory {
			return stages[i].CommandLine()
		}
	}
	return ""
}
