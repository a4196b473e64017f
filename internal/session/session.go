// Package session ties the config store, device catalog, and process
// supervisor together under the control loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/geraschenko/whisper-transcribe/internal/config"
	"github.com/geraschenko/whisper-transcribe/internal/control"
	"github.com/geraschenko/whisper-transcribe/internal/device"
	"github.com/geraschenko/whisper-transcribe/internal/fsm"
	"github.com/geraschenko/whisper-transcribe/internal/pidfile"
	"github.com/geraschenko/whisper-transcribe/internal/supervisor"
)

// ErrBinaryMissing is the one unrecoverable startup precondition: the
// transcribe binary is absent or not executable.
var ErrBinaryMissing = errors.New("transcribe binary missing or not executable")

// Pipeline is the session-facing subset of supervisor behavior.
type Pipeline interface {
	Start(id device.ID) error
	Stop() error
	Status() fsm.State
}

// PreferenceStore persists the preferred capture device.
type PreferenceStore interface {
	Load() device.ID
	Save(device.ID) error
}

// Notifier is the session-facing subset of notification behavior.
type Notifier interface {
	TranscriptionStarted(id device.ID)
	TranscriptionStopped()
	PipelineFailed(reason string)
}

// noopNotifier preserves session flow when no notifier is wired.
type noopNotifier struct{}

func (noopNotifier) TranscriptionStarted(device.ID) {}
func (noopNotifier) TranscriptionStopped()          {}
func (noopNotifier) PipelineFailed(string)          {}

// Options configures a Coordinator. WorkDir and Logger are required; the
// remaining collaborators default to the production implementations.
type Options struct {
	WorkDir  string
	Logger   *slog.Logger
	Store    PreferenceStore
	Runner   device.Runner
	Pipeline Pipeline
	Notifier Notifier

	// OnMenu receives rebuilt device-menu data; rendering stays outside
	// the core. OnExit tells the surrounding shell to quit.
	OnMenu func([]device.MenuItem)
	OnExit func()
}

// Coordinator exclusively owns the session state: the preference, the
// current catalog, and the supervised pipeline handle. All mutation
// happens on the control-loop goroutine.
type Coordinator struct {
	logger   *slog.Logger
	store    PreferenceStore
	runner   device.Runner
	pipeline Pipeline
	notifier Notifier
	loop     *control.Loop

	workDir string
	binary  string
	pidPath string

	preferred device.ID
	catalog   device.Catalog

	onMenu func([]device.MenuItem)
	onExit func()
}

// New runs the startup sequence: validate the transcribe binary (fatal
// when missing), ensure the work directory, load the preference, and run
// the initial device detection.
func New(ctx context.Context, opts Options) (*Coordinator, error) {
	if opts.WorkDir == "" {
		return nil, errors.New("session: work directory is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if err := os.MkdirAll(opts.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure work directory: %w", err)
	}

	binary := filepath.Join(opts.WorkDir, supervisor.BinaryRelPath)
	if err := validateBinary(binary); err != nil {
		opts.Logger.Error("transcribe binary not found", "path", binary, "error", err.Error())
		return nil, err
	}

	if opts.Store == nil {
		opts.Store = config.NewStore(filepath.Join(opts.WorkDir, config.FileName), opts.Logger)
	}
	if opts.Runner == nil {
		opts.Runner = device.ExecRunner{}
	}
	if opts.Pipeline == nil {
		opts.Pipeline = supervisor.New(opts.WorkDir, opts.Logger)
	}
	if opts.Notifier == nil {
		opts.Notifier = noopNotifier{}
	}

	c := &Coordinator{
		logger:   opts.Logger,
		store:    opts.Store,
		runner:   opts.Runner,
		pipeline: opts.Pipeline,
		notifier: opts.Notifier,
		loop:     control.NewLoop(opts.Logger),
		workDir:  opts.WorkDir,
		binary:   binary,
		pidPath:  filepath.Join(opts.WorkDir, pidfile.FileName),
		onMenu:   opts.OnMenu,
		onExit:   opts.OnExit,
	}

	c.preferred = c.store.Load()
	c.detect(ctx)

	return c, nil
}

// validateBinary requires an executable regular file.
func validateBinary(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBinaryMissing, path)
	}
	if !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%w: %s", ErrBinaryMissing, path)
	}
	return nil
}

// Loop exposes the control loop so shells can enqueue synchronous actions.
func (c *Coordinator) Loop() *control.Loop {
	return c.loop
}

// Preferred returns the stored device preference.
func (c *Coordinator) Preferred() device.ID {
	return c.preferred
}

// Catalog returns the current catalog snapshot. It is replaced wholesale
// on refresh; callers re-fetch rather than patch.
func (c *Coordinator) Catalog() device.Catalog {
	return c.catalog
}

// PidPath returns where the running instance records its pid.
func (c *Coordinator) PidPath() string {
	return c.pidPath
}

// Run installs the control triggers, writes the pid record, and blocks in
// the event loop until quit. The shutdown sequence always runs through
// HandleQuit.
func (c *Coordinator) Run(ctx context.Context) {
	c.loop.Notify()
	defer c.loop.Stop()

	if err := pidfile.Write(c.pidPath); err != nil {
		c.logger.Warn("could not write pid file", "error", err.Error())
	}

	c.logger.Info("whisper transcribe started",
		"pid", os.Getpid(),
		"work_dir", c.workDir,
		"preferred_device", int(c.preferred),
	)

	c.loop.Run(ctx, c)
}

// HandleToggle flips the session: stop when transcribing, otherwise start
// on the resolved active device.
func (c *Coordinator) HandleToggle(ctx context.Context) {
	if c.pipeline.Status() == fsm.StateTranscribing {
		if err := c.pipeline.Stop(); err != nil {
			c.logger.Error("stop transcription failed", "error", err.Error())
		}
		c.notifier.TranscriptionStopped()
		return
	}

	active := device.ResolveActive(c.preferred, c.catalog)
	if err := c.pipeline.Start(active); err != nil {
		c.notifier.PipelineFailed(err.Error())
		return
	}
	c.notifier.TranscriptionStarted(active)
}

// HandleSelect updates the device preference. Detection runs first so the
// choice is validated against current hardware; the preference is stored
// even when saving fails, which only costs persistence.
func (c *Coordinator) HandleSelect(ctx context.Context, id device.ID) {
	c.detect(ctx)

	c.preferred = id
	if err := c.store.Save(id); err != nil {
		c.logger.Warn("could not save config", "error", err.Error())
	}
	c.logger.Info("audio device selected", "device", int(id))

	c.rebuildMenu()
}

// HandleRefresh re-detects devices and rebuilds the menu data.
func (c *Coordinator) HandleRefresh(ctx context.Context) {
	c.detect(ctx)
	c.rebuildMenu()
}

// HandleQuit runs the shutdown sequence: stop transcription if running,
// remove the pid record (best-effort), and signal the shell to exit.
func (c *Coordinator) HandleQuit(ctx context.Context) {
	c.logger.Info("quitting")

	if c.pipeline.Status() == fsm.StateTranscribing {
		if err := c.pipeline.Stop(); err != nil {
			c.logger.Error("stop transcription failed", "error", err.Error())
		}
	}

	pidfile.Remove(c.pidPath, c.logger)

	if c.onExit != nil {
		c.onExit()
	}
}

// detect replaces the catalog wholesale from a fresh enumeration pass.
func (c *Coordinator) detect(ctx context.Context) {
	c.catalog = device.Detect(ctx, c.runner, c.binary, c.logger)
	device.LogStatus(c.logger, c.catalog, c.preferred)
}

func (c *Coordinator) rebuildMenu() {
	if c.onMenu != nil {
		c.onMenu(device.BuildMenu(c.catalog, c.preferred))
	}
}
