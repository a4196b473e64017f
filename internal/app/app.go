// Package app dispatches CLI commands to the daemon and its control verbs.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/geraschenko/whisper-transcribe/internal/cli"
	"github.com/geraschenko/whisper-transcribe/internal/config"
	"github.com/geraschenko/whisper-transcribe/internal/device"
	"github.com/geraschenko/whisper-transcribe/internal/doctor"
	"github.com/geraschenko/whisper-transcribe/internal/logging"
	"github.com/geraschenko/whisper-transcribe/internal/notify"
	"github.com/geraschenko/whisper-transcribe/internal/pidfile"
	"github.com/geraschenko/whisper-transcribe/internal/session"
	"github.com/geraschenko/whisper-transcribe/internal/supervisor"
	"github.com/geraschenko/whisper-transcribe/internal/version"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("whisper-transcribe"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("whisper-transcribe"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	workDir, err := resolveWorkDir(parsed.WorkDir)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	logger.Info("command start",
		"command", parsed.Command,
		"work_dir", workDir,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandRun:
		return r.commandRun(ctx, workDir, logger)
	case cli.CommandToggle:
		return r.signalDaemon(workDir, syscall.SIGUSR1, "toggle requested")
	case cli.CommandQuit:
		return r.signalDaemon(workDir, syscall.SIGTERM, "quit requested")
	case cli.CommandStatus:
		return r.commandStatus(workDir)
	case cli.CommandDevices:
		return r.commandDevices(ctx, workDir, logger)
	case cli.CommandDoctor:
		report := doctor.Run(workDir)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// commandRun starts the control daemon and blocks in its event loop.
func (r Runner) commandRun(ctx context.Context, workDir string, logger *slog.Logger) int {
	coordinator, err := session.New(ctx, session.Options{
		WorkDir:  workDir,
		Logger:   logger,
		Notifier: notify.New(true),
		OnMenu: func(items []device.MenuItem) {
			// The tray shell consumes the menu data; headless runs just
			// record that it changed.
			logger.Debug("device menu rebuilt", "items", len(items))
		},
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	coordinator.Run(ctx)
	return 0
}

// signalDaemon delivers a control signal to the pid the running instance
// recorded.
func (r Runner) signalDaemon(workDir string, sig syscall.Signal, verb string) int {
	pid, err := pidfile.Read(filepath.Join(workDir, pidfile.FileName))
	if err != nil || !pidfile.Alive(pid) {
		fmt.Fprintln(r.Stderr, "error: no running whisper-transcribe instance")
		return 1
	}

	if err := syscall.Kill(pid, sig); err != nil {
		fmt.Fprintf(r.Stderr, "error: signal pid %d: %v\n", pid, err)
		return 1
	}

	fmt.Fprintf(r.Stdout, "%s (pid %d)\n", verb, pid)
	return 0
}

func (r Runner) commandStatus(workDir string) int {
	pid, err := pidfile.Read(filepath.Join(workDir, pidfile.FileName))
	if err == nil && pidfile.Alive(pid) {
		fmt.Fprintf(r.Stdout, "running (pid %d)\n", pid)
		return 0
	}

	fmt.Fprintln(r.Stdout, "not running")
	return 1
}

func (r Runner) commandDevices(ctx context.Context, workDir string, logger *slog.Logger) int {
	binary := filepath.Join(workDir, supervisor.BinaryRelPath)
	catalog := device.Detect(ctx, device.ExecRunner{}, binary, logger)
	if len(catalog) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	preferred := config.NewStore(filepath.Join(workDir, config.FileName), logger).Load()
	for _, id := range device.SortedIDs(catalog) {
		preferredMark := " "
		if id == preferred {
			preferredMark = "*"
		}
		fmt.Fprintf(r.Stdout, "%s %d: %s\n", preferredMark, int(id), catalog[id])
	}

	return 0
}

// resolveWorkDir falls back to the executable's directory, where the
// transcribe binary and records live by default.
func resolveWorkDir(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return "", errors.New("unable to resolve executable path for work directory fallback")
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolve executable symlinks: %w", err)
	}
	return filepath.Dir(exe), nil
}
