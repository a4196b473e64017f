// Package supervisor owns the transcription pipeline's process lifecycle.
package supervisor

import (
	"fmt"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"github.com/geraschenko/whisper-transcribe/internal/device"
	"github.com/geraschenko/whisper-transcribe/internal/fsm"
)

// GracePeriod bounds how long Stop waits after SIGTERM before escalating
// to SIGKILL. The control loop accepts blocking for this long.
const GracePeriod = time.Second

// process is the supervisor's view of one spawned pipeline group.
type process interface {
	PID() int
	Signal(sig syscall.Signal) error
	Done() <-chan error
}

type spawnFunc func(workDir, command string) (process, error)

// Supervisor drives the Idle <-> Transcribing state machine around at most
// one supervised pipeline. It is not safe for concurrent use; the control
// loop is its only caller.
type Supervisor struct {
	logger  *slog.Logger
	workDir string
	spawn   spawnFunc
	grace   time.Duration

	state fsm.State
	proc  process
}

// New builds an idle supervisor that runs the pipeline from workDir.
func New(workDir string, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		logger:  logger,
		workDir: workDir,
		spawn:   spawnShell,
		grace:   GracePeriod,
		state:   fsm.StateIdle,
	}
}

// Status returns the current session state without side effects.
func (s *Supervisor) Status() fsm.State {
	return s.state
}

// Start launches the transcription pipeline as a new process group.
// Starting while already transcribing is a no-op. A spawn failure leaves
// the supervisor idle.
func (s *Supervisor) Start(id device.ID) error {
	next, err := fsm.Transition(s.state, fsm.EventStart)
	if err != nil {
		return nil
	}

	command := BuildPipeline(id)
	proc, err := s.spawn(s.workDir, command)
	if err != nil {
		s.logger.Error("start transcription failed", "error", err.Error())
		return fmt.Errorf("start transcription pipeline: %w", err)
	}

	s.proc = proc
	s.state = next
	s.logger.Info("transcription started", "pid", proc.PID(), "device", int(id))
	return nil
}

// Stop terminates the pipeline group: SIGTERM, a bounded wait, then SIGKILL
// if the group is still alive. Stopping while idle is a no-op. Bookkeeping
// resets on every path, including signaling errors, so the supervisor never
// keeps believing a dead pipeline is running.
func (s *Supervisor) Stop() error {
	next, err := fsm.Transition(s.state, fsm.EventStop)
	if err != nil || s.proc == nil {
		return nil
	}

	proc := s.proc
	defer func() {
		s.proc = nil
		s.state = next
	}()

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		s.logger.Error("terminate pipeline group failed", "pid", proc.PID(), "error", err.Error())
		return fmt.Errorf("signal pipeline group: %w", err)
	}

	select {
	case <-proc.Done():
	case <-time.After(s.grace):
		s.logger.Warn("pipeline ignored SIGTERM, escalating", "pid", proc.PID())
		if err := proc.Signal(syscall.SIGKILL); err != nil {
			s.logger.Error("kill pipeline group failed", "pid", proc.PID(), "error", err.Error())
			return fmt.Errorf("kill pipeline group: %w", err)
		}
		<-proc.Done()
	}

	s.logger.Info("transcription stopped", "pid", proc.PID())
	return nil
}

// shellProcess wraps one `sh -c` pipeline spawned in its own process group.
type shellProcess struct {
	cmd  *exec.Cmd
	done chan error
}

// spawnShell runs command under sh from workDir with Setpgid so the whole
// pipeline forms one signalable group. Signaling only the front process
// would orphan the typing utility, which keeps consuming the stream.
func spawnShell(workDir, command string) (process, error) {
	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = workDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	return &shellProcess{cmd: cmd, done: done}, nil
}

func (p *shellProcess) PID() int {
	return p.cmd.Process.Pid
}

// Signal targets the negated pgid, delivering to every pipeline stage.
func (p *shellProcess) Signal(sig syscall.Signal) error {
	return syscall.Kill(-p.cmd.Process.Pid, sig)
}

func (p *shellProcess) Done() <-chan error {
	return p.done
}
