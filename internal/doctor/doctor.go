// Package doctor runs runtime readiness diagnostics for the daemon's
// external collaborators.
package doctor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/geraschenko/whisper-transcribe/internal/supervisor"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes readiness checks for the given work directory: the
// transcribe binary, the pipeline's shell and typing utility, and work
// directory writability.
func Run(workDir string) Report {
	checks := []Check{
		checkTranscribeBinary(filepath.Join(workDir, supervisor.BinaryRelPath)),
		checkBinary("sh", "pipeline shell"),
		checkBinary("xdotool", "keystroke injection"),
		checkWorkDir(workDir),
	}
	return Report{Checks: checks}
}

// checkTranscribeBinary validates the pipeline front-end is present and
// executable.
func checkTranscribeBinary(path string) Check {
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: "transcribe", Pass: false, Message: fmt.Sprintf("binary not found: %s", path)}
	}
	if !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
		return Check{Name: "transcribe", Pass: false, Message: fmt.Sprintf("not executable: %s", path)}
	}
	return Check{Name: "transcribe", Pass: true, Message: fmt.Sprintf("found at %s", path)}
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, purpose string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, purpose)}
}

// checkWorkDir validates the pid and config records can be written.
func checkWorkDir(workDir string) Check {
	probe := filepath.Join(workDir, ".doctor-probe")
	if err := os.WriteFile(probe, nil, 0o600); err != nil {
		return Check{Name: "work_dir", Pass: false, Message: fmt.Sprintf("not writable: %s", workDir)}
	}
	_ = os.Remove(probe)
	return Check{Name: "work_dir", Pass: true, Message: fmt.Sprintf("writable at %s", workDir)}
}
