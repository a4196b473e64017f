package device

import (
	"context"
	"log/slog"
	"os/exec"
	"slices"
	"strconv"
	"strings"
)

// listFlag is the fixed argument the transcribe binary understands for
// printing its capture devices, one "<id>: <name>" record per line.
const listFlag = "--list-devices"

// Runner executes an external command and captures its stdout.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct{}

func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Detect invokes the enumerator binary and parses its output into a fresh
// catalog. Detection failures are non-fatal: any spawn error or non-zero
// exit yields an empty catalog and a log entry.
func Detect(ctx context.Context, runner Runner, binary string, logger *slog.Logger) Catalog {
	out, err := runner.Output(ctx, binary, listFlag)
	if err != nil {
		logger.Error("detect audio devices failed", "binary", binary, "error", err.Error())
		return Catalog{}
	}
	return ParseList(string(out))
}

// ParseList parses enumerator output. Each non-blank line of the form
// "<id>:<name>" yields one entry; the first colon delimits, so names may
// contain colons. Malformed lines are skipped silently.
func ParseList(s string) Catalog {
	catalog := Catalog{}
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		idText, name, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(idText))
		if err != nil || id < 0 {
			continue
		}
		catalog[ID(id)] = strings.TrimSpace(name)
	}
	return catalog
}

// LogStatus records the detected devices with preferred/active markers and
// a fallback note when the preferred device is currently absent.
func LogStatus(logger *slog.Logger, catalog Catalog, preferred ID) {
	active := ResolveActive(preferred, catalog)
	logger.Info("audio devices detected", "count", len(catalog))

	for _, id := range SortedIDs(catalog) {
		markers := make([]string, 0, 2)
		if id == preferred {
			markers = append(markers, "preferred")
		}
		if id == active {
			markers = append(markers, "active")
		}
		logger.Info("audio device",
			"id", int(id),
			"name", catalog[id],
			"markers", strings.Join(markers, ","),
		)
	}

	if preferred >= 0 && active == Default {
		logger.Info("preferred device not available, using default", "preferred", int(preferred))
	}
}

// SortedIDs returns the catalog keys in ascending order.
func SortedIDs(catalog Catalog) []ID {
	ids := make([]ID, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
