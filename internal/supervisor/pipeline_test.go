package supervisor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geraschenko/whisper-transcribe/internal/device"
)

func TestBuildPipelineDefaultDeviceOmitsCaptureFlag(t *testing.T) {
	command := BuildPipeline(device.Default)

	require.True(t, strings.HasPrefix(command, "./build/transcribe | "))
	require.NotContains(t, command, "--capture")
	require.Contains(t, command, "xdotool type --clearmodifiers --file -")
}

func TestBuildPipelineSelectsCaptureDevice(t *testing.T) {
	command := BuildPipeline(5)

	require.True(t, strings.HasPrefix(command, "./build/transcribe --capture 5 | "))
	require.Contains(t, command, `while IFS= read -r line; do printf '%s ' "$line"`)
}
