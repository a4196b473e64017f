package supervisor

import (
	"fmt"

	"github.com/geraschenko/whisper-transcribe/internal/device"
)

// BinaryRelPath locates the transcribe binary inside the work directory.
const BinaryRelPath = "build/transcribe"

// typeCommand feeds each transcript line to xdotool as literal keystrokes.
// --clearmodifiers keeps held hotkey modifiers from corrupting the injected
// text; printf appends the inter-line space.
const typeCommand = `while IFS= read -r line; do printf '%s ' "$line" | xdotool type --clearmodifiers --file -; done`

// BuildPipeline renders the shell pipeline joining the transcribe binary to
// the keystroke injector. The capture flag is omitted for device.Default so
// the binary picks its own default device.
func BuildPipeline(id device.ID) string {
	transcribe := "./" + BinaryRelPath
	if id >= 0 {
		transcribe += fmt.Sprintf(" --capture %d", id)
	}
	return transcribe + " | " + typeCommand
}
