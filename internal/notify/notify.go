// Package notify sends best-effort desktop notifications on session
// state changes.
package notify

import (
	"fmt"

	"github.com/gen2brain/beeep"

	"github.com/geraschenko/whisper-transcribe/internal/device"
)

const appName = "Whisper Transcribe"

// Notifier posts desktop notifications. Delivery failures are ignored;
// notifications are never load-bearing.
type Notifier struct {
	enabled bool
}

// New builds a notifier; a disabled notifier suppresses everything.
func New(enabled bool) *Notifier {
	return &Notifier{enabled: enabled}
}

// TranscriptionStarted announces the active capture device.
func (n *Notifier) TranscriptionStarted(id device.ID) {
	if id == device.Default {
		n.send("Transcription started", "Using default audio device")
		return
	}
	n.send("Transcription started", fmt.Sprintf("Using audio device %d", id))
}

// TranscriptionStopped announces the pipeline shutdown.
func (n *Notifier) TranscriptionStopped() {
	n.send("Transcription stopped", "")
}

// PipelineFailed announces a spawn failure.
func (n *Notifier) PipelineFailed(reason string) {
	n.send("Transcription failed", reason)
}

func (n *Notifier) send(title, message string) {
	if !n.enabled {
		return
	}
	_ = beeep.Notify(appName+": "+title, message, "")
}
