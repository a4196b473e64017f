// Package main provides the whisper-transcribe process entrypoint.
package main

import (
	"context"
	"os"

	"github.com/geraschenko/whisper-transcribe/internal/app"
)

// main defers signal handling to the daemon's control loop, which owns
// the SIGUSR1/SIGINT/SIGTERM triggers.
func main() {
	exitCode := app.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(exitCode)
}
