// Package control serializes asynchronous signal triggers and synchronous
// in-process actions onto one single-threaded event loop.
package control

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/geraschenko/whisper-transcribe/internal/device"
)

// Kind tags one control event.
type Kind int

const (
	Toggle Kind = iota + 1
	Quit
	Select
	Refresh
)

// Event is one logical control trigger awaiting dispatch.
type Event struct {
	Kind   Kind
	Device device.ID
}

// Handler receives dispatched events, always on the loop goroutine.
type Handler interface {
	HandleToggle(ctx context.Context)
	HandleSelect(ctx context.Context, id device.ID)
	HandleRefresh(ctx context.Context)
	HandleQuit(ctx context.Context)
}

// Loop funnels signal and action triggers into one dispatch sequence.
// Signal arrival does no work beyond the runtime's channel send; mapping
// to an event and all state mutation happen on the Run goroutine.
type Loop struct {
	logger  *slog.Logger
	events  chan Event
	signals chan os.Signal
}

// NewLoop builds an event loop with buffered trigger channels.
func NewLoop(logger *slog.Logger) *Loop {
	return &Loop{
		logger:  logger,
		events:  make(chan Event, 16),
		signals: make(chan os.Signal, 4),
	}
}

// Notify installs the external triggers: SIGUSR1 toggles, SIGINT and
// SIGTERM both quit.
func (l *Loop) Notify() {
	signal.Notify(l.signals, syscall.SIGUSR1, syscall.SIGINT, syscall.SIGTERM)
}

// Stop uninstalls the signal triggers.
func (l *Loop) Stop() {
	signal.Stop(l.signals)
}

// RequestToggle enqueues a toggle event.
func (l *Loop) RequestToggle() {
	l.enqueue(Event{Kind: Toggle})
}

// RequestQuit enqueues a quit event.
func (l *Loop) RequestQuit() {
	l.enqueue(Event{Kind: Quit})
}

// SelectDevice enqueues a device-selection event.
func (l *Loop) SelectDevice(id device.ID) {
	l.enqueue(Event{Kind: Select, Device: id})
}

// RefreshDevices enqueues a catalog-refresh event.
func (l *Loop) RefreshDevices() {
	l.enqueue(Event{Kind: Refresh})
}

func (l *Loop) enqueue(ev Event) {
	select {
	case l.events <- ev:
	default:
		l.logger.Warn("control event dropped, queue full", "kind", int(ev.Kind))
	}
}

// Run dispatches events in arrival order until a quit trigger or context
// cancellation. The handler's quit hook runs exactly once, as the final
// dispatch.
func (l *Loop) Run(ctx context.Context, handler Handler) {
	for {
		select {
		case <-ctx.Done():
			handler.HandleQuit(ctx)
			return
		case sig := <-l.signals:
			l.logger.Info("signal received", "signal", sig.String())
			if l.dispatch(ctx, handler, eventForSignal(sig)) {
				return
			}
		case ev := <-l.events:
			if l.dispatch(ctx, handler, ev) {
				return
			}
		}
	}
}

// dispatch routes one event to the handler and reports whether the loop
// should exit.
func (l *Loop) dispatch(ctx context.Context, handler Handler, ev Event) bool {
	switch ev.Kind {
	case Toggle:
		handler.HandleToggle(ctx)
	case Select:
		handler.HandleSelect(ctx, ev.Device)
	case Refresh:
		handler.HandleRefresh(ctx)
	case Quit:
		handler.HandleQuit(ctx)
		return true
	}
	return false
}

// eventForSignal maps the two external trigger classes: SIGUSR1 toggles,
// everything else installed by Notify quits.
func eventForSignal(sig os.Signal) Event {
	if sig == syscall.SIGUSR1 {
		return Event{Kind: Toggle}
	}
	return Event{Kind: Quit}
}
