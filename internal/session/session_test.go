package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/geraschenko/whisper-transcribe/internal/device"
	"github.com/geraschenko/whisper-transcribe/internal/fsm"
	"github.com/geraschenko/whisper-transcribe/internal/supervisor"
)

type fakePipeline struct {
	state    fsm.State
	starts   []device.ID
	stops    int
	startErr error
}

func (p *fakePipeline) Start(id device.ID) error {
	if p.startErr != nil {
		return p.startErr
	}
	p.starts = append(p.starts, id)
	p.state = fsm.StateTranscribing
	return nil
}

func (p *fakePipeline) Stop() error {
	p.stops++
	p.state = fsm.StateIdle
	return nil
}

func (p *fakePipeline) Status() fsm.State {
	if p.state == "" {
		return fsm.StateIdle
	}
	return p.state
}

type fakeStore struct {
	loaded  device.ID
	saved   []device.ID
	saveErr error
}

func (s *fakeStore) Load() device.ID { return s.loaded }

func (s *fakeStore) Save(id device.ID) error {
	s.saved = append(s.saved, id)
	return s.saveErr
}

type fakeRunner struct {
	out string
	err error
}

func (r *fakeRunner) Output(context.Context, string, ...string) ([]byte, error) {
	return []byte(r.out), r.err
}

type fakeNotifier struct {
	started []device.ID
	stopped int
	failed  []string
}

func (n *fakeNotifier) TranscriptionStarted(id device.ID) { n.started = append(n.started, id) }
func (n *fakeNotifier) TranscriptionStopped()             { n.stopped++ }
func (n *fakeNotifier) PipelineFailed(reason string)      { n.failed = append(n.failed, reason) }

func workDirWithBinary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	binDir := filepath.Join(dir, filepath.Dir(supervisor.BinaryRelPath))
	require.NoError(t, os.MkdirAll(binDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, supervisor.BinaryRelPath), []byte("#!/bin/sh\n"), 0o755))
	return dir
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCoordinator(t *testing.T, opts Options) *Coordinator {
	t.Helper()
	if opts.WorkDir == "" {
		opts.WorkDir = workDirWithBinary(t)
	}
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	c, err := New(context.Background(), opts)
	require.NoError(t, err)
	return c
}

func TestNewMissingBinaryFails(t *testing.T) {
	_, err := New(context.Background(), Options{WorkDir: t.TempDir(), Logger: discardLogger()})
	require.ErrorIs(t, err, ErrBinaryMissing)
}

func TestNewNonExecutableBinaryFails(t *testing.T) {
	dir := t.TempDir()
	binDir := filepath.Join(dir, filepath.Dir(supervisor.BinaryRelPath))
	require.NoError(t, os.MkdirAll(binDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, supervisor.BinaryRelPath), []byte(""), 0o644))

	_, err := New(context.Background(), Options{WorkDir: dir, Logger: discardLogger()})
	require.ErrorIs(t, err, ErrBinaryMissing)
}

func TestNewLoadsPreferenceAndDetects(t *testing.T) {
	store := &fakeStore{loaded: 2}
	runner := &fakeRunner{out: "2: Built-in Mic\n5: USB Headset"}

	c := newCoordinator(t, Options{Store: store, Runner: runner, Pipeline: &fakePipeline{}})

	require.Equal(t, device.ID(2), c.Preferred())
	require.Equal(t, device.Catalog{2: "Built-in Mic", 5: "USB Headset"}, c.Catalog())
}

func TestToggleStartsWithResolvedDevice(t *testing.T) {
	pipeline := &fakePipeline{}
	notifier := &fakeNotifier{}
	// Preferred device 3 is absent from the catalog, so the pipeline gets
	// the default-device sentinel while the preference is retained.
	c := newCoordinator(t, Options{
		Store:    &fakeStore{loaded: 3},
		Runner:   &fakeRunner{out: "1: A\n2: B"},
		Pipeline: pipeline,
		Notifier: notifier,
	})

	c.HandleToggle(context.Background())

	require.Equal(t, []device.ID{device.Default}, pipeline.starts)
	require.Equal(t, []device.ID{device.Default}, notifier.started)
	require.Equal(t, device.ID(3), c.Preferred())
}

func TestToggleStartsWithPreferredWhenPresent(t *testing.T) {
	pipeline := &fakePipeline{}
	c := newCoordinator(t, Options{
		Store:    &fakeStore{loaded: 2},
		Runner:   &fakeRunner{out: "1: A\n2: B"},
		Pipeline: pipeline,
	})

	c.HandleToggle(context.Background())
	require.Equal(t, []device.ID{2}, pipeline.starts)
}

func TestToggleWhileTranscribingStops(t *testing.T) {
	pipeline := &fakePipeline{state: fsm.StateTranscribing}
	notifier := &fakeNotifier{}
	c := newCoordinator(t, Options{
		Store:    &fakeStore{},
		Runner:   &fakeRunner{},
		Pipeline: pipeline,
		Notifier: notifier,
	})

	c.HandleToggle(context.Background())

	require.Equal(t, 1, pipeline.stops)
	require.Empty(t, pipeline.starts)
	require.Equal(t, 1, notifier.stopped)
}

func TestToggleStartFailureNotifies(t *testing.T) {
	pipeline := &fakePipeline{startErr: errors.New("spawn failed")}
	notifier := &fakeNotifier{}
	c := newCoordinator(t, Options{
		Store:    &fakeStore{},
		Runner:   &fakeRunner{},
		Pipeline: pipeline,
		Notifier: notifier,
	})

	c.HandleToggle(context.Background())

	require.Equal(t, []string{"spawn failed"}, notifier.failed)
	require.Empty(t, notifier.started)
}

func TestSelectRedetectsSavesAndRebuildsMenu(t *testing.T) {
	store := &fakeStore{loaded: device.Default}
	runner := &fakeRunner{out: "1: A"}
	var menus [][]device.MenuItem
	c := newCoordinator(t, Options{
		Store:    store,
		Runner:   runner,
		Pipeline: &fakePipeline{},
		OnMenu:   func(items []device.MenuItem) { menus = append(menus, items) },
	})

	// A new device shows up before the user picks it.
	runner.out = "1: A\n4: New Mic"
	c.HandleSelect(context.Background(), 4)

	require.Equal(t, device.ID(4), c.Preferred())
	require.Equal(t, []device.ID{4}, store.saved)
	require.Equal(t, device.Catalog{1: "A", 4: "New Mic"}, c.Catalog())
	require.Len(t, menus, 1)

	var checked []device.ID
	for _, item := range menus[0] {
		if item.Kind == device.MenuDevice && item.Checked {
			checked = append(checked, item.Device)
		}
	}
	require.Equal(t, []device.ID{4}, checked)
}

func TestSelectSaveFailureKeepsPreference(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("disk full")}
	c := newCoordinator(t, Options{
		Store:    store,
		Runner:   &fakeRunner{out: "4: Mic"},
		Pipeline: &fakePipeline{},
	})

	c.HandleSelect(context.Background(), 4)
	require.Equal(t, device.ID(4), c.Preferred())
}

func TestRefreshReplacesCatalogWholesale(t *testing.T) {
	runner := &fakeRunner{out: "1: A\n2: B"}
	c := newCoordinator(t, Options{
		Store:    &fakeStore{},
		Runner:   runner,
		Pipeline: &fakePipeline{},
	})
	require.Len(t, c.Catalog(), 2)

	runner.out = "7: C"
	c.HandleRefresh(context.Background())
	require.Equal(t, device.Catalog{7: "C"}, c.Catalog())
}

func TestQuitStopsPipelineAndRemovesPidRecord(t *testing.T) {
	pipeline := &fakePipeline{state: fsm.StateTranscribing}
	exits := 0
	c := newCoordinator(t, Options{
		Store:    &fakeStore{},
		Runner:   &fakeRunner{},
		Pipeline: pipeline,
		OnExit:   func() { exits++ },
	})
	require.NoError(t, os.WriteFile(c.PidPath(), []byte("1234"), 0o600))

	c.HandleQuit(context.Background())

	require.Equal(t, 1, pipeline.stops)
	require.Equal(t, 1, exits)
	_, err := os.Stat(c.PidPath())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunWritesPidRecordAndExitsOnQuit(t *testing.T) {
	pipeline := &fakePipeline{}
	exits := 0
	c := newCoordinator(t, Options{
		Store:    &fakeStore{},
		Runner:   &fakeRunner{},
		Pipeline: pipeline,
		OnExit:   func() { exits++ },
	})

	c.Loop().RequestQuit()

	done := make(chan struct{})
	go func() {
		c.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not exit on quit event")
	}

	require.Equal(t, 1, exits)
	_, err := os.Stat(c.PidPath())
	require.ErrorIs(t, err, os.ErrNotExist)
}
