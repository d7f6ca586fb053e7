package player

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMedia struct {
	target   string
	options  []Option
	released int
}

func (m *fakeMedia) AddOption(option Option) {
	m.options = append(m.options, option)
}

func (m *fakeMedia) Release() {
	m.released++
}

type fakeEngine struct {
	mu          sync.Mutex
	calls       []string
	created     []*fakeMedia
	current     *fakeMedia
	surface     *Surface
	sink        func(Event)
	closed      int
	bootOpts    []string
	setMediaErr error
}

func (e *fakeEngine) record(call string) {
	e.calls = append(e.calls, call)
}

func (e *fakeEngine) NewMedia(target string) (Media, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("new-media")
	media := &fakeMedia{target: target}
	e.created = append(e.created, media)
	return media, nil
}

func (e *fakeEngine) SetMedia(media Media) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("set-media")
	if e.setMediaErr != nil {
		return e.setMediaErr
	}
	e.current = media.(*fakeMedia)
	return nil
}

func (e *fakeEngine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("play")
	return nil
}

func (e *fakeEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("pause")
	return nil
}

func (e *fakeEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("stop")
	return nil
}

func (e *fakeEngine) AttachSurface(surface Surface) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("attach")
	bound := surface
	e.surface = &bound
	return nil
}

func (e *fakeEngine) DetachSurface() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("detach")
	e.surface = nil
	return nil
}

func (e *fakeEngine) SetEventSink(sink func(Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink = sink
}

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("close")
	e.closed++
	return nil
}

func (e *fakeEngine) emit(event Event) {
	e.mu.Lock()
	sink := e.sink
	e.mu.Unlock()
	sink(event)
}

func (e *fakeEngine) countCalls(call string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	count := 0
	for _, recorded := range e.calls {
		if recorded == call {
			count++
		}
	}
	return count
}

func (e *fakeEngine) callIndex(call string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	for index, recorded := range e.calls {
		if recorded == call {
			return index
		}
	}
	return -1
}

func newSessionForTest(t *testing.T, bootOptions ...string) (*Session, *fakeEngine) {
	t.Helper()

	engine := &fakeEngine{}
	session := NewSession(func(options []string) (Engine, error) {
		engine.bootOpts = options
		return engine, nil
	})
	require.NoError(t, session.Initialize(bootOptions))
	t.Cleanup(func() {
		_ = session.Shutdown()
	})

	return session, engine
}

func collectEvents(t *testing.T, session *Session, count int) []Event {
	t.Helper()

	events := make([]Event, 0, count)
	timeout := time.After(5 * time.Second)
	for len(events) < count {
		select {
		case event, ok := <-session.Events():
			require.True(t, ok, "event queue closed early")
			events = append(events, event)
		case <-timeout:
			t.Fatalf("expected %d events, got %d", count, len(events))
		}
	}

	return events
}

func TestRTSPSessionScenario(t *testing.T) {
	session, engine := newSessionForTest(t, "prefer-reliable-transport", "audio-backend=X")
	assert.Equal(t, []string{"prefer-reliable-transport", "audio-backend=X"}, engine.bootOpts)
	assert.Equal(t, StatusReady, session.GetState().Status)

	descriptor := NewURLDescriptor(
		"rtsp://host/stream",
		NewOption(OptionNetworkCaching, "300"),
		NewOption(OptionClockJitter, "0"),
		NewOption(OptionClockSynchro, "0"),
	)
	require.NoError(t, session.LoadSource(descriptor))
	require.Len(t, engine.created, 1)
	assert.Equal(t, "rtsp://host/stream", engine.current.target)
	assert.Equal(t, descriptor.Options(), engine.current.options)
	assert.Equal(t, 0, engine.countCalls("play"), "loading must not start playback")

	require.NoError(t, session.AttachSurface(Surface{Handle: 0x10, Width: 1280, Height: 720}))
	require.NoError(t, session.Play())
	assert.Equal(t, StatusPlaying, session.GetState().Status)

	for _, percent := range []float64{0, 25, 50, 100} {
		engine.emit(BufferingEvent(percent))
	}

	events := collectEvents(t, session, 4)
	for index, expected := range []float64{0, 25, 50, 100} {
		assert.Equal(t, KindBuffering, events[index].Kind)
		assert.Equal(t, expected, events[index].Percent)
		assert.Equal(t, session.ID(), events[index].SessionID)
	}
	assert.Equal(t, float64(100), session.GetState().BufferingPercent)

	require.NoError(t, session.DetachSurface())
	require.NoError(t, session.Shutdown())

	assert.Equal(t, 1, engine.closed)
	assert.Equal(t, 1, engine.created[0].released)
	assert.Equal(t, StatusShutDown, session.GetState().Status)
}

func TestLoadSourceRetiresPreviousDescriptor(t *testing.T) {
	session, engine := newSessionForTest(t)

	require.NoError(t, session.LoadSource(NewURLDescriptor("rtsp://host/a")))
	require.NoError(t, session.Play())
	require.NoError(t, session.LoadSource(NewURLDescriptor("http://host/b.m3u8")))

	require.Len(t, engine.created, 2)
	assert.Equal(t, 1, engine.created[0].released)
	assert.Equal(t, 0, engine.created[1].released)
	assert.Same(t, engine.created[1], engine.current)

	state := session.GetState()
	assert.Equal(t, StatusLoaded, state.Status)
	require.NotNil(t, state.Source)
	assert.Equal(t, "http://host/b.m3u8", state.Source.Location)

	require.NoError(t, session.LoadSource(NewURLDescriptor("rtsp://host/c")))
	held := 0
	for _, media := range engine.created {
		if media.released == 0 {
			held++
		}
	}
	assert.Equal(t, 1, held)
}

func TestLoadSourceOptionsKeepSuppliedOrder(t *testing.T) {
	session, engine := newSessionForTest(t)

	options := []Option{
		NewOption(OptionNetworkCaching, "1500"),
		NewOption(OptionHardwareDecode, "on"),
		NewOption(OptionNetworkCaching, "300"),
	}
	require.NoError(t, session.LoadSource(NewURLDescriptor("rtsp://host/stream", options...)))

	assert.Equal(t, options, engine.current.options)
	state := session.GetState()
	require.NotNil(t, state.Source)
	assert.Equal(t, []string{"network-caching=300", "hardware-decode=on"}, state.Source.Options)
}

func TestLoadSourceFailureLeavesStateUnchanged(t *testing.T) {
	session, engine := newSessionForTest(t)

	missing := filepath.Join(t.TempDir(), "missing.mp4")
	err := session.LoadSource(NewFileDescriptor(missing))

	var sourceErr *SourceError
	require.True(t, errors.As(err, &sourceErr))
	assert.Equal(t, SourceFile, sourceErr.Kind)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	state := session.GetState()
	assert.Equal(t, StatusReady, state.Status)
	assert.Nil(t, state.Source)
	assert.Empty(t, engine.created)
}

func TestLoadSourceFailureKeepsPreviousSource(t *testing.T) {
	session, engine := newSessionForTest(t)

	require.NoError(t, session.LoadSource(NewURLDescriptor("rtsp://host/a")))
	require.NoError(t, session.Play())

	err := session.LoadSource(NewURLDescriptor("ftp://host/file"))
	var sourceErr *SourceError
	require.True(t, errors.As(err, &sourceErr))

	engine.setMediaErr = errors.New("engine busy")
	err = session.LoadSource(NewURLDescriptor("rtsp://host/b"))
	require.True(t, errors.As(err, &sourceErr))

	state := session.GetState()
	assert.Equal(t, StatusPlaying, state.Status)
	require.NotNil(t, state.Source)
	assert.Equal(t, "rtsp://host/a", state.Source.Location)
	assert.Equal(t, 0, engine.created[0].released)
	assert.Equal(t, 1, engine.created[1].released)
}

func TestLoadSourceRejectsMalformedDescriptor(t *testing.T) {
	session, _ := newSessionForTest(t)

	err := session.LoadSource(NewURLDescriptor("  "))
	var sourceErr *SourceError
	require.True(t, errors.As(err, &sourceErr))

	err = session.LoadSource(NewURLDescriptor("rtsp://host/a", Option{Key: " ", Value: "1"}))
	require.True(t, errors.As(err, &sourceErr))
}

func TestLoadFileSourceWatchesRemoval(t *testing.T) {
	session, engine := newSessionForTest(t)

	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("not really a movie"), 0o644))

	require.NoError(t, session.LoadSource(NewFileDescriptor(path)))
	state := session.GetState()
	require.NotNil(t, state.Source)
	assert.Equal(t, "clip", state.Source.Label)
	assert.Equal(t, path, engine.current.target)

	require.NoError(t, os.Remove(path))

	events := collectEvents(t, session, 1)
	assert.Equal(t, KindError, events[0].Kind)
	assert.Contains(t, events[0].Message, "source file removed")
	assert.Equal(t, StatusLoaded, session.GetState().Status)
}

func TestLoadMalformedSessionDescriptionFails(t *testing.T) {
	session, engine := newSessionForTest(t)

	path := filepath.Join(t.TempDir(), "camera.sdp")
	require.NoError(t, os.WriteFile(path, []byte("this is not sdp"), 0o644))

	err := session.LoadSource(NewFileDescriptor(path))
	var sourceErr *SourceError
	require.True(t, errors.As(err, &sourceErr))
	assert.Empty(t, engine.created)
}

func TestPlayWithoutSourceIsNoop(t *testing.T) {
	uninitialized := NewSession(func([]string) (Engine, error) { return &fakeEngine{}, nil })
	require.NoError(t, uninitialized.Play())
	assert.Equal(t, StatusIdle, uninitialized.GetState().Status)

	session, engine := newSessionForTest(t)
	require.NoError(t, session.Play())
	require.NoError(t, session.Pause())
	require.NoError(t, session.Stop())

	assert.Equal(t, StatusReady, session.GetState().Status)
	assert.Equal(t, 0, engine.countCalls("play"))
}

func TestPauseResumeDoesNotReload(t *testing.T) {
	session, engine := newSessionForTest(t)

	require.NoError(t, session.LoadSource(NewURLDescriptor("rtsp://host/stream")))
	require.NoError(t, session.Play())
	require.NoError(t, session.Play())
	assert.Equal(t, 1, engine.countCalls("play"))

	require.NoError(t, session.Pause())
	assert.Equal(t, StatusPaused, session.GetState().Status)

	require.NoError(t, session.Play())
	assert.Equal(t, StatusPlaying, session.GetState().Status)
	assert.Equal(t, 1, engine.countCalls("new-media"))
	assert.Equal(t, 1, engine.countCalls("set-media"))
}

func TestStopKeepsDescriptor(t *testing.T) {
	session, engine := newSessionForTest(t)

	require.NoError(t, session.LoadSource(NewURLDescriptor("rtsp://host/stream")))
	require.NoError(t, session.Play())
	require.NoError(t, session.Stop())

	state := session.GetState()
	assert.Equal(t, StatusLoaded, state.Status)
	require.NotNil(t, state.Source)
	assert.Equal(t, 0, engine.created[0].released)

	require.NoError(t, session.Play())
	assert.Equal(t, StatusPlaying, session.GetState().Status)
}

func TestSurfaceReattachReplacesTarget(t *testing.T) {
	session, engine := newSessionForTest(t)

	first := Surface{Handle: 1, Width: 640, Height: 480}
	second := Surface{Handle: 2, Width: 1920, Height: 1080}

	require.NoError(t, session.AttachSurface(first))
	require.NoError(t, session.DetachSurface())
	assert.False(t, session.GetState().SurfaceAttached)
	assert.Nil(t, engine.surface)

	require.NoError(t, session.AttachSurface(second))
	require.NoError(t, session.AttachSurface(second))

	assert.True(t, session.GetState().SurfaceAttached)
	require.NotNil(t, engine.surface)
	assert.Equal(t, second, *engine.surface)

	assert.ErrorIs(t, session.AttachSurface(Surface{}), ErrInvalidSurface)
	require.NoError(t, session.DetachSurface())
	require.NoError(t, session.DetachSurface())
	assert.Equal(t, 2, engine.countCalls("detach"))
}

func TestShutdownIsIdempotent(t *testing.T) {
	session, engine := newSessionForTest(t)

	require.NoError(t, session.LoadSource(NewURLDescriptor("rtsp://host/stream")))
	require.NoError(t, session.AttachSurface(Surface{Handle: 7}))
	require.NoError(t, session.Play())

	require.NoError(t, session.Shutdown())
	require.NoError(t, session.Shutdown())

	assert.Equal(t, 1, engine.closed)
	assert.Equal(t, 1, engine.created[0].released)
	assert.Less(t, engine.callIndex("detach"), engine.callIndex("close"))

	_, open := <-session.Events()
	assert.False(t, open)

	assert.ErrorIs(t, session.Play(), ErrShutDown)
	assert.ErrorIs(t, session.LoadSource(NewURLDescriptor("rtsp://host/stream")), ErrShutDown)
	assert.ErrorIs(t, session.Initialize(nil), ErrShutDown)
	assert.NoError(t, session.OnForegroundEnter())
	assert.NoError(t, session.OnSurfaceLost())
}

func TestForegroundEnterAfterShutdownKeepsBackground(t *testing.T) {
	session, engine := newSessionForTest(t)

	require.NoError(t, session.LoadSource(NewURLDescriptor("rtsp://host/stream")))
	require.NoError(t, session.OnForegroundEnter())
	require.NoError(t, session.Shutdown())

	require.NoError(t, session.OnForegroundEnter())

	state := session.GetState()
	assert.Equal(t, StatusShutDown, state.Status)
	assert.False(t, state.Foreground)
	assert.Equal(t, 1, engine.countCalls("play"))
}

func TestInitializeFailure(t *testing.T) {
	session := NewSession(func([]string) (Engine, error) {
		return nil, errors.New("missing native library")
	})

	err := session.Initialize([]string{"verbosity=debug"})
	var initErr *EngineInitError
	require.True(t, errors.As(err, &initErr))
	assert.Equal(t, StatusIdle, session.GetState().Status)

	assert.ErrorIs(t, session.LoadSource(NewURLDescriptor("rtsp://host/stream")), ErrNotInitialized)
	assert.NoError(t, session.Shutdown())
}

func TestInitializeTwice(t *testing.T) {
	session, _ := newSessionForTest(t)
	assert.ErrorIs(t, session.Initialize(nil), ErrAlreadyInitialized)
}

func TestEngineEventsUpdateState(t *testing.T) {
	session, engine := newSessionForTest(t)

	require.NoError(t, session.LoadSource(NewURLDescriptor("rtsp://host/stream")))
	require.NoError(t, session.Play())

	engine.emit(ErrorEvent("connection reset"))
	state := session.GetState()
	assert.Equal(t, StatusPlaying, state.Status)
	assert.Equal(t, "connection reset", state.LastError)

	engine.emit(EndReachedEvent())
	assert.Equal(t, StatusLoaded, session.GetState().Status)

	events := collectEvents(t, session, 2)
	assert.Equal(t, KindError, events[0].Kind)
	assert.Equal(t, EventError, events[0].Name())
	assert.Equal(t, KindEndReached, events[1].Kind)
	assert.Equal(t, EventEndReached, events[1].Name())
}

func TestFullEventQueueDropsInsteadOfBlocking(t *testing.T) {
	session, engine := newSessionForTest(t)

	done := make(chan struct{})
	go func() {
		for i := 0; i < eventQueueSize*2; i++ {
			engine.emit(BufferingEvent(float64(i % 100)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("engine goroutine blocked on a full event queue")
	}

	assert.Len(t, session.Events(), eventQueueSize)
}

func TestForegroundPolicies(t *testing.T) {
	session, engine := newSessionForTest(t)
	require.NoError(t, session.LoadSource(NewURLDescriptor("rtsp://host/stream")))

	require.NoError(t, session.OnForegroundEnter())
	assert.Equal(t, StatusPlaying, session.GetState().Status)
	assert.True(t, session.GetState().Foreground)

	require.NoError(t, session.OnForegroundExit())
	assert.Equal(t, StatusPaused, session.GetState().Status)
	assert.Equal(t, 0, engine.countCalls("stop"))

	require.NoError(t, session.OnForegroundEnter())
	assert.Equal(t, StatusPlaying, session.GetState().Status)

	session.SetBackgroundPolicy(BackgroundStop)
	require.NoError(t, session.OnForegroundExit())
	assert.Equal(t, StatusLoaded, session.GetState().Status)
	assert.Equal(t, 1, engine.countCalls("stop"))
	assert.Equal(t, "stop", session.GetState().BackgroundPolicy)

	require.NoError(t, session.OnForegroundExit())
	assert.Equal(t, 1, engine.countCalls("stop"))
}

func TestSurfaceHooks(t *testing.T) {
	session, engine := newSessionForTest(t)

	require.NoError(t, session.OnSurfaceReady(Surface{Handle: 3, Width: 800, Height: 600}))
	assert.True(t, session.GetState().SurfaceAttached)

	require.NoError(t, session.OnSurfaceLost())
	assert.False(t, session.GetState().SurfaceAttached)
	assert.Equal(t, 1, engine.countCalls("attach"))
	assert.Equal(t, 1, engine.countCalls("detach"))
}

func TestEmitterReceivesState(t *testing.T) {
	session := NewSession(func([]string) (Engine, error) { return &fakeEngine{}, nil })

	var mu sync.Mutex
	var statuses []string
	session.SetEmitter(func(eventName string, payload any) {
		if eventName != EventStateChanged {
			return
		}
		mu.Lock()
		statuses = append(statuses, payload.(State).Status)
		mu.Unlock()
	})

	require.NoError(t, session.Initialize(nil))
	require.NoError(t, session.LoadSource(NewURLDescriptor("rtsp://host/stream")))
	require.NoError(t, session.Play())
	require.NoError(t, session.Shutdown())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{StatusReady, StatusLoaded, StatusPlaying, StatusShutDown}, statuses)
}
