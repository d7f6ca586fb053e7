package player

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"streamview/internal/source"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	StatusIdle     = "idle"
	StatusReady    = "ready"
	StatusLoaded   = "loaded"
	StatusPlaying  = "playing"
	StatusPaused   = "paused"
	StatusShutDown = "shutdown"
)

const eventQueueSize = 64

type Emitter func(eventName string, payload any)

type SourceInfo struct {
	Kind       SourceKind `json:"kind"`
	Location   string     `json:"location"`
	Label      string     `json:"label"`
	DurationMS *int       `json:"durationMs,omitempty"`
	Options    []string   `json:"options"`
}

type State struct {
	SessionID        string      `json:"sessionId"`
	Status           string      `json:"status"`
	Source           *SourceInfo `json:"source,omitempty"`
	SurfaceAttached  bool        `json:"surfaceAttached"`
	Foreground       bool        `json:"foreground"`
	BackgroundPolicy string      `json:"backgroundPolicy"`
	BufferingPercent float64     `json:"bufferingPercent"`
	LastError        string      `json:"lastError,omitempty"`
	UpdatedAt        string      `json:"updatedAt"`
}

// loadedSource holds everything scoped to the current descriptor. All of it
// is released together when the descriptor retires.
type loadedSource struct {
	descriptor Descriptor
	info       SourceInfo
	target     string
	media      Media
	file       *os.File
	watcher    *source.Watcher
}

func (l *loadedSource) release() {
	if l == nil {
		return
	}

	if l.media != nil {
		l.media.Release()
		l.media = nil
	}
	if l.watcher != nil {
		_ = l.watcher.Close()
		l.watcher = nil
	}
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}

// Session coordinates one playback engine with the host's lifecycle: engine
// creation, source switching, surface binding and play/pause.
type Session struct {
	mu         sync.Mutex
	id         string
	factory    EngineFactory
	engine     Engine
	status     string
	current    *loadedSource
	surface    *Surface
	foreground bool
	background BackgroundPolicy
	watchFiles bool
	buffering  float64
	lastError  string
	updatedAt  time.Time
	events     chan Event
	closed     bool
	emit       Emitter
	log        *logrus.Entry
}

func NewSession(factory EngineFactory) *Session {
	if factory == nil {
		factory = DefaultEngineFactory
	}

	id := uuid.NewString()

	return &Session{
		id:         id,
		factory:    factory,
		status:     StatusIdle,
		background: BackgroundPause,
		watchFiles: true,
		events:     make(chan Event, eventQueueSize),
		log:        logrus.WithField("session", id),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) SetEmitter(emitter Emitter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emit = emitter
}

func (s *Session) SetBackgroundPolicy(policy BackgroundPolicy) {
	s.mu.Lock()
	s.background = policy
	s.updatedAt = time.Now().UTC()
	s.mu.Unlock()

	s.emitState()
}

// SetWatchSourceFiles toggles the removal watcher on local sources. It only
// affects descriptors loaded afterwards.
func (s *Session) SetWatchSourceFiles(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchFiles = enabled
}

// Events returns the queue of engine events. It is closed by Shutdown.
func (s *Session) Events() <-chan Event {
	return s.events
}

func (s *Session) Initialize(bootOptions []string) error {
	s.mu.Lock()
	if s.status == StatusShutDown {
		s.mu.Unlock()
		return ErrShutDown
	}
	if s.engine != nil {
		s.mu.Unlock()
		return ErrAlreadyInitialized
	}

	options := make([]string, len(bootOptions))
	copy(options, bootOptions)

	engine, err := s.factory(options)
	if err == nil && engine == nil {
		err = errors.New("engine factory returned no engine")
	}
	if err != nil {
		s.mu.Unlock()
		s.log.WithFields(logrus.Fields{
			"function": "Initialize",
			"error":    err.Error(),
		}).Error("Playback engine construction failed")
		return &EngineInitError{Err: err}
	}

	engine.SetEventSink(s.handleEngineEvent)
	s.engine = engine
	s.status = StatusReady
	s.updatedAt = time.Now().UTC()
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"function":     "Initialize",
		"boot_options": options,
	}).Info("Playback engine initialized")

	s.emitState()
	return nil
}

// LoadSource makes descriptor current without starting playback. On failure
// the previous source and state are left untouched.
func (s *Session) LoadSource(descriptor Descriptor) error {
	s.mu.Lock()
	if s.status == StatusShutDown {
		s.mu.Unlock()
		return ErrShutDown
	}
	if s.engine == nil {
		s.mu.Unlock()
		return ErrNotInitialized
	}

	if err := descriptor.validate(); err != nil {
		s.mu.Unlock()
		return newSourceError(descriptor, err)
	}

	next, err := s.prepareSourceLocked(descriptor)
	if err != nil {
		s.mu.Unlock()
		s.log.WithFields(logrus.Fields{
			"function": "LoadSource",
			"kind":     descriptor.Kind(),
			"location": descriptor.Location(),
			"error":    err.Error(),
		}).Warn("Source rejected")
		return newSourceError(descriptor, err)
	}

	media, err := s.engine.NewMedia(next.target)
	if err != nil {
		next.release()
		s.mu.Unlock()
		return newSourceError(descriptor, fmt.Errorf("create media: %w", err))
	}
	for _, option := range descriptor.Options() {
		media.AddOption(option)
	}
	next.media = media

	if err := s.engine.SetMedia(media); err != nil {
		next.release()
		s.mu.Unlock()
		return newSourceError(descriptor, fmt.Errorf("set media: %w", err))
	}

	previous := s.current
	s.current = next
	previous.release()

	s.status = StatusLoaded
	s.buffering = 0
	s.lastError = ""
	s.updatedAt = time.Now().UTC()
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"function": "LoadSource",
		"kind":     next.info.Kind,
		"label":    next.info.Label,
		"options":  next.info.Options,
	}).Info("Source loaded")

	s.emitState()
	return nil
}

func (s *Session) prepareSourceLocked(descriptor Descriptor) (*loadedSource, error) {
	next := &loadedSource{
		descriptor: descriptor,
		info: SourceInfo{
			Kind:     descriptor.Kind(),
			Location: descriptor.Location(),
			Options:  FormatOptions(ResolveOptions(descriptor.Options())),
		},
	}

	if descriptor.Kind() == SourceURL {
		urlInfo, err := source.ParseURL(descriptor.Location())
		if err != nil {
			return nil, err
		}
		next.info.Location = urlInfo.Label
		next.info.Label = urlInfo.Label
		next.target = descriptor.Location()
		return next, nil
	}

	path, err := filepath.Abs(descriptor.Location())
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source file: %w", err)
	}
	next.file = file

	fileInfo, err := source.Inspect(path)
	if err != nil {
		next.release()
		return nil, err
	}

	next.info.Location = path
	next.info.Label = fileInfo.Label
	next.info.DurationMS = fileInfo.DurationMS
	next.target = path

	if s.watchFiles {
		watcher, err := source.Watch(path, func(gonePath string) {
			s.onSourceGone(next, gonePath)
		})
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"function": "LoadSource",
				"path":     path,
				"error":    err.Error(),
			}).Warn("Source file watcher disabled")
		} else {
			next.watcher = watcher
		}
	}

	return next, nil
}

// Play starts or resumes playback. Without a loaded source it does nothing.
func (s *Session) Play() error {
	s.mu.Lock()
	if s.status == StatusShutDown {
		s.mu.Unlock()
		return ErrShutDown
	}
	if s.engine == nil || s.current == nil || s.status == StatusPlaying {
		s.mu.Unlock()
		return nil
	}

	if err := s.engine.Play(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("play: %w", err)
	}

	s.status = StatusPlaying
	s.updatedAt = time.Now().UTC()
	s.mu.Unlock()

	s.emitState()
	return nil
}

func (s *Session) Pause() error {
	s.mu.Lock()
	if s.status == StatusShutDown {
		s.mu.Unlock()
		return ErrShutDown
	}
	if s.status != StatusPlaying {
		s.mu.Unlock()
		return nil
	}

	if err := s.engine.Pause(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("pause: %w", err)
	}

	s.status = StatusPaused
	s.updatedAt = time.Now().UTC()
	s.mu.Unlock()

	s.emitState()
	return nil
}

// Stop releases decode state but keeps the current descriptor loaded.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.status == StatusShutDown {
		s.mu.Unlock()
		return ErrShutDown
	}
	if s.current == nil {
		s.mu.Unlock()
		return nil
	}

	if err := s.engine.Stop(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("stop: %w", err)
	}

	s.status = StatusLoaded
	s.buffering = 0
	s.updatedAt = time.Now().UTC()
	s.mu.Unlock()

	s.emitState()
	return nil
}

func (s *Session) TogglePlayback() error {
	s.mu.Lock()
	playing := s.status == StatusPlaying
	s.mu.Unlock()

	if playing {
		return s.Pause()
	}

	return s.Play()
}

// AttachSurface binds a display target. Attaching again replaces the
// previous target.
func (s *Session) AttachSurface(surface Surface) error {
	if surface.Handle == 0 {
		return ErrInvalidSurface
	}

	s.mu.Lock()
	if s.status == StatusShutDown {
		s.mu.Unlock()
		return ErrShutDown
	}
	if s.engine == nil {
		s.mu.Unlock()
		return ErrNotInitialized
	}

	if err := s.engine.AttachSurface(surface); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("attach surface: %w", err)
	}

	bound := surface
	s.surface = &bound
	s.updatedAt = time.Now().UTC()
	s.mu.Unlock()

	s.emitState()
	return nil
}

// DetachSurface unbinds the display target. The reference is dropped even if
// the engine reports an error, since the host is about to destroy it.
func (s *Session) DetachSurface() error {
	s.mu.Lock()
	if s.engine == nil || s.surface == nil {
		s.mu.Unlock()
		return nil
	}

	err := s.engine.DetachSurface()
	s.surface = nil
	s.updatedAt = time.Now().UTC()
	s.mu.Unlock()

	s.emitState()
	if err != nil {
		return fmt.Errorf("detach surface: %w", err)
	}

	return nil
}

// Shutdown detaches the surface, releases the current source and then the
// engine. Calling it again is a no-op.
func (s *Session) Shutdown() error {
	s.mu.Lock()
	if s.status == StatusShutDown {
		s.mu.Unlock()
		return nil
	}

	var errs []error
	engine := s.engine

	if engine != nil && s.surface != nil {
		if err := engine.DetachSurface(); err != nil {
			errs = append(errs, fmt.Errorf("detach surface: %w", err))
		}
	}
	s.surface = nil

	s.current.release()
	s.current = nil
	s.engine = nil
	s.status = StatusShutDown
	s.foreground = false
	s.updatedAt = time.Now().UTC()
	s.mu.Unlock()

	// The engine may still be delivering events; Close waits for its loop.
	if engine != nil {
		if err := engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close engine: %w", err))
		}
	}

	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"function": "Shutdown",
	}).Info("Playback session shut down")

	s.emitState()
	return errors.Join(errs...)
}

func (s *Session) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{
		SessionID:        s.id,
		Status:           s.status,
		SurfaceAttached:  s.surface != nil,
		Foreground:       s.foreground,
		BackgroundPolicy: string(s.background),
		BufferingPercent: s.buffering,
		LastError:        s.lastError,
	}

	if s.current != nil {
		info := s.current.info
		info.Options = append([]string(nil), info.Options...)
		state.Source = &info
	}

	if !s.updatedAt.IsZero() {
		state.UpdatedAt = s.updatedAt.UTC().Format(time.RFC3339)
	}

	return state
}

// handleEngineEvent runs on the engine goroutine. It never blocks: when the
// queue is full the event is dropped.
func (s *Session) handleEngineEvent(event Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	stateChanged := false
	switch event.Kind {
	case KindBuffering:
		s.buffering = event.Percent
	case KindError:
		s.lastError = event.Message
		stateChanged = true
	case KindEndReached:
		if s.status == StatusPlaying || s.status == StatusPaused {
			s.status = StatusLoaded
		}
		s.buffering = 0
		stateChanged = true
	}
	s.updatedAt = time.Now().UTC()

	stamped := event.stamped(s.id)
	select {
	case s.events <- stamped:
	default:
		s.log.WithFields(logrus.Fields{
			"function": "handleEngineEvent",
			"kind":     event.Kind,
		}).Warn("Event queue full, dropping event")
	}
	s.mu.Unlock()

	if stateChanged {
		s.emitState()
	}
}

func (s *Session) onSourceGone(owner *loadedSource, path string) {
	s.mu.Lock()
	current := s.current == owner
	s.mu.Unlock()

	if !current {
		return
	}

	s.log.WithFields(logrus.Fields{
		"function": "onSourceGone",
		"path":     path,
	}).Warn("Loaded source file disappeared")

	s.handleEngineEvent(ErrorEvent(fmt.Sprintf("source file removed: %s", path)))
}

func (s *Session) emitState() {
	s.mu.Lock()
	emitter := s.emit
	s.mu.Unlock()

	if emitter != nil {
		emitter(EventStateChanged, s.GetState())
	}
}
