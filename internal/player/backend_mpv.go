//go:build libmpv

package player

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	mpv "github.com/gen2brain/go-mpv"
	"github.com/sirupsen/logrus"
)

const (
	mpvPauseProperty  = "pause"
	mpvVideoProperty  = "vid"
	mpvWindowIDOption = "wid"

	bufferingObserverID uint64 = 1
)

type mpvBackend struct {
	mu          sync.Mutex
	client      *mpv.Mpv
	config      BootConfig
	sink        func(Event)
	current     *mpvMedia
	reload      reloadTracker
	closeOnce   sync.Once
	stopping    chan struct{}
	eventLoopWG sync.WaitGroup
}

// mpvMedia collects options until the media is handed to SetMedia.
type mpvMedia struct {
	mu       sync.Mutex
	target   string
	options  []Option
	released bool
}

func (m *mpvMedia) AddOption(option Option) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.options = append(m.options, option)
}

func (m *mpvMedia) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = true
}

func (m *mpvMedia) snapshot() (string, []Option, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	options := make([]Option, len(m.options))
	copy(options, m.options)
	return m.target, options, m.released
}

func newPlaybackBackend(config BootConfig) (Engine, error) {
	client := mpv.New()
	if client == nil {
		return nil, errors.New("create libmpv instance")
	}

	for _, option := range mpvBootOptions(config) {
		if err := client.SetOptionString(option.name, option.value); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "newPlaybackBackend",
				"option":   option.name,
				"value":    option.value,
				"error":    err.Error(),
			}).Warn("libmpv rejected boot option")
		}
	}

	if err := client.Initialize(); err != nil {
		client.TerminateDestroy()
		return nil, fmt.Errorf("initialize libmpv: %w", err)
	}

	backend := &mpvBackend{
		client:   client,
		config:   config,
		stopping: make(chan struct{}),
	}

	_ = client.RequestEvent(mpv.EventEnd, true)
	_ = client.RequestEvent(mpv.EventPropertyChange, true)
	if err := client.ObserveProperty(bufferingObserverID, mpvBufferingProperty, mpv.FormatInt64); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "newPlaybackBackend",
			"error":    err.Error(),
		}).Warn("Buffering progress unavailable")
	}

	backend.eventLoopWG.Add(1)
	go backend.eventLoop()

	return backend, nil
}

func (b *mpvBackend) NewMedia(target string) (Media, error) {
	if target == "" {
		return nil, errors.New("media target is required")
	}

	return &mpvMedia{target: target}, nil
}

func (b *mpvBackend) SetMedia(media Media) error {
	typed, ok := media.(*mpvMedia)
	if !ok {
		return fmt.Errorf("unsupported media type %T", media)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.loadLocked(typed, true); err != nil {
		return err
	}

	b.current = typed
	return nil
}

func (b *mpvBackend) loadLocked(media *mpvMedia, paused bool) error {
	target, options, released := media.snapshot()
	if released {
		return errors.New("media already released")
	}

	mapped, err := mpvMediaOptions(b.config, options)
	if err != nil {
		return err
	}

	for _, option := range mapped {
		if err := b.client.SetPropertyString(option.name, option.value); err != nil {
			return fmt.Errorf("set %s: %w", option.name, err)
		}
	}

	if err := b.client.SetPropertyString(mpvPauseProperty, yesNo(paused)); err != nil {
		return fmt.Errorf("set pause before load: %w", err)
	}

	if err := b.client.Command([]string{"loadfile", target, "replace"}); err != nil {
		return fmt.Errorf("load %q: %w", target, err)
	}

	b.reload.loaded()
	return nil
}

func (b *mpvBackend) Play() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.reload.needed(b.current != nil) {
		if err := b.loadLocked(b.current, false); err != nil {
			return fmt.Errorf("reload media: %w", err)
		}
		return nil
	}

	if err := b.client.SetPropertyString(mpvPauseProperty, "no"); err != nil {
		return fmt.Errorf("resume playback: %w", err)
	}

	return nil
}

func (b *mpvBackend) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.client.SetPropertyString(mpvPauseProperty, "yes"); err != nil {
		return fmt.Errorf("pause playback: %w", err)
	}

	return nil
}

func (b *mpvBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.client.Command([]string{"stop"}); err != nil {
		return fmt.Errorf("stop playback: %w", err)
	}

	b.reload.dropped()
	return nil
}

func (b *mpvBackend) AttachSurface(surface Surface) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.client.SetOptionString(mpvWindowIDOption, strconv.FormatUint(uint64(surface.Handle), 10)); err != nil {
		return fmt.Errorf("set window id: %w", err)
	}

	if err := b.client.SetPropertyString(mpvVideoProperty, "auto"); err != nil {
		return fmt.Errorf("enable video output: %w", err)
	}

	return nil
}

func (b *mpvBackend) DetachSurface() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Dropping the video track tears down the video output before the
	// window id is cleared.
	if err := b.client.SetPropertyString(mpvVideoProperty, "no"); err != nil {
		return fmt.Errorf("disable video output: %w", err)
	}

	_ = b.client.SetOptionString(mpvWindowIDOption, "-1")
	return nil
}

func (b *mpvBackend) SetEventSink(sink func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sink = sink
}

// Close stops the event loop before destroying the client, so no WaitEvent
// call can race the teardown.
func (b *mpvBackend) Close() error {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.current = nil
		b.mu.Unlock()

		close(b.stopping)
		b.client.Wakeup()
		b.eventLoopWG.Wait()
		b.client.TerminateDestroy()
	})

	return nil
}

func (b *mpvBackend) eventLoop() {
	defer b.eventLoopWG.Done()

	for {
		event := b.client.WaitEvent(0.5)
		select {
		case <-b.stopping:
			return
		default:
		}
		if event == nil {
			continue
		}

		switch event.EventID {
		case mpv.EventShutdown:
			return
		case mpv.EventEnd:
			end := event.EndFile()
			reason := endFileOther
			switch end.Reason {
			case mpv.EndFileEOF:
				reason = endFileEOF
			case mpv.EndFileError:
				reason = endFileError
			}
			if translated, ok := translateEndFile(reason, end.Error); ok {
				b.markNeedsReload()
				b.deliver(translated)
			}
		case mpv.EventPropertyChange:
			property := event.Property()
			if translated, ok := translatePropertyChange(property.Name, property.Data); ok {
				b.deliver(translated)
			}
		}
	}
}

func (b *mpvBackend) markNeedsReload() {
	b.mu.Lock()
	b.reload.dropped()
	b.mu.Unlock()
}

func (b *mpvBackend) deliver(event Event) {
	b.mu.Lock()
	sink := b.sink
	b.mu.Unlock()

	if sink != nil {
		sink(event)
	}
}

