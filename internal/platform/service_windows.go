//go:build windows

package platform

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"streamview/internal/platform/windows/smtc"
	"streamview/internal/platform/windows/thumbbar"
	"streamview/internal/player"

	"github.com/sirupsen/logrus"
	"github.com/wailsapp/wails/v3/pkg/application"
	"github.com/wailsapp/wails/v3/pkg/events"
	"github.com/zzl/go-win32api/v2/win32"
)

const processAppUserModelID = "io.streamview.player"

const (
	acceleratorMediaPlayPause = "MEDIA_PLAY_PAUSE"
	acceleratorMediaStop      = "MEDIA_STOP"
)

type windowsService struct {
	app          *application.App
	session      *player.Session
	smtc         *smtc.Service
	thumbbar     *thumbbar.Service
	accelerators []string
	log          *logrus.Entry

	mu             sync.Mutex
	smtcStarted    bool
	thumbStarted   bool
	startingWindow bool
	hasLastState   bool
	lastState      player.State
}

func NewService(app *application.App, session *player.Session) Service {
	return &windowsService{
		app:      app,
		session:  session,
		smtc:     smtc.NewService(session),
		thumbbar: thumbbar.NewService(session),
		log:      logrus.WithField("component", "platform"),
	}
}

// SurfaceFor returns the window's HWND as an engine surface.
func SurfaceFor(window application.Window) (player.Surface, bool) {
	if window == nil {
		return player.Surface{}, false
	}

	hwnd, ok := asHWND(window.NativeWindow())
	if !ok {
		return player.Surface{}, false
	}

	width, height := window.Size()
	return player.Surface{
		Handle: uintptr(hwnd),
		Width:  width,
		Height: height,
	}, true
}

func (s *windowsService) Start() error {
	if s.app == nil || s.session == nil {
		return nil
	}

	if err := initializeProcessIdentity(); err != nil {
		s.log.WithFields(logrus.Fields{
			"function": "Start",
			"error":    err,
		}).Warn("App identity setup failed")
	}

	if s.app.Window != nil {
		for _, window := range s.app.Window.GetAll() {
			s.watchWindow(window)
		}
		s.app.Window.OnCreate(func(window application.Window) {
			s.watchWindow(window)
		})
	}

	s.registerBinding(acceleratorMediaPlayPause, "toggle", s.session.TogglePlayback)
	s.registerBinding(acceleratorMediaStop, "stop", s.session.Stop)

	return nil
}

func (s *windowsService) Stop() error {
	if s.app != nil {
		for _, accelerator := range s.accelerators {
			s.app.KeyBinding.Remove(accelerator)
		}
		s.accelerators = nil
	}

	s.mu.Lock()
	s.smtcStarted = false
	s.thumbStarted = false
	s.mu.Unlock()

	var errs []error
	if err := s.smtc.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close smtc: %w", err))
	}
	if err := s.thumbbar.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close thumbnail toolbar: %w", err))
	}

	return errors.Join(errs...)
}

func (s *windowsService) HandlePlayerState(state player.State) {
	s.mu.Lock()
	s.lastState = state
	s.hasLastState = true
	ready := s.smtcStarted && s.thumbStarted
	s.mu.Unlock()

	if !ready {
		s.startControls()
	}

	s.mu.Lock()
	smtcStarted := s.smtcStarted
	thumbStarted := s.thumbStarted
	s.mu.Unlock()

	if smtcStarted {
		s.smtc.UpdatePlayerState(state)
	}
	if thumbStarted {
		s.thumbbar.UpdatePlayerState(state)
	}
}

// startControls binds SMTC and the thumbnail toolbar to the first window
// with a native handle. It returns true once both are running.
func (s *windowsService) startControls() bool {
	s.mu.Lock()
	if s.smtcStarted && s.thumbStarted {
		s.mu.Unlock()
		return true
	}
	if s.startingWindow {
		s.mu.Unlock()
		return false
	}
	s.startingWindow = true
	smtcStarted := s.smtcStarted
	thumbStarted := s.thumbStarted
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.startingWindow = false
		s.mu.Unlock()
	}()

	hwnd, ok := s.resolveWindowHandle()
	if !ok {
		return false
	}

	if !smtcStarted {
		if err := s.smtc.Start(hwnd); err != nil {
			s.log.WithFields(logrus.Fields{
				"function": "startControls",
				"error":    err,
			}).Warn("SMTC disabled")
		} else {
			smtcStarted = true
		}
	}

	if !thumbStarted {
		if err := s.thumbbar.Start(hwnd); err != nil {
			s.log.WithFields(logrus.Fields{
				"function": "startControls",
				"error":    err,
			}).Warn("Thumbnail toolbar disabled")
		} else {
			thumbStarted = true
		}
	}

	s.mu.Lock()
	s.smtcStarted = smtcStarted
	s.thumbStarted = thumbStarted
	pending, hasPending := s.lastState, s.hasLastState
	s.mu.Unlock()

	if hasPending {
		if smtcStarted {
			s.smtc.UpdatePlayerState(pending)
		}
		if thumbStarted {
			s.thumbbar.UpdatePlayerState(pending)
		}
	}

	return smtcStarted && thumbStarted
}

func (s *windowsService) watchWindow(window application.Window) {
	if window == nil {
		return
	}

	if s.startControls() {
		return
	}

	var cancel func()
	cancel = window.OnWindowEvent(events.Windows.WebViewNavigationCompleted, func(_ *application.WindowEvent) {
		if !s.startControls() {
			return
		}
		if cancel != nil {
			cancel()
			cancel = nil
		}
	})
}

func (s *windowsService) resolveWindowHandle() (win32.HWND, bool) {
	if s.app == nil || s.app.Window == nil {
		return 0, false
	}

	if window := s.app.Window.Current(); window != nil {
		if hwnd, ok := asHWND(window.NativeWindow()); ok {
			return hwnd, true
		}
	}

	for _, window := range s.app.Window.GetAll() {
		if hwnd, ok := asHWND(window.NativeWindow()); ok {
			return hwnd, true
		}
	}

	return 0, false
}

func asHWND(nativeWindow unsafe.Pointer) (win32.HWND, bool) {
	if nativeWindow == nil {
		return 0, false
	}

	hwnd := win32.HWND(uintptr(nativeWindow))
	if hwnd == 0 {
		return 0, false
	}

	return hwnd, true
}

func (s *windowsService) registerBinding(accelerator string, name string, action func() error) {
	s.accelerators = append(s.accelerators, accelerator)
	s.app.KeyBinding.Add(accelerator, func(_ application.Window) {
		if err := action(); err != nil {
			s.log.WithFields(logrus.Fields{
				"function": "registerBinding",
				"key":      accelerator,
				"action":   name,
				"error":    err,
			}).Warn("Media key action failed")
		}
	})
}

func initializeProcessIdentity() error {
	hr := win32.SetCurrentProcessExplicitAppUserModelID(win32.StrToPwstr(processAppUserModelID))
	if win32.FAILED(hr) {
		return fmt.Errorf("set process AppUserModelID: %s", win32.HRESULT_ToString(hr))
	}

	return nil
}
