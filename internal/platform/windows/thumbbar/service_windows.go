//go:build windows

package thumbbar

import (
	"errors"
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"streamview/internal/player"

	"github.com/sirupsen/logrus"
	"github.com/wailsapp/wails/v3/pkg/application"
	"github.com/zzl/go-win32api/v2/win32"
)

const (
	thumbButtonToggleID uint32  = 2001
	thumbButtonStopID   uint32  = 2002
	thumbbarSubclassID  uintptr = 1
)

var (
	clsidTaskbarList = syscall.GUID{0x56FDF344, 0xFD6D, 0x11D0, [8]byte{0x95, 0x8A, 0x00, 0x60, 0x97, 0xC9, 0xA0, 0x90}}

	thumbbarSubclassProc = win32.SUBCLASSPROC(syscall.NewCallback(thumbbarWindowProc))

	servicesByWindowMu sync.RWMutex
	servicesByWindow   = map[win32.HWND]*Service{}
)

// Service owns the taskbar thumbnail buttons of one window. Toolbar calls run
// on the UI thread.
type Service struct {
	mu sync.Mutex

	session *player.Session
	log     *logrus.Entry

	hwnd      win32.HWND
	taskbar   *win32.ITaskbarList3
	started   bool
	installed bool

	taskbarButtonCreatedMsg uint32

	hasLastState bool
	lastState    player.State
}

func NewService(session *player.Session) *Service {
	return &Service{
		session: session,
		log:     logrus.WithField("component", "thumbbar"),
	}
}

func (s *Service) Start(hwnd win32.HWND) error {
	if hwnd == 0 {
		return errors.New("thumbnail toolbar requires a valid window handle")
	}

	return application.InvokeSyncWithError(func() error {
		s.mu.Lock()
		if s.started {
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()

		var taskbar *win32.ITaskbarList3
		hr := win32.CoCreateInstance(
			&clsidTaskbarList,
			nil,
			win32.CLSCTX_INPROC_SERVER,
			&win32.IID_ITaskbarList3,
			unsafe.Pointer(&taskbar),
		)
		if win32.FAILED(hr) {
			return fmt.Errorf("create ITaskbarList3: %s", win32.HRESULT_ToString(hr))
		}
		if taskbar == nil {
			return errors.New("create ITaskbarList3: returned nil")
		}

		hr = taskbar.HrInit()
		if win32.FAILED(hr) {
			taskbar.Release()
			return fmt.Errorf("taskbar HrInit: %s", win32.HRESULT_ToString(hr))
		}

		taskbarButtonCreatedMsg, _ := win32.RegisterWindowMessage(win32.StrToPwstr("TaskbarButtonCreated"))

		servicesByWindowMu.Lock()
		servicesByWindow[hwnd] = s
		servicesByWindowMu.Unlock()

		if win32.SetWindowSubclass(hwnd, thumbbarSubclassProc, thumbbarSubclassID, 0) == 0 {
			servicesByWindowMu.Lock()
			delete(servicesByWindow, hwnd)
			servicesByWindowMu.Unlock()
			taskbar.Release()
			return errors.New("set window subclass for thumbnail toolbar")
		}

		s.mu.Lock()
		s.hwnd = hwnd
		s.taskbar = taskbar
		s.installed = true
		s.started = true
		s.taskbarButtonCreatedMsg = taskbarButtonCreatedMsg
		hasState := s.hasLastState
		state := s.lastState
		s.mu.Unlock()

		if err := s.addButtons(); err != nil {
			s.log.WithFields(logrus.Fields{
				"function": "Start",
				"error":    err,
			}).Warn("Thumbnail toolbar add buttons failed")
		}

		if hasState {
			s.applyState(state)
		}

		return nil
	})
}

func (s *Service) Close() error {
	return application.InvokeSyncWithError(func() error {
		s.mu.Lock()
		hwnd := s.hwnd
		taskbar := s.taskbar
		installed := s.installed
		s.started = false
		s.installed = false
		s.taskbar = nil
		s.hwnd = 0
		s.mu.Unlock()

		if hwnd != 0 {
			servicesByWindowMu.Lock()
			delete(servicesByWindow, hwnd)
			servicesByWindowMu.Unlock()
		}

		if installed && hwnd != 0 {
			win32.RemoveWindowSubclass(hwnd, thumbbarSubclassProc, thumbbarSubclassID)
		}

		if taskbar != nil {
			taskbar.Release()
		}

		return nil
	})
}

func (s *Service) UpdatePlayerState(state player.State) {
	s.mu.Lock()
	s.lastState = state
	s.hasLastState = true
	started := s.started
	s.mu.Unlock()

	if !started {
		return
	}

	application.InvokeAsync(func() {
		s.applyState(state)
	})
}

func (s *Service) addButtons() error {
	s.mu.Lock()
	taskbar := s.taskbar
	hwnd := s.hwnd
	started := s.started
	s.mu.Unlock()

	if !started || taskbar == nil || hwnd == 0 {
		return nil
	}

	buttons := thumbButtons(player.State{})

	hr := taskbar.ThumbBarAddButtons(hwnd, uint32(len(buttons)), &buttons[0])
	if win32.FAILED(hr) {
		return fmt.Errorf("ThumbBarAddButtons: %s", win32.HRESULT_ToString(hr))
	}

	return nil
}

func (s *Service) applyState(state player.State) {
	s.mu.Lock()
	taskbar := s.taskbar
	hwnd := s.hwnd
	started := s.started
	s.mu.Unlock()

	if !started || taskbar == nil || hwnd == 0 {
		return
	}

	buttons := thumbButtons(state)
	hr := taskbar.ThumbBarUpdateButtons(hwnd, uint32(len(buttons)), &buttons[0])
	if win32.FAILED(hr) {
		s.log.WithFields(logrus.Fields{
			"function": "applyState",
			"hresult":  win32.HRESULT_ToString(hr),
		}).Warn("Thumbnail toolbar update failed")
	}
}

func thumbButtons(state player.State) []win32.THUMBBUTTON {
	hasSource := state.Source != nil && state.Status != player.StatusShutDown
	playing := state.Status == player.StatusPlaying
	active := playing || state.Status == player.StatusPaused

	playIcon, _ := win32.LoadIcon(0, win32.IDI_APPLICATION)
	pauseIcon, _ := win32.LoadIcon(0, win32.IDI_ASTERISK)
	stopIcon, _ := win32.LoadIcon(0, win32.IDI_HAND)

	toggleIcon := playIcon
	toggleTip := "Play"
	if playing {
		toggleIcon = pauseIcon
		toggleTip = "Pause"
	}

	return []win32.THUMBBUTTON{
		newThumbButton(thumbButtonToggleID, toggleIcon, toggleTip, hasSource),
		newThumbButton(thumbButtonStopID, stopIcon, "Stop", hasSource && active),
	}
}

func (s *Service) handleWindowMessage(hwnd win32.HWND, msg uint32, wParam win32.WPARAM, lParam win32.LPARAM) win32.LRESULT {
	if msg == win32.WM_COMMAND {
		notifyCode := uint32(win32.HIWORD(uint32(wParam)))
		if notifyCode == win32.THBN_CLICKED {
			buttonID := uint32(win32.LOWORD(uint32(wParam)))
			s.handleThumbbarButton(buttonID)
			return 0
		}
	}

	s.mu.Lock()
	taskbarButtonCreatedMsg := s.taskbarButtonCreatedMsg
	hasState := s.hasLastState
	state := s.lastState
	s.mu.Unlock()

	if taskbarButtonCreatedMsg != 0 && msg == taskbarButtonCreatedMsg {
		if err := s.addButtons(); err != nil {
			s.log.WithFields(logrus.Fields{
				"function": "handleWindowMessage",
				"error":    err,
			}).Warn("Thumbnail toolbar re-add buttons failed")
		}
		if hasState {
			s.applyState(state)
		}
	}

	return win32.DefSubclassProc(hwnd, msg, wParam, lParam)
}

func (s *Service) handleThumbbarButton(buttonID uint32) {
	if s.session == nil {
		return
	}

	switch buttonID {
	case thumbButtonToggleID:
		go s.runAction("toggle", s.session.TogglePlayback)
	case thumbButtonStopID:
		go s.runAction("stop", s.session.Stop)
	}
}

func (s *Service) runAction(name string, action func() error) {
	if err := action(); err != nil {
		s.log.WithFields(logrus.Fields{
			"function": "runAction",
			"action":   name,
			"error":    err,
		}).Warn("Thumbnail toolbar action failed")
	}
}

func newThumbButton(id uint32, icon win32.HICON, tooltip string, enabled bool) win32.THUMBBUTTON {
	button := win32.THUMBBUTTON{
		DwMask: win32.THB_ICON | win32.THB_TOOLTIP | win32.THB_FLAGS,
		IId:    id,
		HIcon:  icon,
		DwFlags: func() win32.THUMBBUTTONFLAGS {
			if enabled {
				return win32.THBF_ENABLED
			}
			return win32.THBF_DISABLED
		}(),
	}
	copyTooltip(&button.SzTip, tooltip)
	return button
}

func copyTooltip(dst *[260]uint16, text string) {
	if dst == nil {
		return
	}

	utf16Data, _ := syscall.UTF16FromString(text)

	if len(utf16Data) > len(dst)-1 {
		utf16Data = utf16Data[:len(dst)-1]
	}

	copy(dst[:], utf16Data)
	if len(utf16Data) < len(dst) {
		dst[len(utf16Data)] = 0
	}
}

func thumbbarWindowProc(
	hwnd win32.HWND,
	msg uint32,
	wParam win32.WPARAM,
	lParam win32.LPARAM,
	_ uintptr,
	_ uintptr,
) win32.LRESULT {
	servicesByWindowMu.RLock()
	service := servicesByWindow[hwnd]
	servicesByWindowMu.RUnlock()

	if service == nil {
		return win32.DefSubclassProc(hwnd, msg, wParam, lParam)
	}

	return service.handleWindowMessage(hwnd, msg, wParam, lParam)
}
