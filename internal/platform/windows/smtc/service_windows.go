//go:build windows

package smtc

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"streamview/internal/player"

	"github.com/sirupsen/logrus"
	"github.com/zzl/go-com/com"
	"github.com/zzl/go-win32api/v2/win32"
	"github.com/zzl/go-winrtapi/winrt"
)

const (
	smtcClassName           = "Windows.Media.SystemMediaTransportControls"
	timelineClassName       = "Windows.Media.SystemMediaTransportControlsTimelineProperties"
	appMediaID              = "StreamView"
	timespanTickPerMS int64 = 10000
)

// Service mirrors the session state into the system media overlay and routes
// its buttons back to the session. WinRT calls run on one dedicated goroutine.
type Service struct {
	mu      sync.Mutex
	session *player.Session
	updates chan player.State
	stop    chan struct{}
	done    chan struct{}
	running bool
}

type runtimeState struct {
	session      *player.Session
	controls     *winrt.ISystemMediaTransportControls
	controls2    *winrt.ISystemMediaTransportControls2
	updater      *winrt.ISystemMediaTransportControlsDisplayUpdater
	musicProps   *winrt.IMusicDisplayProperties
	timeline     *winrt.ISystemMediaTransportControlsTimelineProperties
	buttonToken  winrt.EventRegistrationToken
	hookAttached bool
	lastSource   string
	hasSource    bool
	log          *logrus.Entry
}

func NewService(session *player.Session) *Service {
	return &Service{session: session}
}

func (s *Service) Start(hwnd win32.HWND) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}

	updates := make(chan player.State, 1)
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	readyCh := make(chan error, 1)

	s.updates = updates
	s.stop = stopCh
	s.done = doneCh
	s.running = true
	s.mu.Unlock()

	go s.run(hwnd, updates, stopCh, doneCh, readyCh)

	if err := <-readyCh; err != nil {
		s.mu.Lock()
		s.running = false
		s.updates = nil
		s.stop = nil
		s.done = nil
		s.mu.Unlock()
		<-doneCh
		return err
	}

	return nil
}

// UpdatePlayerState keeps only the newest pending state.
func (s *Service) UpdatePlayerState(state player.State) {
	s.mu.Lock()
	running := s.running
	updates := s.updates
	s.mu.Unlock()

	if !running || updates == nil {
		return
	}

	select {
	case updates <- state:
	default:
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- state:
		default:
		}
	}
}

func (s *Service) Close() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}

	stopCh := s.stop
	doneCh := s.done
	s.running = false
	s.updates = nil
	s.stop = nil
	s.done = nil
	s.mu.Unlock()

	close(stopCh)
	<-doneCh
	return nil
}

func (s *Service) run(
	hwnd win32.HWND,
	updates <-chan player.State,
	stopCh <-chan struct{},
	doneCh chan<- struct{},
	readyCh chan<- error,
) {
	defer close(doneCh)

	init := winrt.InitializeMt()
	defer init.Uninitialize()

	state, err := newRuntimeState(s.session, hwnd)
	if err != nil {
		readyCh <- err
		return
	}
	defer state.shutdown()

	readyCh <- nil

	for {
		select {
		case <-stopCh:
			return
		case update := <-updates:
			state.apply(update)
		}
	}
}

func newRuntimeState(session *player.Session, hwnd win32.HWND) (*runtimeState, error) {
	if hwnd == 0 {
		return nil, errors.New("smtc requires a valid window handle")
	}

	hs := winrt.NewHStr(smtcClassName)
	defer hs.Dispose()

	var interop *win32.ISystemMediaTransportControlsInterop
	hr := win32.RoGetActivationFactory(hs.Ptr, &win32.IID_ISystemMediaTransportControlsInterop, unsafe.Pointer(&interop))
	if win32.FAILED(hr) {
		return nil, fmt.Errorf("smtc interop activation factory: %s", win32.HRESULT_ToString(hr))
	}
	if interop == nil {
		return nil, errors.New("smtc interop activation factory returned nil")
	}
	com.AddToScope(interop)

	var controls *winrt.ISystemMediaTransportControls
	controlsHR := interop.GetForWindow(hwnd, &winrt.IID_ISystemMediaTransportControls, unsafe.Pointer(&controls))
	if win32.FAILED(controlsHR) {
		return nil, fmt.Errorf("smtc GetForWindow: %s", win32.HRESULT_ToString(controlsHR))
	}
	if controls == nil {
		return nil, errors.New("smtc unavailable for current window")
	}
	com.AddToScope(controls)

	state := &runtimeState{
		session:  session,
		controls: controls,
		log:      logrus.WithField("component", "smtc"),
	}

	state.controls.Put_IsEnabled(true)
	state.controls.Put_IsPlayEnabled(false)
	state.controls.Put_IsPauseEnabled(false)
	state.controls.Put_IsStopEnabled(false)
	state.controls.Put_IsNextEnabled(false)
	state.controls.Put_IsPreviousEnabled(false)

	state.updater = state.controls.Get_DisplayUpdater()
	if state.updater != nil {
		state.updater.Put_Type(winrt.MediaPlaybackType_Music)
		state.updater.Put_AppMediaId(appMediaID)
		state.musicProps = state.updater.Get_MusicProperties()
		state.updater.Update()
	}

	var controls2 *winrt.ISystemMediaTransportControls2
	queryHR := state.controls.QueryInterface(&winrt.IID_ISystemMediaTransportControls2, unsafe.Pointer(&controls2))
	if !win32.FAILED(queryHR) && controls2 != nil {
		com.AddToScope(controls2)
		state.controls2 = controls2
		state.timeline = newTimelineProperties()
	}

	state.buttonToken = state.controls.Add_ButtonPressed(state.onButtonPressed)
	state.hookAttached = true

	return state, nil
}

func (s *runtimeState) shutdown() {
	if s.controls == nil {
		return
	}

	if s.hookAttached {
		s.controls.Remove_ButtonPressed(s.buttonToken)
	}

	s.controls.Put_IsEnabled(false)
}

func (s *runtimeState) apply(state player.State) {
	if s.controls == nil {
		return
	}

	s.controls.Put_PlaybackStatus(mapPlaybackStatus(state.Status))

	hasSource := state.Source != nil && state.Status != player.StatusShutDown
	playing := state.Status == player.StatusPlaying

	s.controls.Put_IsPlayEnabled(hasSource && !playing)
	s.controls.Put_IsPauseEnabled(playing)
	s.controls.Put_IsStopEnabled(hasSource && (playing || state.Status == player.StatusPaused))

	if !hasSource {
		s.applyEmptySource()
		s.applyTimeline(0)
		return
	}

	source := state.Source
	if !s.hasSource || s.lastSource != source.Location {
		s.applyMetadata(*source)
		s.hasSource = true
		s.lastSource = source.Location
	}

	durationMS := 0
	if source.DurationMS != nil && *source.DurationMS > 0 {
		durationMS = *source.DurationMS
	}
	s.applyTimeline(durationMS)
}

func (s *runtimeState) applyEmptySource() {
	if !s.hasSource {
		return
	}

	s.hasSource = false
	s.lastSource = ""

	if s.updater == nil {
		return
	}

	s.updater.ClearAll()
	s.updater.Put_Type(winrt.MediaPlaybackType_Music)
	s.updater.Put_AppMediaId(appMediaID)
	s.updater.Update()
}

func (s *runtimeState) applyMetadata(source player.SourceInfo) {
	if s.updater == nil {
		return
	}

	s.updater.Put_Type(winrt.MediaPlaybackType_Music)
	s.updater.Put_AppMediaId(appMediaID)

	if s.musicProps != nil {
		s.musicProps.Put_Title(normalizeLabel(source.Label, source.Location))
		s.musicProps.Put_Artist(sourceSubtitle(source))
	}

	s.updater.Update()
}

// Live streams have no end time, so the timeline collapses to zero.
func (s *runtimeState) applyTimeline(durationMS int) {
	if s.controls2 == nil || s.timeline == nil {
		return
	}

	s.timeline.Put_StartTime(millisecondsToTimeSpan(0))
	s.timeline.Put_MinSeekTime(millisecondsToTimeSpan(0))
	s.timeline.Put_Position(millisecondsToTimeSpan(0))
	s.timeline.Put_EndTime(millisecondsToTimeSpan(durationMS))
	s.timeline.Put_MaxSeekTime(millisecondsToTimeSpan(0))

	s.controls2.UpdateTimelineProperties(s.timeline)
}

func (s *runtimeState) onButtonPressed(
	_ *winrt.ISystemMediaTransportControls,
	args *winrt.ISystemMediaTransportControlsButtonPressedEventArgs,
) com.Error {
	if s.session == nil || args == nil {
		return com.OK
	}

	switch args.Get_Button() {
	case winrt.SystemMediaTransportControlsButton_Play:
		go s.runAction("play", s.session.Play)
	case winrt.SystemMediaTransportControlsButton_Pause:
		go s.runAction("pause", s.session.Pause)
	case winrt.SystemMediaTransportControlsButton_Stop:
		go s.runAction("stop", s.session.Stop)
	}

	return com.OK
}

func (s *runtimeState) runAction(name string, action func() error) {
	if err := action(); err != nil {
		s.log.WithFields(logrus.Fields{
			"function": "runAction",
			"action":   name,
			"error":    err,
		}).Warn("SMTC action failed")
	}
}

func newTimelineProperties() *winrt.ISystemMediaTransportControlsTimelineProperties {
	hs := winrt.NewHStr(timelineClassName)
	defer hs.Dispose()

	var inspect *win32.IInspectable
	hr := win32.RoActivateInstance(hs.Ptr, &inspect)
	if win32.FAILED(hr) || inspect == nil {
		return nil
	}

	timeline := (*winrt.ISystemMediaTransportControlsTimelineProperties)(unsafe.Pointer(inspect))
	com.AddToScope(timeline)
	return timeline
}

func mapPlaybackStatus(status string) winrt.MediaPlaybackStatus {
	switch status {
	case player.StatusPlaying:
		return winrt.MediaPlaybackStatus_Playing
	case player.StatusPaused:
		return winrt.MediaPlaybackStatus_Paused
	case player.StatusShutDown, player.StatusIdle:
		return winrt.MediaPlaybackStatus_Closed
	default:
		return winrt.MediaPlaybackStatus_Stopped
	}
}

func sourceSubtitle(source player.SourceInfo) string {
	if source.Kind == player.SourceFile {
		return "Local file"
	}
	if scheme, _, ok := strings.Cut(source.Location, "://"); ok {
		return strings.ToUpper(scheme) + " stream"
	}
	return "Stream"
}

func millisecondsToTimeSpan(milliseconds int) winrt.TimeSpan {
	if milliseconds < 0 {
		milliseconds = 0
	}

	return winrt.TimeSpan{Duration: int64(milliseconds) * timespanTickPerMS}
}

func normalizeLabel(value string, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}

	return trimmed
}
