package main

import (
	"streamview/internal/platform"
	"streamview/internal/player"

	"github.com/sirupsen/logrus"
	"github.com/wailsapp/wails/v3/pkg/application"
	"github.com/wailsapp/wails/v3/pkg/events"
)

// windowLifecycle translates host window events into session hooks.
type windowLifecycle struct {
	session *player.Session
	surface func() (player.Surface, bool)
	log     *logrus.Entry
}

func newWindowLifecycle(session *player.Session, surface func() (player.Surface, bool)) *windowLifecycle {
	return &windowLifecycle{
		session: session,
		surface: surface,
		log:     logrus.WithField("component", "window"),
	}
}

func bindWindowLifecycle(window application.Window, session *player.Session) *windowLifecycle {
	lifecycle := newWindowLifecycle(session, func() (player.Surface, bool) {
		return platform.SurfaceFor(window)
	})

	onEvent := func(eventType events.WindowEventType, handler func()) {
		window.OnWindowEvent(eventType, func(_ *application.WindowEvent) {
			handler()
		})
	}

	onEvent(events.Common.WindowRuntimeReady, lifecycle.shown)
	onEvent(events.Common.WindowShow, lifecycle.shown)
	onEvent(events.Common.WindowUnMinimise, lifecycle.shown)
	onEvent(events.Common.WindowHide, lifecycle.hidden)
	onEvent(events.Common.WindowMinimise, lifecycle.hidden)
	onEvent(events.Common.WindowDidResize, lifecycle.resized)
	onEvent(events.Common.WindowClosing, lifecycle.closing)

	return lifecycle
}

// shown binds the surface before resuming so the first frames have a target.
func (l *windowLifecycle) shown() {
	if surface, ok := l.surface(); ok {
		l.report("OnSurfaceReady", l.session.OnSurfaceReady(surface))
	}
	l.report("OnForegroundEnter", l.session.OnForegroundEnter())
}

func (l *windowLifecycle) hidden() {
	l.report("OnForegroundExit", l.session.OnForegroundExit())
	l.report("OnSurfaceLost", l.session.OnSurfaceLost())
}

// resized rebinds with the new size, but only while a surface is attached.
func (l *windowLifecycle) resized() {
	if !l.session.GetState().SurfaceAttached {
		return
	}

	if surface, ok := l.surface(); ok {
		l.report("OnSurfaceReady", l.session.OnSurfaceReady(surface))
	}
}

func (l *windowLifecycle) closing() {
	l.report("Shutdown", l.session.Shutdown())
}

func (l *windowLifecycle) report(hook string, err error) {
	if err == nil {
		return
	}

	l.log.WithFields(logrus.Fields{
		"function": hook,
		"error":    err,
	}).Warn("Window lifecycle hook failed")
}
