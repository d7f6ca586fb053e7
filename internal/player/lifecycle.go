package player

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// Host lifecycle hooks. They tolerate a shut-down session because window
// events keep arriving while the host tears down.

func (s *Session) OnForegroundEnter() error {
	s.mu.Lock()
	if s.status == StatusShutDown {
		s.mu.Unlock()
		return nil
	}
	s.foreground = true
	s.updatedAt = time.Now().UTC()
	s.mu.Unlock()

	return ignoreShutDown(s.Play())
}

func (s *Session) OnForegroundExit() error {
	s.mu.Lock()
	s.foreground = false
	policy := s.background
	status := s.status
	s.updatedAt = time.Now().UTC()
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"function": "OnForegroundExit",
		"policy":   policy,
		"status":   status,
	}).Debug("Host left foreground")

	if policy == BackgroundStop {
		if status != StatusPlaying && status != StatusPaused {
			return nil
		}
		return ignoreShutDown(s.Stop())
	}

	return ignoreShutDown(s.Pause())
}

func (s *Session) OnSurfaceReady(surface Surface) error {
	return ignoreShutDown(s.AttachSurface(surface))
}

func (s *Session) OnSurfaceLost() error {
	return ignoreShutDown(s.DetachSurface())
}

func ignoreShutDown(err error) error {
	if errors.Is(err, ErrShutDown) {
		return nil
	}

	return err
}
