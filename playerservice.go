package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"streamview/internal/player"
	"streamview/internal/store"

	"github.com/sirupsen/logrus"
)

// FilePicker asks the user for a local media file. An empty path means the
// dialog was cancelled.
type FilePicker func() (string, error)

type PlayerService struct {
	session  *player.Session
	settings *store.SettingsRepository
	history  *store.HistoryRepository
	picker   FilePicker
	log      *logrus.Entry
}

func NewPlayerService(
	session *player.Session,
	settings *store.SettingsRepository,
	history *store.HistoryRepository,
) *PlayerService {
	return &PlayerService{
		session:  session,
		settings: settings,
		history:  history,
		log:      logrus.WithField("service", "player"),
	}
}

func (s *PlayerService) SetFilePicker(picker FilePicker) {
	s.picker = picker
}

func (s *PlayerService) GetState() player.State {
	return s.session.GetState()
}

// PlayURL loads a network stream and starts playback. options are extra
// per-source options in key=value form.
func (s *PlayerService) PlayURL(rawURL string, options []string) (player.State, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return s.session.GetState(), errors.New("url is required")
	}

	state, err := s.playDescriptor(player.SourceURL, trimmed, options)
	if err != nil {
		return state, err
	}

	if err := s.settings.Set(context.Background(), store.KeyLastURL, trimmed); err != nil {
		s.log.WithFields(logrus.Fields{
			"function": "PlayURL",
			"error":    err,
		}).Warn("Failed to remember last url")
	}

	return state, nil
}

func (s *PlayerService) PlayFile(path string, options []string) (player.State, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return s.session.GetState(), errors.New("path is required")
	}

	return s.playDescriptor(player.SourceFile, trimmed, options)
}

// PickFile opens the file picker and plays the chosen file. Cancelling leaves
// the session untouched.
func (s *PlayerService) PickFile(options []string) (player.State, error) {
	if s.picker == nil {
		return s.session.GetState(), errors.New("file picker is unavailable")
	}

	path, err := s.picker()
	if err != nil {
		return s.session.GetState(), fmt.Errorf("pick file: %w", err)
	}
	if strings.TrimSpace(path) == "" {
		return s.session.GetState(), nil
	}

	return s.playDescriptor(player.SourceFile, path, options)
}

func (s *PlayerService) PlayRecent(id int64) (player.State, error) {
	recent, err := s.history.GetByID(context.Background(), id)
	if errors.Is(err, store.ErrRecentNotFound) {
		return s.session.GetState(), fmt.Errorf("recent source %d does not exist", id)
	}
	if err != nil {
		return s.session.GetState(), err
	}

	return s.playDescriptor(player.SourceKind(recent.Kind), recent.Location, recent.Options)
}

func (s *PlayerService) Play() (player.State, error) {
	err := s.session.Play()
	return s.session.GetState(), err
}

func (s *PlayerService) Pause() (player.State, error) {
	err := s.session.Pause()
	return s.session.GetState(), err
}

func (s *PlayerService) Stop() (player.State, error) {
	err := s.session.Stop()
	return s.session.GetState(), err
}

func (s *PlayerService) TogglePlayback() (player.State, error) {
	err := s.session.TogglePlayback()
	return s.session.GetState(), err
}

func (s *PlayerService) playDescriptor(kind player.SourceKind, location string, rawOptions []string) (player.State, error) {
	ctx := context.Background()

	userOptions, err := player.ParseOptions(rawOptions)
	if err != nil {
		return s.session.GetState(), err
	}

	var descriptor player.Descriptor
	switch kind {
	case player.SourceURL:
		descriptor = player.NewURLDescriptor(location, userOptions...)
	case player.SourceFile:
		descriptor = player.NewFileDescriptor(location, userOptions...)
	default:
		return s.session.GetState(), fmt.Errorf("unknown source kind %q", kind)
	}

	settings, err := s.settings.Load(ctx)
	if err != nil {
		return s.session.GetState(), err
	}
	descriptor = sourcePolicyFromSettings(settings).Apply(descriptor)

	if err := s.session.LoadSource(descriptor); err != nil {
		return s.session.GetState(), err
	}
	if err := s.session.Play(); err != nil {
		return s.session.GetState(), err
	}

	state := s.session.GetState()
	s.recordHistory(ctx, descriptor.Kind(), location, state, userOptions)
	return state, nil
}

func (s *PlayerService) recordHistory(
	ctx context.Context,
	kind player.SourceKind,
	location string,
	state player.State,
	userOptions []player.Option,
) {
	label := location
	if state.Source != nil {
		label = state.Source.Label
		if kind == player.SourceFile {
			location = state.Source.Location
		}
	}

	_, err := s.history.Record(ctx, store.RecentSource{
		Kind:     string(kind),
		Location: location,
		Label:    label,
		Options:  player.FormatOptions(userOptions),
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"function": "recordHistory",
			"kind":     kind,
			"error":    err,
		}).Warn("Failed to record recent source")
	}
}
