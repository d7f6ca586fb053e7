package main

import (
	"context"

	"streamview/internal/player"
	"streamview/internal/store"
)

const defaultBootstrapRecentLimit = 20

type StartupSnapshot struct {
	PlayerState player.State         `json:"playerState"`
	Settings    store.Settings       `json:"settings"`
	Recent      []store.RecentSource `json:"recent"`
	DefaultURL  string               `json:"defaultUrl"`
}

type BootstrapService struct {
	session    *player.Session
	settings   *store.SettingsRepository
	history    *store.HistoryRepository
	defaultURL string
}

func NewBootstrapService(
	session *player.Session,
	settings *store.SettingsRepository,
	history *store.HistoryRepository,
	defaultURL string,
) *BootstrapService {
	return &BootstrapService{
		session:    session,
		settings:   settings,
		history:    history,
		defaultURL: defaultURL,
	}
}

// GetInitialState returns everything the frontend needs for its first render.
// DefaultURL falls back to the last played url.
func (s *BootstrapService) GetInitialState() (StartupSnapshot, error) {
	ctx := context.Background()

	settings, err := s.settings.Load(ctx)
	if err != nil {
		return StartupSnapshot{}, err
	}

	recent, err := s.history.List(ctx, defaultBootstrapRecentLimit)
	if err != nil {
		return StartupSnapshot{}, err
	}

	defaultURL := s.defaultURL
	if defaultURL == "" {
		defaultURL = settings.LastURL
	}

	return StartupSnapshot{
		PlayerState: s.session.GetState(),
		Settings:    settings,
		Recent:      recent,
		DefaultURL:  defaultURL,
	}, nil
}
