package main

import (
	"context"
	"fmt"

	"streamview/internal/player"
	"streamview/internal/store"
)

type SettingsService struct {
	settings *store.SettingsRepository
	session  *player.Session
}

func NewSettingsService(settings *store.SettingsRepository, session *player.Session) *SettingsService {
	return &SettingsService{settings: settings, session: session}
}

func (s *SettingsService) GetSettings() (store.Settings, error) {
	return s.settings.Load(context.Background())
}

// UpdateSettings validates and stores the playback settings. The background
// policy applies immediately, source options apply on the next load.
func (s *SettingsService) UpdateSettings(next store.Settings) (store.Settings, error) {
	ctx := context.Background()

	policy, err := player.ParseBackgroundPolicy(next.BackgroundPolicy)
	if err != nil {
		return store.Settings{}, err
	}
	next.BackgroundPolicy = string(policy)

	cachingValues := []struct {
		name  string
		value int
	}{
		{"rtsp network caching", next.RTSPNetworkCachingMS},
		{"file network caching", next.FileNetworkCachingMS},
		{"stream network caching", next.StreamNetworkCachingMS},
	}
	for _, caching := range cachingValues {
		if caching.value <= 0 {
			return store.Settings{}, fmt.Errorf("%s must be positive, got %d", caching.name, caching.value)
		}
	}

	current, err := s.settings.Load(ctx)
	if err != nil {
		return store.Settings{}, err
	}
	next.LastURL = current.LastURL

	if err := s.settings.Save(ctx, next); err != nil {
		return store.Settings{}, err
	}

	s.session.SetBackgroundPolicy(policy)
	return next, nil
}

func sourcePolicyFromSettings(settings store.Settings) player.SourcePolicy {
	return player.SourcePolicy{
		RTSPHardwareDecode:     settings.RTSPHardwareDecode,
		RTSPNetworkCachingMS:   settings.RTSPNetworkCachingMS,
		FileNetworkCachingMS:   settings.FileNetworkCachingMS,
		StreamNetworkCachingMS: settings.StreamNetworkCachingMS,
	}
}

func backgroundPolicyFromSettings(settings store.Settings) player.BackgroundPolicy {
	policy, err := player.ParseBackgroundPolicy(settings.BackgroundPolicy)
	if err != nil {
		return player.BackgroundPause
	}
	return policy
}
