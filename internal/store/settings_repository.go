package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrSettingNotFound = errors.New("setting not found")

const (
	KeyBackgroundPolicy       = "background_policy"
	KeyRTSPHardwareDecode     = "rtsp_hardware_decode"
	KeyRTSPNetworkCachingMS   = "rtsp_network_caching_ms"
	KeyFileNetworkCachingMS   = "file_network_caching_ms"
	KeyStreamNetworkCachingMS = "stream_network_caching_ms"
	KeyLastURL                = "last_url"
)

type Settings struct {
	BackgroundPolicy       string `json:"backgroundPolicy"`
	RTSPHardwareDecode     bool   `json:"rtspHardwareDecode"`
	RTSPNetworkCachingMS   int    `json:"rtspNetworkCachingMs"`
	FileNetworkCachingMS   int    `json:"fileNetworkCachingMs"`
	StreamNetworkCachingMS int    `json:"streamNetworkCachingMs"`
	LastURL                string `json:"lastUrl"`
}

func DefaultSettings() Settings {
	return Settings{
		BackgroundPolicy:       "pause",
		RTSPHardwareDecode:     false,
		RTSPNetworkCachingMS:   300,
		FileNetworkCachingMS:   600,
		StreamNetworkCachingMS: 1500,
	}
}

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(database *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: database}
}

func (r *SettingsRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrSettingNotFound
		}
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}

	return value, nil
}

func (r *SettingsRepository) Set(ctx context.Context, key string, value string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("setting key is required")
	}

	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO settings(key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		value,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}

	return nil
}

// Load returns the stored settings with defaults for missing or unreadable
// values.
func (r *SettingsRepository) Load(ctx context.Context) (Settings, error) {
	settings := DefaultSettings()

	rows, err := r.db.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return settings, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return settings, fmt.Errorf("scan setting row: %w", err)
		}
		applySetting(&settings, key, value)
	}

	if err := rows.Err(); err != nil {
		return settings, fmt.Errorf("iterate setting rows: %w", err)
	}

	return settings, nil
}

func (r *SettingsRepository) Save(ctx context.Context, settings Settings) error {
	values := map[string]string{
		KeyBackgroundPolicy:       settings.BackgroundPolicy,
		KeyRTSPHardwareDecode:     strconv.FormatBool(settings.RTSPHardwareDecode),
		KeyRTSPNetworkCachingMS:   strconv.Itoa(settings.RTSPNetworkCachingMS),
		KeyFileNetworkCachingMS:   strconv.Itoa(settings.FileNetworkCachingMS),
		KeyStreamNetworkCachingMS: strconv.Itoa(settings.StreamNetworkCachingMS),
		KeyLastURL:                settings.LastURL,
	}

	for key, value := range values {
		if err := r.Set(ctx, key, value); err != nil {
			return err
		}
	}

	return nil
}

func applySetting(settings *Settings, key string, value string) {
	switch key {
	case KeyBackgroundPolicy:
		if value != "" {
			settings.BackgroundPolicy = value
		}
	case KeyRTSPHardwareDecode:
		if parsed, err := strconv.ParseBool(value); err == nil {
			settings.RTSPHardwareDecode = parsed
		}
	case KeyRTSPNetworkCachingMS:
		applyPositiveInt(&settings.RTSPNetworkCachingMS, value)
	case KeyFileNetworkCachingMS:
		applyPositiveInt(&settings.FileNetworkCachingMS, value)
	case KeyStreamNetworkCachingMS:
		applyPositiveInt(&settings.StreamNetworkCachingMS, value)
	case KeyLastURL:
		settings.LastURL = value
	}
}

func applyPositiveInt(target *int, value string) {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return
	}

	*target = parsed
}
