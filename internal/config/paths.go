package config

import (
	"fmt"
	"os"
	"path/filepath"
)

type Paths struct {
	BaseDir string
	DBPath  string
	LogPath string
}

func ResolvePaths(appSlug string) (Paths, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("resolve user config dir: %w", err)
	}

	return pathsUnder(filepath.Join(configDir, appSlug))
}

func pathsUnder(baseDir string) (Paths, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create app config dir: %w", err)
	}

	return Paths{
		BaseDir: baseDir,
		DBPath:  filepath.Join(baseDir, "streamview.db"),
		LogPath: filepath.Join(baseDir, "streamview.log"),
	}, nil
}
