package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	EnvLogLevel    = "STREAMVIEW_LOG_LEVEL"
	EnvLogFile     = "STREAMVIEW_LOG_FILE"
	EnvDefaultURL  = "STREAMVIEW_DEFAULT_URL"
	EnvBootOptions = "STREAMVIEW_BOOT_OPTIONS"
)

// DefaultBootOptions are used when STREAMVIEW_BOOT_OPTIONS is unset.
var DefaultBootOptions = []string{
	"prefer-reliable-transport",
	"audio-time-stretch",
	"verbosity=warn",
}

// Runtime holds settings read from the environment at startup. Persistent
// user settings live in the database.
type Runtime struct {
	LogLevel    logrus.Level
	LogToFile   bool
	DefaultURL  string
	BootOptions []string
}

func LoadRuntime() (Runtime, error) {
	return loadRuntime(os.LookupEnv)
}

func loadRuntime(lookup func(string) (string, bool)) (Runtime, error) {
	runtime := Runtime{
		LogLevel:    logrus.InfoLevel,
		BootOptions: append([]string(nil), DefaultBootOptions...),
	}

	if value, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(value) != "" {
		level, err := logrus.ParseLevel(strings.TrimSpace(value))
		if err != nil {
			return Runtime{}, fmt.Errorf("parse %s: %w", EnvLogLevel, err)
		}
		runtime.LogLevel = level
	}

	if value, ok := lookup(EnvLogFile); ok {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "on":
			runtime.LogToFile = true
		}
	}

	if value, ok := lookup(EnvDefaultURL); ok {
		runtime.DefaultURL = strings.TrimSpace(value)
	}

	if value, ok := lookup(EnvBootOptions); ok {
		runtime.BootOptions = splitList(value)
	}

	return runtime, nil
}

// ConfigureLogging applies the level and output to the standard logrus
// logger. The returned closer releases the log file, if any.
func (r Runtime) ConfigureLogging(paths Paths) (io.Closer, error) {
	logrus.SetLevel(r.LogLevel)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if !r.LogToFile {
		return nopCloser{}, nil
	}

	file, err := os.OpenFile(paths.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logrus.SetOutput(io.MultiWriter(os.Stderr, file))
	return file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func splitList(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ';'
	})

	items := make([]string, 0, len(fields))
	for _, field := range fields {
		trimmed := strings.TrimSpace(field)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}

	return items
}
