package player

import (
	"errors"
	"fmt"
	"strings"
)

// Per-source option keys understood by every engine backend.
const (
	OptionNetworkCaching      = "network-caching"
	OptionHardwareDecode      = "hardware-decode"
	OptionHardwareDecodeForce = "hardware-decode-force"
	OptionClockJitter         = "clock-jitter"
	OptionClockSynchro        = "clock-synchro"
	OptionTransport           = "transport"
	OptionAudioTimeStretch    = "audio-time-stretch"
)

// Boot option keys, fixed at engine construction.
const (
	BootPreferReliableTransport = "prefer-reliable-transport"
	BootAudioBackend            = "audio-backend"
	BootAudioTimeStretch        = "audio-time-stretch"
	BootVerbosity               = "verbosity"
)

var verbosityLevels = map[string]struct{}{
	"quiet": {},
	"error": {},
	"warn":  {},
	"info":  {},
	"debug": {},
	"trace": {},
}

// Option is a single key=value tuning option. A bare flag has an empty Value.
type Option struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func NewOption(key string, value string) Option {
	return Option{Key: key, Value: value}
}

func (o Option) String() string {
	if o.Value == "" {
		return o.Key
	}

	return o.Key + "=" + o.Value
}

// ParseOption accepts "key=value", ":key=value", "--key=value" and bare "key".
func ParseOption(raw string) (Option, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "--")
	trimmed = strings.TrimPrefix(trimmed, ":")

	key, value, _ := strings.Cut(trimmed, "=")
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return Option{}, fmt.Errorf("parse option %q: empty key", raw)
	}
	if strings.ContainsAny(key, " \t,") {
		return Option{}, fmt.Errorf("parse option %q: invalid key", raw)
	}

	return Option{Key: key, Value: strings.TrimSpace(value)}, nil
}

func ParseOptions(raw []string) ([]Option, error) {
	options := make([]Option, 0, len(raw))
	for _, item := range raw {
		if strings.TrimSpace(item) == "" {
			continue
		}
		option, err := ParseOption(item)
		if err != nil {
			return nil, err
		}
		options = append(options, option)
	}

	return options, nil
}

func FormatOptions(options []Option) []string {
	formatted := make([]string, 0, len(options))
	for _, option := range options {
		formatted = append(formatted, option.String())
	}

	return formatted
}

// ResolveOptions collapses duplicate keys: the last value wins, the key keeps
// the position of its first appearance.
func ResolveOptions(options []Option) []Option {
	positions := make(map[string]int, len(options))
	resolved := make([]Option, 0, len(options))

	for _, option := range options {
		if index, ok := positions[option.Key]; ok {
			resolved[index].Value = option.Value
			continue
		}
		positions[option.Key] = len(resolved)
		resolved = append(resolved, option)
	}

	return resolved
}

// BootConfig is the parsed form of the engine boot options.
type BootConfig struct {
	PreferReliableTransport bool
	AudioBackend            string
	AudioTimeStretch        bool
	Verbosity               string
	Extra                   []Option
}

func DefaultBootConfig() BootConfig {
	return BootConfig{
		AudioTimeStretch: true,
		Verbosity:        "warn",
	}
}

func ParseBootOptions(raw []string) (BootConfig, error) {
	config := DefaultBootConfig()

	options, err := ParseOptions(raw)
	if err != nil {
		return BootConfig{}, err
	}

	for _, option := range options {
		switch option.Key {
		case BootPreferReliableTransport:
			enabled, err := parseSwitch(option.Value, true)
			if err != nil {
				return BootConfig{}, fmt.Errorf("boot option %s: %w", option.Key, err)
			}
			config.PreferReliableTransport = enabled
		case BootAudioBackend:
			if option.Value == "" {
				return BootConfig{}, errors.New("boot option audio-backend requires a value")
			}
			config.AudioBackend = option.Value
		case BootAudioTimeStretch:
			enabled, err := parseSwitch(option.Value, true)
			if err != nil {
				return BootConfig{}, fmt.Errorf("boot option %s: %w", option.Key, err)
			}
			config.AudioTimeStretch = enabled
		case BootVerbosity:
			level := strings.ToLower(option.Value)
			if _, ok := verbosityLevels[level]; !ok {
				return BootConfig{}, fmt.Errorf("boot option verbosity: unknown level %q", option.Value)
			}
			config.Verbosity = level
		default:
			config.Extra = append(config.Extra, option)
		}
	}

	return config, nil
}

// parseSwitch reads on/off style values; an empty value yields fallback.
func parseSwitch(value string, fallback bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return fallback, nil
	case "1", "on", "yes", "true", "enable", "enabled":
		return true, nil
	case "0", "off", "no", "false", "disable", "disabled":
		return false, nil
	default:
		return false, fmt.Errorf("invalid switch value %q", value)
	}
}

func switchValue(enabled bool) string {
	if enabled {
		return "on"
	}

	return "off"
}
