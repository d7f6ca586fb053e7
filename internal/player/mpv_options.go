package player

import (
	"fmt"
	"strconv"
	"strings"
)

// mpvOption is one name/value pair passed to libmpv.
type mpvOption struct {
	name  string
	value string
}

const (
	mpvCacheSecs          = "cache-secs"
	mpvHwdec              = "hwdec"
	mpvVideoLatencyHacks  = "video-latency-hacks"
	mpvUntimed            = "untimed"
	mpvRTSPTransport      = "rtsp-transport"
	mpvAudioPitchCorrect  = "audio-pitch-correction"
	mpvAudioOutput        = "ao"
	mpvMessageLevel       = "msg-level"
	defaultMPVCacheSecs   = "1.5"
	mpvTransportReliable  = "tcp"
	mpvTransportAutomatic = "lavf"
)

var mpvLogLevels = map[string]string{
	"quiet": "no",
	"error": "error",
	"warn":  "warn",
	"info":  "info",
	"debug": "debug",
	"trace": "trace",
}

// mpvBootOptions maps boot configuration onto options set before
// mpv_initialize.
func mpvBootOptions(config BootConfig) []mpvOption {
	options := []mpvOption{
		{name: "terminal", value: "no"},
		{name: "idle", value: "yes"},
		{name: "keep-open", value: "no"},
		{name: "force-window", value: "no"},
		{name: "input-default-bindings", value: "no"},
		{name: "vid", value: "no"},
		{name: mpvRTSPTransport, value: bootTransport(config)},
		{name: mpvAudioPitchCorrect, value: yesNo(config.AudioTimeStretch)},
	}

	if config.AudioBackend != "" {
		options = append(options, mpvOption{name: mpvAudioOutput, value: config.AudioBackend})
	}

	if level, ok := mpvLogLevels[config.Verbosity]; ok {
		options = append(options, mpvOption{name: mpvMessageLevel, value: "all=" + level})
	}

	for _, extra := range config.Extra {
		value := extra.Value
		if value == "" {
			value = "yes"
		}
		options = append(options, mpvOption{name: extra.Key, value: value})
	}

	return options
}

// mpvMediaOptions maps per-source options onto a complete set of mpv
// properties, so nothing leaks from the previously loaded source.
func mpvMediaOptions(config BootConfig, options []Option) ([]mpvOption, error) {
	values := map[string]string{
		mpvCacheSecs:         defaultMPVCacheSecs,
		mpvHwdec:             "no",
		mpvVideoLatencyHacks: "no",
		mpvUntimed:           "no",
		mpvRTSPTransport:     bootTransport(config),
		mpvAudioPitchCorrect: yesNo(config.AudioTimeStretch),
	}
	order := []string{
		mpvCacheSecs,
		mpvHwdec,
		mpvVideoLatencyHacks,
		mpvUntimed,
		mpvRTSPTransport,
		mpvAudioPitchCorrect,
	}

	hwdecEnabled := false
	hwdecForced := false

	for _, option := range ResolveOptions(options) {
		switch option.Key {
		case OptionNetworkCaching:
			milliseconds, err := strconv.Atoi(option.Value)
			if err != nil || milliseconds < 0 {
				return nil, fmt.Errorf("option %s: invalid milliseconds %q", option.Key, option.Value)
			}
			values[mpvCacheSecs] = strconv.FormatFloat(float64(milliseconds)/1000, 'f', -1, 64)
		case OptionHardwareDecode:
			enabled, err := parseSwitch(option.Value, true)
			if err != nil {
				return nil, fmt.Errorf("option %s: %w", option.Key, err)
			}
			hwdecEnabled = enabled
		case OptionHardwareDecodeForce:
			forced, err := parseSwitch(option.Value, true)
			if err != nil {
				return nil, fmt.Errorf("option %s: %w", option.Key, err)
			}
			hwdecForced = forced
		case OptionClockJitter:
			milliseconds, err := strconv.Atoi(option.Value)
			if err != nil || milliseconds < 0 {
				return nil, fmt.Errorf("option %s: invalid milliseconds %q", option.Key, option.Value)
			}
			values[mpvVideoLatencyHacks] = yesNo(milliseconds == 0)
		case OptionClockSynchro:
			synchro, err := parseSwitch(option.Value, true)
			if err != nil {
				return nil, fmt.Errorf("option %s: %w", option.Key, err)
			}
			values[mpvUntimed] = yesNo(!synchro)
		case OptionTransport:
			switch strings.ToLower(option.Value) {
			case "tcp", "udp", "http":
				values[mpvRTSPTransport] = strings.ToLower(option.Value)
			default:
				return nil, fmt.Errorf("option %s: unsupported transport %q", option.Key, option.Value)
			}
		case OptionAudioTimeStretch:
			enabled, err := parseSwitch(option.Value, true)
			if err != nil {
				return nil, fmt.Errorf("option %s: %w", option.Key, err)
			}
			values[mpvAudioPitchCorrect] = yesNo(enabled)
		default:
			if _, ok := values[option.Key]; !ok {
				order = append(order, option.Key)
			}
			value := option.Value
			if value == "" {
				value = "yes"
			}
			values[option.Key] = value
		}
	}

	switch {
	case hwdecEnabled && hwdecForced:
		values[mpvHwdec] = "auto"
	case hwdecEnabled:
		values[mpvHwdec] = "auto-safe"
	}

	mapped := make([]mpvOption, 0, len(order))
	for _, name := range order {
		mapped = append(mapped, mpvOption{name: name, value: values[name]})
	}

	return mapped, nil
}

func bootTransport(config BootConfig) string {
	if config.PreferReliableTransport {
		return mpvTransportReliable
	}

	return mpvTransportAutomatic
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}

	return "no"
}
