package player

import (
	"fmt"
	"strconv"
	"strings"
)

// BackgroundPolicy decides what happens to playback when the host leaves the
// foreground.
type BackgroundPolicy string

const (
	BackgroundPause BackgroundPolicy = "pause"
	BackgroundStop  BackgroundPolicy = "stop"
)

func ParseBackgroundPolicy(value string) (BackgroundPolicy, error) {
	switch BackgroundPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case BackgroundPause, "":
		return BackgroundPause, nil
	case BackgroundStop:
		return BackgroundStop, nil
	default:
		return "", fmt.Errorf("unknown background policy %q", value)
	}
}

const (
	defaultRTSPNetworkCachingMS   = 300
	defaultFileNetworkCachingMS   = 600
	defaultStreamNetworkCachingMS = 1500
)

// SourcePolicy produces the per-source options placed ahead of the caller's
// own options.
type SourcePolicy struct {
	// RTSPHardwareDecode enables hardware decode for RTSP sources. Some
	// stream/device combinations display frames late with it on.
	RTSPHardwareDecode     bool `json:"rtspHardwareDecode"`
	RTSPNetworkCachingMS   int  `json:"rtspNetworkCachingMs"`
	FileNetworkCachingMS   int  `json:"fileNetworkCachingMs"`
	StreamNetworkCachingMS int  `json:"streamNetworkCachingMs"`
}

func DefaultSourcePolicy() SourcePolicy {
	return SourcePolicy{
		RTSPHardwareDecode:     false,
		RTSPNetworkCachingMS:   defaultRTSPNetworkCachingMS,
		FileNetworkCachingMS:   defaultFileNetworkCachingMS,
		StreamNetworkCachingMS: defaultStreamNetworkCachingMS,
	}
}

func (p SourcePolicy) normalized() SourcePolicy {
	defaults := DefaultSourcePolicy()
	if p.RTSPNetworkCachingMS <= 0 {
		p.RTSPNetworkCachingMS = defaults.RTSPNetworkCachingMS
	}
	if p.FileNetworkCachingMS <= 0 {
		p.FileNetworkCachingMS = defaults.FileNetworkCachingMS
	}
	if p.StreamNetworkCachingMS <= 0 {
		p.StreamNetworkCachingMS = defaults.StreamNetworkCachingMS
	}

	return p
}

// OptionsFor returns the policy options for a descriptor.
func (p SourcePolicy) OptionsFor(descriptor Descriptor) []Option {
	p = p.normalized()

	switch {
	case descriptor.Kind() == SourceFile:
		return []Option{
			NewOption(OptionNetworkCaching, strconv.Itoa(p.FileNetworkCachingMS)),
			NewOption(OptionHardwareDecode, "on"),
		}
	case descriptor.IsRTSP():
		return []Option{
			NewOption(OptionNetworkCaching, strconv.Itoa(p.RTSPNetworkCachingMS)),
			NewOption(OptionTransport, "tcp"),
			NewOption(OptionAudioTimeStretch, "off"),
			NewOption(OptionClockJitter, "0"),
			NewOption(OptionClockSynchro, "0"),
			NewOption(OptionHardwareDecode, switchValue(p.RTSPHardwareDecode)),
			NewOption(OptionHardwareDecodeForce, "off"),
		}
	default:
		return []Option{
			NewOption(OptionNetworkCaching, strconv.Itoa(p.StreamNetworkCachingMS)),
		}
	}
}

// Apply returns descriptor with policy options ahead of its own.
func (p SourcePolicy) Apply(descriptor Descriptor) Descriptor {
	return descriptor.WithDefaults(p.OptionsFor(descriptor)...)
}
