package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourcePolicyRTSPDefaults(t *testing.T) {
	descriptor := DefaultSourcePolicy().Apply(NewURLDescriptor("rtsp://camera.local:8554/live"))

	resolved := ResolveOptions(descriptor.Options())
	assert.Equal(t, []Option{
		NewOption(OptionNetworkCaching, "300"),
		NewOption(OptionTransport, "tcp"),
		NewOption(OptionAudioTimeStretch, "off"),
		NewOption(OptionClockJitter, "0"),
		NewOption(OptionClockSynchro, "0"),
		NewOption(OptionHardwareDecode, "off"),
		NewOption(OptionHardwareDecodeForce, "off"),
	}, resolved)
}

func TestSourcePolicyRTSPHardwareDecodeIsConfigurable(t *testing.T) {
	policy := DefaultSourcePolicy()
	policy.RTSPHardwareDecode = true

	options := policy.OptionsFor(NewURLDescriptor("rtsps://camera.local/live"))
	assert.Contains(t, options, NewOption(OptionHardwareDecode, "on"))
}

func TestSourcePolicyCallerOptionsWin(t *testing.T) {
	descriptor := NewURLDescriptor("rtsp://camera.local/live", NewOption(OptionNetworkCaching, "1000"))
	applied := DefaultSourcePolicy().Apply(descriptor)

	resolved := ResolveOptions(applied.Options())
	assert.Equal(t, NewOption(OptionNetworkCaching, "1000"), resolved[0])
	assert.Len(t, descriptor.Options(), 1, "original descriptor must not change")
}

func TestSourcePolicyFileAndStreamDefaults(t *testing.T) {
	policy := SourcePolicy{}

	fileOptions := policy.OptionsFor(NewFileDescriptor("/videos/clip.mp4"))
	assert.Equal(t, []Option{
		NewOption(OptionNetworkCaching, "600"),
		NewOption(OptionHardwareDecode, "on"),
	}, fileOptions)

	streamOptions := policy.OptionsFor(NewURLDescriptor("https://example.com/live.m3u8"))
	assert.Equal(t, []Option{NewOption(OptionNetworkCaching, "1500")}, streamOptions)
}

func TestParseBackgroundPolicy(t *testing.T) {
	policy, err := ParseBackgroundPolicy(" Stop ")
	require.NoError(t, err)
	assert.Equal(t, BackgroundStop, policy)

	policy, err = ParseBackgroundPolicy("")
	require.NoError(t, err)
	assert.Equal(t, BackgroundPause, policy)

	_, err = ParseBackgroundPolicy("destroy")
	assert.Error(t, err)
}

func TestDescriptorIsImmutable(t *testing.T) {
	options := []Option{NewOption(OptionNetworkCaching, "300")}
	descriptor := NewURLDescriptor("rtsp://host/stream", options...)

	options[0].Value = "9000"
	returned := descriptor.Options()
	returned[0].Value = "1"

	assert.Equal(t, "300", descriptor.Options()[0].Value)
	assert.True(t, descriptor.IsRTSP())
	assert.False(t, NewFileDescriptor("rtsp.mp4").IsRTSP())
}
