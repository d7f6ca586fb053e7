package player

// Engine is the external playback runtime. A Session owns exactly one.
type Engine interface {
	// NewMedia creates an engine-side media object for a target. It is not
	// played until passed to SetMedia.
	NewMedia(target string) (Media, error)
	// SetMedia makes media current. Playback is left paused.
	SetMedia(media Media) error
	Play() error
	Pause() error
	Stop() error
	AttachSurface(surface Surface) error
	DetachSurface() error
	// SetEventSink installs the callback used from the engine's own goroutine.
	SetEventSink(sink func(Event))
	Close() error
}

// Media is the engine-side object built from a Descriptor.
type Media interface {
	AddOption(option Option)
	Release()
}

// EngineFactory constructs an engine from boot options.
type EngineFactory func(bootOptions []string) (Engine, error)

// DefaultEngineFactory builds the backend selected at compile time.
func DefaultEngineFactory(bootOptions []string) (Engine, error) {
	config, err := ParseBootOptions(bootOptions)
	if err != nil {
		return nil, err
	}

	return newPlaybackBackend(config)
}

// Surface is a host-owned display target borrowed by the engine.
type Surface struct {
	Handle uintptr `json:"handle"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}
