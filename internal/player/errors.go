package player

import (
	"errors"
	"fmt"
)

var (
	ErrNotInitialized     = errors.New("playback session is not initialized")
	ErrAlreadyInitialized = errors.New("playback session is already initialized")
	ErrShutDown           = errors.New("playback session is shut down")
	ErrInvalidSurface     = errors.New("invalid surface handle")
)

// EngineInitError means the playback runtime could not be constructed. The
// session cannot be used afterwards.
type EngineInitError struct {
	Err error
}

func (e *EngineInitError) Error() string {
	return fmt.Sprintf("initialize playback engine: %v", e.Err)
}

func (e *EngineInitError) Unwrap() error {
	return e.Err
}

// SourceError means a descriptor could not be loaded. The session keeps its
// previous state and the caller may retry with a corrected descriptor.
type SourceError struct {
	Kind     SourceKind
	Location string
	Err      error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("load %s source %q: %v", e.Kind, e.Location, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func newSourceError(descriptor Descriptor, err error) *SourceError {
	return &SourceError{
		Kind:     descriptor.Kind(),
		Location: descriptor.Location(),
		Err:      err,
	}
}
