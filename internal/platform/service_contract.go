package platform

import "streamview/internal/player"

// Service integrates the playback session with OS media controls.
type Service interface {
	Start() error
	Stop() error
	HandlePlayerState(state player.State)
}
