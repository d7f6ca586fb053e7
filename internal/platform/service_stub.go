//go:build !windows

package platform

import (
	"streamview/internal/player"

	"github.com/wailsapp/wails/v3/pkg/application"
)

type noopService struct{}

func NewService(_ *application.App, _ *player.Session) Service {
	return &noopService{}
}

func (s *noopService) Start() error {
	return nil
}

func (s *noopService) Stop() error {
	return nil
}

func (s *noopService) HandlePlayerState(_ player.State) {}

// SurfaceFor reports no surface: the native window here is not an embeddable
// video target.
func SurfaceFor(_ application.Window) (player.Surface, bool) {
	return player.Surface{}, false
}
