//go:build !libmpv

package player

import "errors"

func newPlaybackBackend(_ BootConfig) (Engine, error) {
	return nil, errors.New("libmpv backend is not enabled; build with -tags libmpv")
}
