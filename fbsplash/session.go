package fbsplash

import (
	"context"

	"gitlab.com/tinyland/lab/splashctl/compositor"
	"gitlab.com/tinyland/lab/splashctl/raster"
)

// The methods below let a Splash stand in for the compositor lifecycle
// manager, so the orchestrator drives either backend through the same
// session surface.

// Probe reports the framebuffer as a permanently running display whose
// liveness is the device node's presence.
func (s *Splash) Probe() compositor.State {
	return compositor.State{ProcessRunning: true, DeviceLive: s.Available()}
}

// Start paints the message. Spinner frames are ignored: the raw
// framebuffer has no animation loop.
func (s *Splash) Start(_ context.Context, category compositor.Category, message raster.Bitmap, frames []string) (*compositor.Handle, error) {
	if category == compositor.CategorySpinner && len(frames) > 0 {
		s.logger.Debug("spinner animation unsupported on framebuffer", "frames", len(frames))
	}
	if err := s.ShowImage(message.Path); err != nil {
		return nil, err
	}
	return &compositor.Handle{}, nil
}

// UpdateInPlace repaints the message over a fresh background.
func (s *Splash) UpdateInPlace(message raster.Bitmap) error {
	return s.ShowImage(message.Path)
}

// MarkDisplayed is a no-op: there is no compositor process to restore.
func (s *Splash) MarkDisplayed() error { return nil }

// Restore is a no-op for the same reason.
func (s *Splash) Restore(context.Context) error {
	s.logger.Debug("framebuffer restore is a no-op")
	return nil
}
