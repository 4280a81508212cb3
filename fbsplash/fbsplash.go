// Package fbsplash paints boot messages straight onto the Linux
// framebuffer. It is the fallback display path for images without a
// compositor binary installed, driving /dev/fb0 with the same centered
// box geometry the compositor would use.
package fbsplash

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"log/slog"
	"os"

	"github.com/disintegration/imaging"
	"github.com/gonutz/framebuffer"
	xdraw "golang.org/x/image/draw"

	"gitlab.com/tinyland/lab/splashctl/compositor"
	"gitlab.com/tinyland/lab/splashctl/geometry"
	"gitlab.com/tinyland/lab/splashctl/internal/hexrgb"
)

// Config carries the framebuffer device and drawing parameters.
type Config struct {
	// Device is the framebuffer device node.
	Device string
	// BackgroundRGB is the screen background color as rrggbb.
	BackgroundRGB string
}

// Splash draws directly on a memory-mapped framebuffer device.
type Splash struct {
	config Config
	logger *slog.Logger

	open func(path string) (draw.Image, func(), error)
}

// New returns a framebuffer splash for the given device.
func New(config Config, logger *slog.Logger) *Splash {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.Device == "" {
		config.Device = "/dev/fb0"
	}
	return &Splash{
		config: config,
		logger: logger,
		open:   openFramebuffer,
	}
}

func openFramebuffer(path string) (draw.Image, func(), error) {
	dev, err := framebuffer.Open(path)
	if err != nil {
		// Shares the compositor sentinel so progress stays best-effort
		// on this backend too.
		return nil, nil, fmt.Errorf("fbsplash: open %s: %v: %w", path, err, compositor.ErrDeviceUnavailable)
	}
	return dev, func() { dev.Close() }, nil
}

// Available reports whether the framebuffer device node exists.
func (s *Splash) Available() bool {
	_, err := os.Stat(s.config.Device)
	return err == nil
}

// ShowImage clears the screen to the background color and composes the
// image centered, downscaled to the screen width when wider.
func (s *Splash) ShowImage(path string) error {
	img, err := imaging.Open(path)
	if err != nil {
		return fmt.Errorf("fbsplash: load %s: %w", path, err)
	}
	dst, done, err := s.open(s.config.Device)
	if err != nil {
		return err
	}
	defer done()

	fill(dst, dst.Bounds(), rgbaColor(s.config.BackgroundRGB))
	blitCentered(dst, img)
	s.logger.Debug("framebuffer image shown", "path", path)
	return nil
}

// DrawBox fills one rectangle in the center-origin coordinates the
// compositor protocol uses.
func (s *Splash) DrawBox(rgb string, rect geometry.Rect) error {
	dst, done, err := s.open(s.config.Device)
	if err != nil {
		return err
	}
	defer done()

	fill(dst, centered(dst.Bounds(), rect), rgbaColor(rgb))
	return nil
}

// centered translates a center-origin rectangle to image coordinates.
// The offset positions the box center relative to the screen center.
func centered(bounds image.Rectangle, r geometry.Rect) image.Rectangle {
	left := bounds.Min.X + bounds.Dx()/2 + r.X - r.W/2
	top := bounds.Min.Y + bounds.Dy()/2 + r.Y - r.H/2
	return image.Rect(left, top, left+r.W, top+r.H)
}

func fill(dst draw.Image, rect image.Rectangle, c color.Color) {
	draw.Draw(dst, rect, image.NewUniform(c), image.Point{}, draw.Src)
}

// blitCentered composes src centered on dst, downscaling to the dst
// width first when the source is wider.
func blitCentered(dst draw.Image, src image.Image) {
	bounds := dst.Bounds()
	srcW := src.Bounds().Dx()
	srcH := src.Bounds().Dy()
	if srcW > bounds.Dx() && bounds.Dx() > 0 {
		scaledH := srcH * bounds.Dx() / srcW
		scaled := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), scaledH))
		xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), src, src.Bounds(), xdraw.Over, nil)
		src = scaled
		srcW = bounds.Dx()
		srcH = scaledH
	}
	left := bounds.Min.X + (bounds.Dx()-srcW)/2
	top := bounds.Min.Y + (bounds.Dy()-srcH)/2
	target := image.Rect(left, top, left+srcW, top+srcH)
	draw.Draw(dst, target, src, src.Bounds().Min, draw.Over)
}

func rgbaColor(rgb string) color.RGBA {
	r, g, b := hexrgb.Component(rgb)
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
