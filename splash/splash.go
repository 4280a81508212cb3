package splash

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gitlab.com/tinyland/lab/splashctl/compositor"
	"gitlab.com/tinyland/lab/splashctl/geometry"
	"gitlab.com/tinyland/lab/splashctl/raster"
	"gitlab.com/tinyland/lab/splashctl/render"
)

// ErrMessageNotFound means no locale candidate had a message resource on disk.
var ErrMessageNotFound = errors.New("splash: message not found")

// TextRenderer turns a message source into a bitmap fitted to the display.
type TextRenderer interface {
	RenderFitted(ctx context.Context, src render.Source, referenceWidth int) (raster.Bitmap, error)
}

// Session is the compositor surface the orchestrator drives. Production
// code passes the lifecycle manager; tests substitute a fake.
type Session interface {
	Probe() compositor.State
	Start(ctx context.Context, category compositor.Category, message raster.Bitmap, frames []string) (*compositor.Handle, error)
	UpdateInPlace(message raster.Bitmap) error
	MarkDisplayed() error
	Restore(ctx context.Context) error
}

// Painter draws filled boxes on the live control device.
type Painter interface {
	DrawBox(rgb string, rect geometry.Rect) error
}

// Config carries the orchestrator's resource paths and drawing parameters.
type Config struct {
	// MessageDir is the root of per-locale message resources, laid out as
	// <MessageDir>/<locale>/<message_id>.txt.
	MessageDir string
	// SpinnerDir holds the spinner animation frames as *.png.
	SpinnerDir string
	// BackgroundPath is the background bitmap. Its width is the reference
	// width for message fitting and progress geometry.
	BackgroundPath string
	// BackgroundRGB is the screen background color as rrggbb.
	BackgroundRGB string
	// ProgressBarRGB is the progress bar color as rrggbb.
	ProgressBarRGB string
	// ProgressDivisor sets the bar width as a fraction of the reference width.
	ProgressDivisor int
	// ImageDir receives downscaled copies of oversized images.
	ImageDir string
	// DefaultLocale is used when a display request names no locales.
	DefaultLocale string
	// LockPath is the flock target serializing display mutations.
	LockPath string
}

// Controller orchestrates message display end to end: resource lookup,
// rendering, the restart-versus-update decision, and progress drawing.
type Controller struct {
	config   Config
	logger   *slog.Logger
	renderer TextRenderer
	session  Session
	painter  Painter
	lock     *FileLock
}

// NewController wires the orchestrator to a display session and a text
// renderer. The compositor manager and its control device are the usual
// pair; the framebuffer fallback substitutes for both.
func NewController(config Config, session Session, painter Painter, renderer TextRenderer, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{
		config:   config,
		logger:   logger,
		renderer: renderer,
		session:  session,
		painter:  painter,
		lock:     NewFileLock(config.LockPath),
	}
}

// FindMessage resolves a message identifier against the locale candidates
// and returns the path and locale of the first resource that exists on
// disk. Candidate order is the caller's preference order.
func FindMessage(messageDir, messageID string, locales []string) (string, string, error) {
	for _, locale := range locales {
		path := filepath.Join(messageDir, locale, messageID+".txt")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return path, locale, nil
	}
	return "", "", fmt.Errorf("%w: %s (locales %s)", ErrMessageNotFound, messageID, strings.Join(locales, " "))
}

// DisplayMessage renders the localized message resource and shows it.
// The first locale candidate whose resource exists wins; a display
// failure for that locale propagates rather than falling through to the
// next candidate.
func (c *Controller) DisplayMessage(ctx context.Context, messageID string, locales []string) error {
	if len(locales) == 0 {
		locales = []string{c.config.DefaultLocale}
	}
	path, locale, err := FindMessage(c.config.MessageDir, messageID, locales)
	if err != nil {
		return err
	}
	c.logger.Info("displaying message", "message", messageID, "locale", locale)
	src := render.Source{Path: path, Locale: locale, Markup: true}
	return c.showRendered(ctx, ClassifyMessage(messageID), src)
}

// DisplayFile shows an arbitrary file: raster images directly, anything
// else through the markup renderer. The name selects the display category.
func (c *Controller) DisplayFile(ctx context.Context, name, path string) error {
	return c.showFile(ctx, name, path, ClassifyMessage(name))
}

// DisplaySpinner shows a file with the spinner overlay regardless of how
// its name classifies.
func (c *Controller) DisplaySpinner(ctx context.Context, name, path string) error {
	return c.showFile(ctx, name, path, compositor.CategorySpinner)
}

func (c *Controller) showFile(ctx context.Context, name, path string, category compositor.Category) error {
	if ClassifySource(path) == SourceImage {
		c.logger.Info("displaying image", "name", name, "path", path)
		display, err := raster.NormalizeForDisplay(path, c.referenceWidth(), c.config.ImageDir)
		if err != nil {
			return err
		}
		return c.show(ctx, category, raster.Bitmap{Path: display})
	}
	c.logger.Info("displaying file", "name", name, "path", path)
	return c.showRendered(ctx, category, render.Source{Path: path, Markup: true})
}

func (c *Controller) showRendered(ctx context.Context, category compositor.Category, src render.Source) error {
	bitmap, err := c.renderer.RenderFitted(ctx, src, c.referenceWidth())
	if err != nil {
		return err
	}
	return c.show(ctx, category, bitmap)
}

// show is the one path that mutates the display. It holds the display lock
// across the probe and the action so concurrent invocations cannot act on
// a stale restart decision.
func (c *Controller) show(ctx context.Context, category compositor.Category, message raster.Bitmap) error {
	release, err := c.lock.Acquire()
	if err != nil {
		return err
	}
	defer release()

	state := c.session.Probe()
	if compositor.NeedsRestart(category, state) {
		var frames []string
		if category == compositor.CategorySpinner {
			frames = c.spinnerFrames()
		}
		if _, err := c.session.Start(ctx, category, message, frames); err != nil {
			return err
		}
	} else {
		if err := c.session.UpdateInPlace(message); err != nil {
			return err
		}
	}
	return c.session.MarkDisplayed()
}

// spinnerFrames lists the animation frames in lexical order. A missing or
// empty spinner directory yields nil and the lifecycle degrades to static.
func (c *Controller) spinnerFrames() []string {
	frames, err := filepath.Glob(filepath.Join(c.config.SpinnerDir, "*.png"))
	if err != nil || len(frames) == 0 {
		c.logger.Warn("no spinner frames", "dir", c.config.SpinnerDir)
		return nil
	}
	sort.Strings(frames)
	return frames
}

// referenceWidth reads the background bitmap's width. Zero disables
// fitting when the background is missing or unreadable.
func (c *Controller) referenceWidth() int {
	width, err := raster.Width(c.config.BackgroundPath)
	if err != nil {
		c.logger.Debug("no reference background", "path", c.config.BackgroundPath, "error", err)
		return 0
	}
	return width
}

// UpdateProgress draws the boot progress bar at the given percentage.
// Drawing is best-effort: an unavailable control device is logged and
// swallowed so boot scripts never fail on a cosmetic update.
func (c *Controller) UpdateProgress(percent int) error {
	width, err := raster.Width(c.config.BackgroundPath)
	if err != nil {
		return fmt.Errorf("splash: progress reference: %w", err)
	}
	bar := geometry.Progress(width, c.config.ProgressDivisor, percent)

	boxes := []struct {
		rgb  string
		rect geometry.Rect
	}{
		{c.config.ProgressBarRGB, bar.Frame},
		{c.config.BackgroundRGB, bar.Punch},
		{c.config.ProgressBarRGB, bar.Fill},
	}
	for _, box := range boxes {
		if err := c.painter.DrawBox(box.rgb, box.rect); err != nil {
			if errors.Is(err, compositor.ErrDeviceUnavailable) {
				c.logger.Debug("progress update skipped", "error", err)
				return nil
			}
			return err
		}
	}
	return nil
}

// Action runs a named maintenance action.
func (c *Controller) Action(ctx context.Context, name string) error {
	switch name {
	case "restore_frecon":
		release, err := c.lock.Acquire()
		if err != nil {
			return err
		}
		defer release()
		return c.session.Restore(ctx)
	default:
		return fmt.Errorf("splash: unknown action %q", name)
	}
}
