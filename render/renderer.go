// Package render invokes the external text renderer to turn message text or
// markup into PNG bitmaps sized for the display.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"gitlab.com/tinyland/lab/splashctl/internal/hexrgb"
	"gitlab.com/tinyland/lab/splashctl/raster"
)

// ErrRender reports a non-zero exit from the external renderer.
var ErrRender = errors.New("render: renderer failed")

// Config controls how text is rendered.
type Config struct {
	// Bin is the renderer binary name or path.
	// If empty, "pango-view" is looked up in PATH.
	Bin string

	// Font is the font description, e.g. "Noto Sans 13".
	Font string

	// DPI is the rendering resolution.
	DPI int

	// MarginPx is the margin around the text in pixels.
	MarginPx int

	// TextColor is the foreground color name or spec.
	TextColor string

	// BackgroundRGB is the background color as six bare hex digits.
	BackgroundRGB string

	// ExtraArgs are appended to every renderer invocation verbatim.
	ExtraArgs []string

	// WorkDir is the directory for output bitmaps (defaults to OS temp).
	WorkDir string
}

// DefaultConfig returns sensible defaults for boot message rendering.
func DefaultConfig() Config {
	return Config{
		Bin:           "pango-view",
		Font:          "Noto Sans 13",
		DPI:           72,
		MarginPx:      8,
		TextColor:     "Black",
		BackgroundRGB: "fefefe",
		WorkDir:       "",
	}
}

// Source identifies one input file for the renderer.
type Source struct {
	// Path is the text or markup file to render.
	Path string
	// Locale is the language hint for glyph shaping. May be empty.
	Locale string
	// Markup marks the input as markup rather than plain text.
	Markup bool
}

// Renderer runs the external text renderer.
type Renderer struct {
	config Config
	logger *slog.Logger

	// lookPath allows injection of exec.LookPath for testing.
	lookPath func(string) (string, error)

	// execCommand allows injection of command execution for testing.
	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// New creates a Renderer with the given configuration.
// If logger is nil, a no-op logger is used.
func New(config Config, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if config.Bin == "" {
		config.Bin = "pango-view"
	}
	if config.Font == "" {
		config.Font = "Noto Sans 13"
	}
	if config.DPI == 0 {
		config.DPI = 72
	}
	if config.TextColor == "" {
		config.TextColor = "Black"
	}
	if config.BackgroundRGB == "" {
		config.BackgroundRGB = "fefefe"
	}
	if config.WorkDir == "" {
		config.WorkDir = os.TempDir()
	}

	return &Renderer{
		config:      config,
		logger:      logger,
		lookPath:    exec.LookPath,
		execCommand: exec.CommandContext,
	}
}

// IsAvailable checks if the renderer binary is installed and accessible.
func (r *Renderer) IsAvailable() bool {
	_, err := r.lookPath(r.config.Bin)
	return err == nil
}

// RenderFitted renders src to a fresh PNG, constraining it to referenceWidth
// when the unconstrained result is wider. The constraint is applied by a
// second render pass: the renderer's width mode pads narrow content out to
// the requested width, which would break centering for short text, so the
// first pass always runs unconstrained and the second only when needed.
// A referenceWidth of zero or less renders unconstrained.
//
// The returned bitmap lives in the work directory and is not removed after
// success; the compositor may read it after this process exits.
func (r *Renderer) RenderFitted(ctx context.Context, src Source, referenceWidth int) (raster.Bitmap, error) {
	bin, err := r.lookPath(r.config.Bin)
	if err != nil {
		return raster.Bitmap{}, fmt.Errorf("render: %s not found in PATH: %w", r.config.Bin, err)
	}

	out, err := os.CreateTemp(r.config.WorkDir, "boot-message-*.png")
	if err != nil {
		return raster.Bitmap{}, fmt.Errorf("render: create output: %w", err)
	}
	outPath := out.Name()
	out.Close()

	if err := r.renderOnce(ctx, bin, src, outPath, 0); err != nil {
		os.Remove(outPath)
		return raster.Bitmap{}, err
	}

	bitmap := raster.Bitmap{Path: outPath}
	if referenceWidth <= 0 {
		return bitmap, nil
	}

	width, err := bitmap.Width()
	if err != nil {
		os.Remove(outPath)
		return raster.Bitmap{}, err
	}
	if width <= referenceWidth {
		return bitmap, nil
	}

	r.logger.Debug("re-rendering with width constraint",
		"unconstrained_width", width,
		"reference_width", referenceWidth,
	)
	if err := r.renderOnce(ctx, bin, src, outPath, referenceWidth); err != nil {
		os.Remove(outPath)
		return raster.Bitmap{}, err
	}
	return bitmap, nil
}

// renderOnce performs a single renderer invocation writing to outPath.
// A widthPx of zero or less omits the width constraint.
func (r *Renderer) renderOnce(ctx context.Context, bin string, src Source, outPath string, widthPx int) error {
	args := buildRenderArgs(r.config, src, outPath, widthPx)

	r.logger.Debug("executing renderer",
		"binary", bin,
		"args", args,
	)

	cmd := r.execCommand(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", ErrRender, msg)
		}
		return fmt.Errorf("%w: %v", ErrRender, err)
	}
	return nil
}

// buildRenderArgs constructs the renderer command line arguments.
func buildRenderArgs(cfg Config, src Source, outPath string, widthPx int) []string {
	args := []string{
		"-q",
		"-o", outPath,
		"--dpi", strconv.Itoa(cfg.DPI),
		"--align", "center",
		"--hinting", "full",
		"--margin", strconv.Itoa(cfg.MarginPx),
		"--font", cfg.Font,
		"--foreground", cfg.TextColor,
		"--background", hexrgb.Hash(cfg.BackgroundRGB),
	}

	if src.Locale != "" {
		args = append(args, "--language", src.Locale)
	}
	if widthPx > 0 {
		args = append(args, fmt.Sprintf("--width=%d", widthPx))
	}
	if src.Markup {
		args = append(args, "--markup")
	}
	args = append(args, cfg.ExtraArgs...)

	// The input path goes last.
	args = append(args, src.Path)

	return args
}
