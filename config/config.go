// Package config provides configuration parsing for splashctl.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"gitlab.com/tinyland/lab/splashctl/internal/hexrgb"
)

// Config represents the splashctl configuration.
type Config struct {
	// Render holds text rendering settings.
	Render RenderConfig `yaml:"render"`

	// Compositor holds compositor daemon settings.
	Compositor CompositorConfig `yaml:"compositor"`

	// Progress holds progress bar settings.
	Progress ProgressConfig `yaml:"progress"`

	// Assets holds locations of packaged message and image assets.
	Assets AssetsConfig `yaml:"assets"`

	// Runtime holds scratch and state directory settings.
	Runtime RuntimeConfig `yaml:"runtime"`

	// Fallback holds direct-framebuffer fallback settings.
	Fallback FallbackConfig `yaml:"fallback"`
}

// RenderConfig holds text rendering settings.
type RenderConfig struct {
	// RendererBin is the text renderer executable name or path.
	RendererBin string `yaml:"renderer_bin"`
	// FontName is the font family passed to the renderer.
	FontName string `yaml:"font_name"`
	// FontSizePt is the font size in points.
	FontSizePt int `yaml:"font_size_pt"`
	// MarginPx is the margin around rendered text in pixels.
	MarginPx int `yaml:"margin_px"`
	// DPI is the rendering resolution in dots per inch.
	DPI int `yaml:"dpi"`
	// TextColor is the foreground color name or spec understood by the renderer.
	TextColor string `yaml:"text_color"`
	// BackgroundRGB is the background color as six hex digits (rrggbb).
	BackgroundRGB string `yaml:"background_rgb"`
	// Locale is the fallback locale when the caller supplies none.
	Locale string `yaml:"locale"`
	// ExtraArgs are additional flags passed through to the renderer verbatim.
	ExtraArgs []string `yaml:"extra_args"`
}

// CompositorConfig holds compositor daemon settings.
type CompositorConfig struct {
	// CompositorBin is the compositor executable name or path.
	CompositorBin string `yaml:"compositor_bin"`
	// DeviceDir is the directory where the compositor creates terminal devices.
	DeviceDir string `yaml:"device_dir"`
	// SpinnerIntervalMs is the spinner frame interval in milliseconds.
	SpinnerIntervalMs int `yaml:"spinner_interval_ms"`
	// RemapVTs is how many legacy virtual terminals to remap onto
	// compositor devices after a restore. Zero disables remapping.
	RemapVTs int `yaml:"remap_vts"`
}

// ProgressConfig holds progress bar settings.
type ProgressConfig struct {
	// BarRGB is the bar color as six hex digits (rrggbb).
	BarRGB string `yaml:"bar_rgb"`
	// Divisor divides the reference width to obtain the bar width.
	Divisor int `yaml:"divisor"`
}

// AssetsConfig holds locations of packaged message and image assets.
type AssetsConfig struct {
	// MessageDir is the directory holding per-locale message subdirectories.
	MessageDir string `yaml:"message_dir"`
	// SpinnerDir is the directory holding spinner animation frames.
	SpinnerDir string `yaml:"spinner_dir"`
	// BackgroundPath is the full-screen background image shown behind messages.
	BackgroundPath string `yaml:"background_path"`
}

// RuntimeConfig holds scratch and state directory settings.
type RuntimeConfig struct {
	// RunDir is the directory for lock and state files.
	RunDir string `yaml:"run_dir"`
	// ImageDir is the scratch directory for rendered images.
	ImageDir string `yaml:"image_dir"`
	// LogTag is the tag prepended to log records.
	LogTag string `yaml:"log_tag"`
	// DevModeFile marks developer mode when present; restore relaunches a
	// bare compositor so the developer console comes back.
	DevModeFile string `yaml:"dev_mode_file"`
}

// FallbackConfig holds direct-framebuffer fallback settings.
type FallbackConfig struct {
	// Framebuffer enables drawing straight to the framebuffer device when
	// the compositor binary is not installed.
	Framebuffer bool `yaml:"framebuffer"`
	// FramebufferDev is the framebuffer device node.
	FramebufferDev string `yaml:"framebuffer_dev"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Render: RenderConfig{
			RendererBin:   "pango-view",
			FontName:      "Noto Sans",
			FontSizePt:    13,
			MarginPx:      8,
			DPI:           72,
			TextColor:     "Black",
			BackgroundRGB: "fefefe",
			Locale:        "en-US",
		},
		Compositor: CompositorConfig{
			CompositorBin:     "frecon",
			DeviceDir:         "/run/frecon",
			SpinnerIntervalMs: 100,
			RemapVTs:          2,
		},
		Progress: ProgressConfig{
			BarRGB:  "2d81fa",
			Divisor: 2,
		},
		Assets: AssetsConfig{
			MessageDir:     "/usr/share/splashctl/messages",
			SpinnerDir:     "/usr/share/splashctl/images/spinner",
			BackgroundPath: "/usr/share/splashctl/images/background.png",
		},
		Runtime: RuntimeConfig{
			RunDir:      "/run/splashctl",
			ImageDir:    os.TempDir(),
			LogTag:      "splashctl",
			DevModeFile: "/run/splashctl/dev-mode",
		},
		Fallback: FallbackConfig{
			Framebuffer:    false,
			FramebufferDev: "/dev/fb0",
		},
	}
}

// LoadConfig loads configuration from a YAML file, merging with defaults.
// Environment variables of the form SPLASHCTL_<KEY> override both.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else if err := yaml.Unmarshal(data, config); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(config); err != nil {
		return nil, err
	}
	if err := config.canonicalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// canonicalize rewrites color fields to the bare rrggbb form so the rest of
// the pipeline can prefix them for whichever consumer it talks to.
func (c *Config) canonicalize() error {
	bg, err := hexrgb.Normalize(c.Render.BackgroundRGB)
	if err != nil {
		return fmt.Errorf("render.background_rgb: %w", err)
	}
	c.Render.BackgroundRGB = bg

	bar, err := hexrgb.Normalize(c.Progress.BarRGB)
	if err != nil {
		return fmt.Errorf("progress.bar_rgb: %w", err)
	}
	c.Progress.BarRGB = bar

	return nil
}

// applyEnv overlays SPLASHCTL_* environment variables onto the config. The
// variable names follow the flat key names, not the YAML nesting.
func applyEnv(c *Config) error {
	envString("SPLASHCTL_RENDERER_BIN", &c.Render.RendererBin)
	envString("SPLASHCTL_FONT_NAME", &c.Render.FontName)
	envString("SPLASHCTL_TEXT_COLOR", &c.Render.TextColor)
	envString("SPLASHCTL_BACKGROUND_RGB", &c.Render.BackgroundRGB)
	envString("SPLASHCTL_LOCALE", &c.Render.Locale)
	if v, ok := os.LookupEnv("SPLASHCTL_EXTRA_ARGS"); ok {
		c.Render.ExtraArgs = strings.Fields(v)
	}
	envString("SPLASHCTL_COMPOSITOR_BIN", &c.Compositor.CompositorBin)
	envString("SPLASHCTL_DEVICE_DIR", &c.Compositor.DeviceDir)
	envString("SPLASHCTL_PROGRESS_BAR_RGB", &c.Progress.BarRGB)
	envString("SPLASHCTL_MESSAGE_DIR", &c.Assets.MessageDir)
	envString("SPLASHCTL_SPINNER_DIR", &c.Assets.SpinnerDir)
	envString("SPLASHCTL_BACKGROUND_PATH", &c.Assets.BackgroundPath)
	envString("SPLASHCTL_RUN_DIR", &c.Runtime.RunDir)
	envString("SPLASHCTL_IMAGE_DIR", &c.Runtime.ImageDir)
	envString("SPLASHCTL_LOG_TAG", &c.Runtime.LogTag)
	envString("SPLASHCTL_DEV_MODE_FILE", &c.Runtime.DevModeFile)
	envString("SPLASHCTL_FRAMEBUFFER_DEV", &c.Fallback.FramebufferDev)

	for _, v := range []struct {
		key string
		dst *int
	}{
		{"SPLASHCTL_FONT_SIZE_PT", &c.Render.FontSizePt},
		{"SPLASHCTL_MARGIN_PX", &c.Render.MarginPx},
		{"SPLASHCTL_DPI", &c.Render.DPI},
		{"SPLASHCTL_SPINNER_INTERVAL_MS", &c.Compositor.SpinnerIntervalMs},
		{"SPLASHCTL_REMAP_VTS", &c.Compositor.RemapVTs},
		{"SPLASHCTL_PROGRESS_DIVISOR", &c.Progress.Divisor},
	} {
		if err := envInt(v.key, v.dst); err != nil {
			return err
		}
	}

	if err := envBool("SPLASHCTL_FALLBACK_FRAMEBUFFER", &c.Fallback.Framebuffer); err != nil {
		return err
	}
	return nil
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %q is not an integer", key, v)
	}
	*dst = n
	return nil
}

func envBool(key string, dst *bool) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %q is not a boolean", key, v)
	}
	*dst = b
	return nil
}

// Validate checks the configuration for required fields and logical consistency.
func (c *Config) Validate() error {
	if c.Render.RendererBin == "" {
		return fmt.Errorf("render.renderer_bin is required")
	}
	if c.Render.FontName == "" {
		return fmt.Errorf("render.font_name is required")
	}
	if c.Render.FontSizePt <= 0 {
		return fmt.Errorf("render.font_size_pt must be positive, got %d", c.Render.FontSizePt)
	}
	if c.Render.MarginPx < 0 {
		return fmt.Errorf("render.margin_px must be non-negative, got %d", c.Render.MarginPx)
	}
	if c.Render.DPI <= 0 {
		return fmt.Errorf("render.dpi must be positive, got %d", c.Render.DPI)
	}
	if !hexrgb.Valid(c.Render.BackgroundRGB) {
		return fmt.Errorf("render.background_rgb must be six hex digits, got %q", c.Render.BackgroundRGB)
	}
	if c.Render.Locale == "" {
		return fmt.Errorf("render.locale is required")
	}

	if c.Compositor.CompositorBin == "" {
		return fmt.Errorf("compositor.compositor_bin is required")
	}
	if c.Compositor.DeviceDir == "" {
		return fmt.Errorf("compositor.device_dir is required")
	}
	if c.Compositor.SpinnerIntervalMs <= 0 {
		return fmt.Errorf("compositor.spinner_interval_ms must be positive, got %d", c.Compositor.SpinnerIntervalMs)
	}
	if c.Compositor.RemapVTs < 0 {
		return fmt.Errorf("compositor.remap_vts must be non-negative, got %d", c.Compositor.RemapVTs)
	}

	if !hexrgb.Valid(c.Progress.BarRGB) {
		return fmt.Errorf("progress.bar_rgb must be six hex digits, got %q", c.Progress.BarRGB)
	}
	if c.Progress.Divisor < 1 {
		return fmt.Errorf("progress.divisor must be at least 1, got %d", c.Progress.Divisor)
	}

	if c.Assets.MessageDir == "" {
		return fmt.Errorf("assets.message_dir is required")
	}
	if c.Assets.SpinnerDir == "" {
		return fmt.Errorf("assets.spinner_dir is required")
	}

	if c.Runtime.RunDir == "" {
		return fmt.Errorf("runtime.run_dir is required")
	}
	if c.Runtime.ImageDir == "" {
		return fmt.Errorf("runtime.image_dir is required")
	}

	if c.Fallback.Framebuffer && c.Fallback.FramebufferDev == "" {
		return fmt.Errorf("fallback.framebuffer_dev is required when the framebuffer fallback is enabled")
	}

	return nil
}

// DevicePath returns the compositor terminal device splashctl writes to.
func (c *Config) DevicePath() string {
	return filepath.Join(c.Compositor.DeviceDir, "vt0")
}

// Font returns the font description string the renderer expects.
func (c *Config) Font() string {
	return fmt.Sprintf("%s %d", c.Render.FontName, c.Render.FontSizePt)
}

// SaveConfig saves configuration to a YAML file.
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
