package compositor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/splashctl/geometry"
	"gitlab.com/tinyland/lab/splashctl/internal/hexrgb"
	"gitlab.com/tinyland/lab/splashctl/raster"
)

// Category classifies a message for lifecycle decisions. Spinner messages
// need a compositor launched in loop mode; loop mode cannot be toggled on a
// running instance.
type Category int

const (
	// CategoryStatic is a plain message with no animation overlay.
	CategoryStatic Category = iota
	// CategorySpinner is a message displayed with the cycling spinner.
	CategorySpinner
)

// String returns the human-readable name of the category.
func (c Category) String() string {
	switch c {
	case CategoryStatic:
		return "static"
	case CategorySpinner:
		return "spinner"
	default:
		return "unknown"
	}
}

// State is a point-in-time snapshot of the compositor.
type State struct {
	// ProcessRunning means a compositor process exists in the process table.
	ProcessRunning bool
	// DeviceLive means the primary control device answers the terminal probe.
	DeviceLive bool
	// IndicatorPresent means a message is (or was) on screen.
	IndicatorPresent bool
}

// NeedsRestart decides whether displaying a message of the given category
// requires a fresh compositor. Spinner messages always do; static messages
// reuse a running instance whose control device is still live.
func NeedsRestart(category Category, state State) bool {
	if category == CategorySpinner {
		return true
	}
	return !state.ProcessRunning || !state.DeviceLive
}

// Handle is the owned result of a successful start: the daemonized
// compositor and its primary control device.
type Handle struct {
	// PID is the daemon's process ID, or zero when it could not be
	// discovered from the process table.
	PID int
	// Device is the primary control device.
	Device *Device
}

const (
	deviceWaitTimeout  = 5 * time.Second
	deviceWaitInterval = 50 * time.Millisecond
)

// Config holds the settings the lifecycle manager needs.
type Config struct {
	// Bin is the compositor binary name or path.
	Bin string
	// DeviceDir is where the compositor creates its terminal devices.
	DeviceDir string
	// BackgroundRGB is the clear color as six bare hex digits.
	BackgroundRGB string
	// BackgroundPath is the full-screen background image layer. May be empty.
	BackgroundPath string
	// SpinnerIntervalMs is the loop interval for spinner frames.
	SpinnerIntervalMs int
	// RemapVTs is how many legacy terminal nodes to remap after a start.
	RemapVTs int
	// IndicatorPath is the persisted "message on screen" marker file.
	IndicatorPath string
	// DevModeFile marks developer mode when present. After a restore in
	// developer mode a minimal compositor is relaunched so the console
	// stays usable.
	DevModeFile string
}

// Manager owns the compositor lifecycle: it decides between restarting and
// updating in place, spawns and kills the daemon, and tracks the display
// indicator.
type Manager struct {
	config Config
	logger *slog.Logger

	proc      *Proc
	device    *Device
	indicator *Indicator
	vtmap     *VTMap

	// lookPath and execCommand allow injection of process launching for
	// testing.
	lookPath    func(string) (string, error)
	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd

	waitTimeout  time.Duration
	waitInterval time.Duration
}

// NewManager creates a lifecycle manager.
// If logger is nil, a no-op logger is used.
func NewManager(config Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.Bin == "" {
		config.Bin = "frecon"
	}
	if config.DeviceDir == "" {
		config.DeviceDir = "/run/frecon"
	}

	return &Manager{
		config:       config,
		logger:       logger,
		proc:         NewProc(logger),
		device:       NewDevice(filepath.Join(config.DeviceDir, "vt0"), logger),
		indicator:    NewIndicator(config.IndicatorPath, logger),
		vtmap:        NewVTMap(config.DeviceDir, logger),
		lookPath:     exec.LookPath,
		execCommand:  exec.CommandContext,
		waitTimeout:  deviceWaitTimeout,
		waitInterval: deviceWaitInterval,
	}
}

// Device returns the primary control device.
func (m *Manager) Device() *Device {
	return m.device
}

// Available reports whether the compositor binary is installed.
func (m *Manager) Available() bool {
	_, err := m.lookPath(m.config.Bin)
	return err == nil
}

// Probe takes a snapshot of the compositor's current state.
func (m *Manager) Probe() State {
	return State{
		ProcessRunning:   m.proc.Running(m.config.Bin),
		DeviceLive:       m.device.Live(),
		IndicatorPresent: m.indicator.Present(),
	}
}

// MarkDisplayed records that a message is on screen.
func (m *Manager) MarkDisplayed() error {
	return m.indicator.Mark()
}

// ClearDisplayed removes the on-screen marker.
func (m *Manager) ClearDisplayed() error {
	return m.indicator.Clear()
}

// Start kills any existing compositor and launches a fresh one displaying
// the message bitmap over the configured background. For spinner messages a
// loop layer cycles frames beside the message; an empty frame set degrades
// to a static display. It returns an owned handle once the control device
// answers the terminal probe.
func (m *Manager) Start(ctx context.Context, category Category, message raster.Bitmap, frames []string) (*Handle, error) {
	if category == CategorySpinner && len(frames) == 0 {
		m.logger.Warn("no spinner frames found, displaying static message")
		category = CategoryStatic
	}

	bin, err := m.lookPath(m.config.Bin)
	if err != nil {
		return nil, fmt.Errorf("compositor: %s not found in PATH: %w", m.config.Bin, err)
	}

	if killed := m.proc.KillAll(m.config.Bin); killed > 0 {
		m.logger.Debug("killed previous compositor", "count", killed)
	}

	images := make([]string, 0, 2+len(frames))
	if m.config.BackgroundPath != "" {
		images = append(images, m.config.BackgroundPath)
	}
	images = append(images, message.Path)

	var spinner *spinnerLayer
	if category == CategorySpinner {
		spinner, err = m.spinnerLayerFor(message, frames, len(images))
		if err != nil {
			return nil, err
		}
		images = append(images, frames...)
	}

	args := buildCompositorArgs(m.config, spinner, images)
	if err := m.spawn(ctx, bin, args); err != nil {
		return nil, err
	}

	if err := m.waitDeviceLive(ctx); err != nil {
		return nil, err
	}

	handle := &Handle{Device: m.device}
	if pids := m.proc.FindAll(m.config.Bin); len(pids) > 0 {
		handle.PID = pids[0]
	} else {
		m.logger.Warn("compositor running but PID not found")
	}

	if m.config.RemapVTs > 0 {
		if err := m.vtmap.Remap(m.config.RemapVTs); err != nil {
			// The remap is a convenience for legacy console consumers;
			// the message itself is already up.
			m.logger.Warn("terminal remap failed", "error", err)
		}
	}

	m.logger.Info("compositor started",
		"pid", handle.PID,
		"category", category.String(),
		"layers", len(images),
	)
	return handle, nil
}

// spinnerLayer carries the loop-mode launch parameters.
type spinnerLayer struct {
	// start is the image index of the first loop frame.
	start int
	// intervalMs is the frame interval.
	intervalMs int
	// offsetX anchors the loop layer left of the centered message.
	offsetX int
}

func (m *Manager) spinnerLayerFor(message raster.Bitmap, frames []string, start int) (*spinnerLayer, error) {
	messageWidth, err := message.Width()
	if err != nil {
		return nil, err
	}
	frameWidth, err := raster.Width(frames[0])
	if err != nil {
		return nil, err
	}
	return &spinnerLayer{
		start:      start,
		intervalMs: m.config.SpinnerIntervalMs,
		offsetX:    geometry.SpinnerOffset(messageWidth, frameWidth),
	}, nil
}

// UpdateInPlace refreshes the display of a running compositor by re-issuing
// the background and message image directives, avoiding the visible flash a
// restart would cause.
func (m *Manager) UpdateInPlace(message raster.Bitmap) error {
	if m.config.BackgroundPath != "" {
		if err := m.device.ShowImage(m.config.BackgroundPath, m.config.BackgroundRGB); err != nil {
			return err
		}
	}
	return m.device.ShowImage(message.Path, m.config.BackgroundRGB)
}

// Restore clears the boot splash: it removes the display indicator and
// force-kills the compositor. In developer mode a minimal instance is
// relaunched so the console keeps a working terminal. Calling Restore with
// no indicator present is a no-op.
func (m *Manager) Restore(ctx context.Context) error {
	if !m.indicator.Present() {
		m.logger.Debug("no message displayed, nothing to restore")
		return nil
	}

	m.logger.Info("restoring console")
	if err := m.ClearDisplayed(); err != nil {
		return err
	}
	m.proc.KillAll(m.config.Bin)

	if !m.devMode() {
		return nil
	}

	m.logger.Info("developer mode, relaunching minimal compositor")
	bin, err := m.lookPath(m.config.Bin)
	if err != nil {
		return fmt.Errorf("compositor: %s not found in PATH: %w", m.config.Bin, err)
	}
	args := buildCompositorArgs(m.config, nil, nil)
	if err := m.spawn(ctx, bin, args); err != nil {
		return err
	}
	if err := m.waitDeviceLive(ctx); err != nil {
		return err
	}
	if m.config.RemapVTs > 0 {
		if err := m.vtmap.Remap(m.config.RemapVTs); err != nil {
			m.logger.Warn("terminal remap failed", "error", err)
		}
	}
	return nil
}

// devMode reports whether the developer-mode marker file exists.
func (m *Manager) devMode() bool {
	if m.config.DevModeFile == "" {
		return false
	}
	_, err := os.Stat(m.config.DevModeFile)
	return err == nil
}

// spawn launches the compositor, which daemonizes itself; the foreground
// parent exits once the daemon is up.
func (m *Manager) spawn(ctx context.Context, bin string, args []string) error {
	m.logger.Debug("launching compositor", "binary", bin, "args", args)

	cmd := m.execCommand(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("compositor: launch failed: %s", msg)
		}
		return fmt.Errorf("compositor: launch failed: %w", err)
	}
	return nil
}

// waitDeviceLive polls until the control device answers the terminal probe.
// The daemon creates its devices asynchronously after the launcher exits.
func (m *Manager) waitDeviceLive(ctx context.Context) error {
	deadline := time.Now().Add(m.waitTimeout)
	for {
		if m.device.Live() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s did not appear within %v", ErrDeviceUnavailable, m.device.Path, m.waitTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.waitInterval):
		}
	}
}

// buildCompositorArgs constructs the daemon launch flags. Flags precede the
// image layer paths; a nil spinner omits the loop layer.
func buildCompositorArgs(cfg Config, spinner *spinnerLayer, images []string) []string {
	args := []string{
		"--daemon",
		"--enable-vts",
		"--pre-create-vts",
		"--enable-vt1",
		"--no-login",
		"--enable-osc",
		"--clear=" + hexrgb.Hex0x(cfg.BackgroundRGB),
		"--frame-interval=0",
		"--scale=0",
	}

	if spinner != nil {
		args = append(args,
			fmt.Sprintf("--loop-start=%d", spinner.start),
			fmt.Sprintf("--loop-interval=%d", spinner.intervalMs),
			fmt.Sprintf("--loop-offset=%d,0", spinner.offsetX),
		)
	}

	return append(args, images...)
}
