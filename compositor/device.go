package compositor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/x/term"
	"golang.org/x/sys/unix"

	"gitlab.com/tinyland/lab/splashctl/geometry"
)

// ErrDeviceUnavailable reports a control device that is missing or no longer
// behaves like a terminal.
var ErrDeviceUnavailable = errors.New("compositor: control device unavailable")

// Device is the control terminal of one compositor virtual terminal.
// Directives from concurrent invocations may interleave at the device, so
// every directive goes out in a single write on a freshly opened descriptor.
type Device struct {
	// Path is the device node, e.g. /run/frecon/vt0.
	Path string

	logger *slog.Logger

	// openDevice and isTerminal allow injection for testing.
	openDevice func(string) (*os.File, error)
	isTerminal func(uintptr) bool
}

// NewDevice returns a Device for the given control node.
// If logger is nil, a no-op logger is used.
func NewDevice(path string, logger *slog.Logger) *Device {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Device{
		Path:       path,
		logger:     logger,
		openDevice: openDeviceNode,
		isTerminal: term.IsTerminal,
	}
}

// openDeviceNode opens a terminal device without becoming its controlling
// terminal and without blocking on carrier detect.
func openDeviceNode(path string) (*os.File, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, err
	}
	// O_NONBLOCK only guards the open itself; directive writes should
	// complete rather than fail on a full terminal buffer.
	if err := unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}

// Live reports whether the device exists and still behaves as a terminal.
// The probe never reads, so it cannot hang or consume compositor input.
func (d *Device) Live() bool {
	f, err := d.openDevice(d.Path)
	if err != nil {
		return false
	}
	defer f.Close()
	return d.isTerminal(f.Fd())
}

// ShowImage tells the compositor to display the image file centered over the
// given background color.
func (d *Device) ShowImage(path, rgb string) error {
	d.logger.Debug("show image", "device", d.Path, "image", path)
	return d.writeDirective(ImageDirective(path, rgb))
}

// DrawBox tells the compositor to fill a rectangle. Callers layering boxes
// draw largest first; later directives paint over earlier ones.
func (d *Device) DrawBox(rgb string, rect geometry.Rect) error {
	d.logger.Debug("draw box", "device", d.Path,
		"size", fmt.Sprintf("%d,%d", rect.W, rect.H),
		"offset", fmt.Sprintf("%d,%d", rect.X, rect.Y),
	)
	return d.writeDirective(BoxDirective(rgb, rect))
}

func (d *Device) writeDirective(directive string) error {
	f, err := d.openDevice(d.Path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrDeviceUnavailable, d.Path, err)
	}
	defer f.Close()

	if !d.isTerminal(f.Fd()) {
		return fmt.Errorf("%w: %s is not a terminal", ErrDeviceUnavailable, d.Path)
	}

	if _, err := f.WriteString(directive); err != nil {
		return fmt.Errorf("compositor: write %s: %w", d.Path, err)
	}
	return nil
}
