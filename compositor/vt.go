package compositor

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// VTMap repoints legacy terminal nodes at the compositor's virtual
// terminals, so console consumers that predate the compositor keep working
// after it takes over the display. Mapping n terminals links /dev/tty2
// through /dev/tty(n+1) to vt1 through vtn under the device directory.
type VTMap struct {
	// TTYDir is where the legacy nodes live, normally /dev.
	TTYDir string

	// DeviceDir is where the compositor creates its terminals.
	DeviceDir string

	logger *slog.Logger

	// probe allows injection of the live-terminal check for testing.
	probe func(path string) bool
}

// NewVTMap returns a VTMap between the standard locations.
// If logger is nil, a no-op logger is used.
func NewVTMap(deviceDir string, logger *slog.Logger) *VTMap {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &VTMap{
		TTYDir:    "/dev",
		DeviceDir: deviceDir,
		logger:    logger,
		probe: func(path string) bool {
			return NewDevice(path, nil).Live()
		},
	}
}

// Remap links count legacy nodes onto compositor terminals. A node that is
// already a working terminal is left untouched, so an established mapping
// (or a real console) survives repeated remaps; anything broken is removed
// and relinked.
func (m *VTMap) Remap(count int) error {
	for i := 1; i <= count; i++ {
		node := filepath.Join(m.TTYDir, fmt.Sprintf("tty%d", i+1))
		target := filepath.Join(m.DeviceDir, fmt.Sprintf("vt%d", i))

		if m.probe(node) {
			m.logger.Debug("terminal node already live", "node", node)
			continue
		}

		if err := os.Remove(node); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("compositor: remove stale node %s: %w", node, err)
		}
		if err := os.Symlink(target, node); err != nil {
			return fmt.Errorf("compositor: link %s to %s: %w", node, target, err)
		}
		m.logger.Debug("remapped terminal node", "node", node, "target", target)
	}
	return nil
}
