package compositor

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Indicator is the persisted marker meaning "a boot message is currently on
// screen". Only its presence matters; the content is never read. It lives on
// a volatile mount, so a reboot clears it implicitly.
type Indicator struct {
	// Path is the marker file location.
	Path string

	logger *slog.Logger
}

// NewIndicator returns an Indicator at the given path.
// If logger is nil, a no-op logger is used.
func NewIndicator(path string, logger *slog.Logger) *Indicator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Indicator{Path: path, logger: logger}
}

// Present reports whether the marker exists.
func (i *Indicator) Present() bool {
	_, err := os.Stat(i.Path)
	return err == nil
}

// Mark creates the marker file, creating its directory if needed.
func (i *Indicator) Mark() error {
	if err := os.MkdirAll(filepath.Dir(i.Path), 0o755); err != nil {
		return fmt.Errorf("compositor: create indicator directory: %w", err)
	}
	if err := os.WriteFile(i.Path, nil, 0o644); err != nil {
		return fmt.Errorf("compositor: write indicator: %w", err)
	}
	i.logger.Debug("marked message displayed", "path", i.Path)
	return nil
}

// Clear removes the marker. Clearing an absent marker is not an error.
func (i *Indicator) Clear() error {
	if err := os.Remove(i.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("compositor: clear indicator: %w", err)
	}
	i.logger.Debug("cleared display indicator", "path", i.Path)
	return nil
}
