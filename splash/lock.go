package splash

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// FileLock serializes display mutations across concurrent invocations.
// Probing compositor state and acting on it is not atomic, so every
// mutating operation runs under an exclusive flock on the same path.
type FileLock struct {
	Path string
}

// NewFileLock returns a lock backed by the given path. The file is
// created on first acquire.
func NewFileLock(path string) *FileLock {
	return &FileLock{Path: path}
}

// Acquire blocks until the exclusive lock is held and returns the
// release function. The lock file itself is left in place.
func (l *FileLock) Acquire() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(l.Path), 0o755); err != nil {
		return nil, fmt.Errorf("splash: create lock dir: %w", err)
	}
	f, err := os.OpenFile(l.Path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("splash: open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("splash: acquire display lock: %w", err)
	}
	return func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}
