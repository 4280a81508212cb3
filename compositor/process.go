package compositor

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// commLen is the kernel's task name limit; /proc/<pid>/comm entries are
// truncated to this many characters.
const commLen = 15

// Proc inspects and signals compositor processes by executable name. The
// compositor daemonizes itself on launch, so its PID is only discoverable
// through the process table, never through a child handle.
type Proc struct {
	logger *slog.Logger

	// procDir allows pointing at a fake /proc for testing.
	procDir string

	// signal allows injection of process signalling for testing.
	signal func(pid int, sig os.Signal) error
}

// NewProc returns a process-table helper.
// If logger is nil, a no-op logger is used.
func NewProc(logger *slog.Logger) *Proc {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Proc{
		logger:  logger,
		procDir: "/proc",
		signal:  signalProcess,
	}
}

func signalProcess(pid int, sig os.Signal) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return process.Signal(sig)
}

// FindAll returns the PIDs of every process whose command name matches the
// base name of bin.
func (p *Proc) FindAll(bin string) []int {
	name := filepath.Base(bin)
	if len(name) > commLen {
		name = name[:commLen]
	}

	entries, err := os.ReadDir(p.procDir)
	if err != nil {
		p.logger.Debug("process table unreadable", "dir", p.procDir, "error", err)
		return nil
	}

	var pids []int
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		comm, err := os.ReadFile(filepath.Join(p.procDir, e.Name(), "comm"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(comm)) == name {
			pids = append(pids, pid)
		}
	}
	return pids
}

// Running reports whether any process with the given executable name exists.
func (p *Proc) Running(bin string) bool {
	return len(p.FindAll(bin)) > 0
}

// Alive checks a specific PID by sending signal 0.
func (p *Proc) Alive(pid int) bool {
	return p.signal(pid, syscall.Signal(0)) == nil
}

// KillAll force-kills every process matching bin and returns how many were
// signalled. The compositor has no graceful shutdown contract, so SIGKILL is
// the only signal used.
func (p *Proc) KillAll(bin string) int {
	pids := p.FindAll(bin)
	killed := 0
	for _, pid := range pids {
		if err := p.signal(pid, unix.SIGKILL); err != nil {
			p.logger.Warn("kill failed", "pid", pid, "error", err)
			continue
		}
		p.logger.Debug("killed compositor", "pid", pid)
		killed++
	}
	return killed
}
