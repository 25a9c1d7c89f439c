package puppet

import (
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/procfs"
)

// ProcessLister returns the command lines of the running processes, one
// space-joined string per process.
type ProcessLister interface {
	CommandLines() ([]string, error)
}

// ProcFS lists processes from a procfs mount.
type ProcFS struct {
	// MountPoint defaults to /proc.
	MountPoint string
}

// CommandLines implements ProcessLister. The calling process is excluded so
// the check never counts itself; kernel threads have no command line and
// processes that exit mid-scan are skipped.
func (p ProcFS) CommandLines() ([]string, error) {
	mount := p.MountPoint
	if mount == "" {
		mount = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(mount)
	if err != nil {
		return nil, fmt.Errorf("procfs: open %s: %w", mount, err)
	}
	procs, err := fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("procfs: list processes: %w", err)
	}

	self := os.Getpid()
	out := make([]string, 0, len(procs))
	for _, proc := range procs {
		if proc.PID == self {
			continue
		}
		args, err := proc.CmdLine()
		if err != nil || len(args) == 0 {
			continue
		}
		out = append(out, strings.Join(args, " "))
	}
	return out, nil
}
