package probe

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/obsidianstack/puppetcheck/pkg/types"
)

// maxLockRead bounds how much of the lock file is read for a reason.
const maxLockRead = 4096

type enabledProbe struct {
	path string
}

func (p *enabledProbe) Name() string { return NameEnabled }

// Probe reports runs as disabled whenever the lock file exists, whatever its
// content. Puppet 3+ stores the reason given to `puppet agent --disable` as
// JSON; it is appended when present.
func (p *enabledProbe) Probe(_ context.Context) (Result, error) {
	_, err := os.Stat(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Result{
			Name:     NameEnabled,
			Severity: types.OK,
			Message:  "puppet runs enabled",
			Extra:    map[string]float64{"runs_disabled": 0},
		}, nil
	}
	if err != nil {
		slog.Warn("probe: cannot stat lock file, assuming disabled", "path", p.path, "err", err)
	}

	msg := "PUPPET RUNS DISABLED"
	if reason := disabledReason(p.path); reason != "" {
		msg += " (reason: " + reason + ")"
	}
	return Result{
		Name:     NameEnabled,
		Severity: types.Critical,
		Message:  msg,
		Extra:    map[string]float64{"runs_disabled": 1},
	}, nil
}

// disabledReason returns the disabled_message of a JSON lock file, or "".
func disabledReason(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxLockRead))
	if err != nil || len(data) == 0 {
		return ""
	}
	var lock struct {
		DisabledMessage string `json:"disabled_message"`
	}
	if err := json.Unmarshal(data, &lock); err != nil {
		return ""
	}
	return strings.TrimSpace(lock.DisabledMessage)
}
