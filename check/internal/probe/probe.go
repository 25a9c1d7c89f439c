package probe

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/obsidianstack/puppetcheck/check/internal/config"
	"github.com/obsidianstack/puppetcheck/check/internal/puppet"
	"github.com/obsidianstack/puppetcheck/pkg/types"
)

// Probe names, also used as the probe label of exported metrics.
const (
	NameProcess     = "process"
	NameLastRun     = "lastrun"
	NameEnabled     = "enabled"
	NameVersion     = "version"
	NameEnvironment = "environment"
)

// PerfDatum is one Nagios performance-data field.
type PerfDatum struct {
	Label string
	Value int64
	Unit  string
	Warn  int64
	Crit  int64
}

// String renders label=<value><unit>;<warn>;<crit>.
func (p PerfDatum) String() string {
	return fmt.Sprintf("%s=%d%s;%d;%d", p.Label, p.Value, p.Unit, p.Warn, p.Crit)
}

// Result is the classified outcome of one probe.
type Result struct {
	Name     string
	Severity types.Severity
	Message  string

	// Perf is appended to the status line after "|".
	Perf []PerfDatum

	// Extra and Labels are exported as metrics only; they never change the
	// status line.
	Extra  map[string]float64
	Labels map[string]string
}

// Probe is implemented by every check.
type Probe interface {
	Name() string
	Probe(ctx context.Context) (Result, error)
}

// Deps are the collaborators probes use to reach the host.
type Deps struct {
	Runner    puppet.Runner
	Processes puppet.ProcessLister
	Now       func() time.Time
	Getenv    func(string) string
}

// DefaultDeps returns collaborators bound to the live host.
func DefaultDeps(timeout time.Duration) Deps {
	return Deps{
		Runner:    puppet.ExecRunner{Timeout: timeout},
		Processes: puppet.ProcFS{},
		Now:       time.Now,
		Getenv:    os.Getenv,
	}
}

// All returns the five probes in aggregation order.
func All(cfg *config.Config, d Deps) []Probe {
	return []Probe{
		&processProbe{lister: d.Processes},
		&lastRunProbe{
			path:     cfg.Statefile,
			warning:  cfg.WarningSeconds(),
			critical: cfg.CriticalSeconds(),
			now:      d.Now,
		},
		&enabledProbe{path: cfg.Lockfile},
		&versionProbe{
			exe:      cfg.PuppetExecutable,
			expected: cfg.ExpectedVersion,
			runner:   d.Runner,
		},
		&environmentProbe{
			confPath: cfg.ConfPath,
			baseline: cfg.SettingsEnvironment,
			expected: cfg.Environment,
			runner:   d.Runner,
			getenv:   d.Getenv,
		},
	}
}
