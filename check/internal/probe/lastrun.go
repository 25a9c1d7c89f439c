package probe

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/obsidianstack/puppetcheck/pkg/types"
)

type lastRunProbe struct {
	path     string
	warning  int64 // seconds
	critical int64 // seconds
	now      func() time.Time
}

func (p *lastRunProbe) Name() string { return NameLastRun }

// Probe classifies the age of the state file, which the agent rewrites after
// every successful run. An unreadable state file is fatal.
func (p *lastRunProbe) Probe(_ context.Context) (Result, error) {
	fi, err := os.Stat(p.path)
	if err != nil {
		return Result{}, types.WrapUnknown(err, fmt.Sprintf("failed to get mtime of state file '%s'", p.path))
	}
	age := int64(p.now().Sub(fi.ModTime()) / time.Second)
	return classifyAge(age, p.warning, p.critical), nil
}

// classifyAge uses strict comparisons: an age equal to a threshold does not
// cross it.
func classifyAge(age, warning, critical int64) Result {
	res := Result{
		Name: NameLastRun,
		Perf: []PerfDatum{{Label: "state_file_age", Value: age, Unit: "s", Warn: warning, Crit: critical}},
	}
	switch {
	case age > critical:
		res.Severity = types.Critical
		res.Message = fmt.Sprintf("STATE FILE %d SECONDS OLD", age)
	case age > warning:
		res.Severity = types.Warning
		res.Message = fmt.Sprintf("STATE FILE %d SECONDS OLD", age)
	default:
		res.Severity = types.OK
		res.Message = fmt.Sprintf("state file last updated %d seconds ago", age)
	}
	res.Message += fmt.Sprintf(" (w=%d/c=%d)", warning, critical)
	return res
}
