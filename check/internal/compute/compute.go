package compute

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/obsidianstack/puppetcheck/check/internal/probe"
	"github.com/obsidianstack/puppetcheck/pkg/types"
)

// Aggregated is the outcome of one evaluation.
type Aggregated struct {
	Severity types.Severity
	Messages []string
	Perf     []probe.PerfDatum

	// Results are kept in probe order for the textfile exporter.
	Results []probe.Result
}

// Aggregate combines results into the worst severity and a joined message.
// An empty slice is OK.
func Aggregate(results []probe.Result) *Aggregated {
	out := &Aggregated{Severity: types.OK, Results: results}
	for _, r := range results {
		out.Severity = types.Max(out.Severity, r.Severity)
		out.Messages = append(out.Messages, r.Message)
		out.Perf = append(out.Perf, r.Perf...)
	}
	return out
}

// PerfData renders the space-separated performance data.
func (a *Aggregated) PerfData() string {
	parts := make([]string, len(a.Perf))
	for i, p := range a.Perf {
		parts[i] = p.String()
	}
	return strings.Join(parts, " ")
}

// Message is the status-line body: "<msg>, <msg>, ... | <perfdata>".
func (a *Aggregated) Message() string {
	msg := strings.Join(a.Messages, ", ")
	if perf := a.PerfData(); perf != "" {
		msg += " | " + perf
	}
	return msg
}

// Labels merges the Labels of every result. Later probes win on collision.
func (a *Aggregated) Labels() map[string]string {
	out := make(map[string]string)
	for _, r := range a.Results {
		for k, v := range r.Labels {
			out[k] = v
		}
	}
	return out
}

// Run executes probes sequentially. The first probe error aborts the run and
// is returned with the probe name attached; UnknownError stays reachable
// through errors.As.
func Run(ctx context.Context, probes []probe.Probe) (*Aggregated, error) {
	results := make([]probe.Result, 0, len(probes))
	for _, p := range probes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := p.Probe(ctx)
		if err != nil {
			slog.Debug("compute: probe failed, aborting", "probe", p.Name(), "err", err)
			return nil, fmt.Errorf("%s probe: %w", p.Name(), err)
		}
		if res.Name == "" {
			res.Name = p.Name()
		}
		slog.Debug("compute: probe done",
			"probe", res.Name, "severity", res.Severity, "message", res.Message)
		results = append(results, res)
	}

	agg := Aggregate(results)
	slog.Info("compute: evaluation complete", "severity", agg.Severity, "probes", len(results))
	return agg, nil
}
