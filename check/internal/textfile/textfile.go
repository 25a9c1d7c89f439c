package textfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/obsidianstack/puppetcheck/check/internal/compute"
	"github.com/obsidianstack/puppetcheck/pkg/types"
)

const (
	namespace = "puppet"

	statusName    = "puppet_check_status"
	timestampName = "puppet_check_last_run_timestamp_seconds"
	infoName      = "puppet_check_info"

	// overall is the probe label of the aggregated status.
	overall = "overall"
)

// Families converts one evaluation into metric families sorted by name.
// When err is non-nil the run was aborted: only the overall UNKNOWN status
// and the timestamp are exported.
func Families(agg *compute.Aggregated, err error, now time.Time) []*dto.MetricFamily {
	status := &dto.MetricFamily{
		Name: proto.String(statusName),
		Help: proto.String("Check status per probe: 0 OK, 1 WARNING, 2 CRITICAL, 3 UNKNOWN."),
		Type: dto.MetricType_GAUGE.Enum(),
	}
	fams := []*dto.MetricFamily{
		status,
		gauge(timestampName, "Unix time of the last evaluation.", float64(now.Unix()), nil),
	}

	if err != nil || agg == nil {
		status.Metric = append(status.Metric, gaugeMetric(float64(types.Unknown), map[string]string{"probe": overall}))
		return sortFamilies(fams)
	}

	for _, r := range agg.Results {
		status.Metric = append(status.Metric, gaugeMetric(float64(r.Severity), map[string]string{"probe": r.Name}))
	}
	status.Metric = append(status.Metric, gaugeMetric(float64(agg.Severity), map[string]string{"probe": overall}))

	for _, p := range agg.Perf {
		name := metricName(p.Label)
		if p.Unit == "s" {
			name += "_seconds"
		}
		fams = append(fams, gauge(name, "Performance datum "+p.Label+".", float64(p.Value), nil))
	}

	for _, r := range agg.Results {
		for _, k := range sortedKeys(r.Extra) {
			fams = append(fams, gauge(metricName(k), "Reported by the "+r.Name+" probe.", r.Extra[k], nil))
		}
	}

	if labels := agg.Labels(); len(labels) > 0 {
		fams = append(fams, gauge(infoName, "Agent facts of the last evaluation.", 1, labels))
	}
	return sortFamilies(fams)
}

// Write encodes fams and atomically replaces path with the result.
func Write(path string, fams []*dto.MetricFamily) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("textfile: create temp: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	for _, mf := range fams {
		if _, err := expfmt.MetricFamilyToText(tmp, mf); err != nil {
			tmp.Close()
			return fmt.Errorf("textfile: encode %s: %w", mf.GetName(), err)
		}
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("textfile: chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("textfile: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("textfile: rename: %w", err)
	}
	return nil
}

func gauge(name, help string, v float64, labels map[string]string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{gaugeMetric(v, labels)},
	}
}

func gaugeMetric(v float64, labels map[string]string) *dto.Metric {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: proto.Float64(v)}}
	for _, k := range sortedKeys(labels) {
		m.Label = append(m.Label, &dto.LabelPair{Name: proto.String(k), Value: proto.String(labels[k])})
	}
	return m
}

// metricName prefixes s with the namespace and replaces characters that are
// not valid in a metric name.
func metricName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
	return namespace + "_" + s
}

func sortFamilies(fams []*dto.MetricFamily) []*dto.MetricFamily {
	sort.SliceStable(fams, func(i, j int) bool { return fams[i].GetName() < fams[j].GetName() })
	return fams
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
