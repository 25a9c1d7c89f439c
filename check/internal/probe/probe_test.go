package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/obsidianstack/puppetcheck/check/internal/config"
	"github.com/obsidianstack/puppetcheck/check/internal/puppet"
	"github.com/obsidianstack/puppetcheck/pkg/types"
)

// baseTime is a fixed reference point so every age is deterministic.
var baseTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// fakeRunner answers --version and facter invocations with canned output.
type fakeRunner struct {
	version    string
	versionErr error
	facter     string
	facterErr  error
}

func (f *fakeRunner) Output(_ context.Context, cmd puppet.Command) ([]byte, error) {
	if cmd.Path == "facter" {
		return []byte(f.facter), f.facterErr
	}
	return []byte(f.version), f.versionErr
}

type fakeLister struct {
	cmdlines []string
	err      error
}

func (f fakeLister) CommandLines() ([]string, error) { return f.cmdlines, f.err }

func noEnv(string) string { return "" }

// --- Process ---

func TestProcessProbe_Counts(t *testing.T) {
	tests := []struct {
		name     string
		cmdlines []string
		want     types.Severity
		wantMsg  string
	}{
		{
			name:     "none running",
			cmdlines: []string{"/usr/sbin/sshd -D", "/sbin/init"},
			want:     types.Critical,
			wantMsg:  "'puppetd/puppet agent' PROCESS NOT RUNNING",
		},
		{
			name:     "one agent",
			cmdlines: []string{"/usr/bin/ruby /usr/bin/puppet agent", "/usr/sbin/sshd -D"},
			want:     types.OK,
			wantMsg:  "1 'puppetd/puppet agent' process running",
		},
		{
			name:     "two during upgrade",
			cmdlines: []string{"/usr/bin/ruby /usr/sbin/puppetd", "/opt/puppetlabs/puppet/bin/ruby /opt/puppetlabs/puppet/bin/puppet agent --no-daemonize"},
			want:     types.OK,
			wantMsg:  "2 'puppetd/puppet agent' processes running",
		},
		{
			name:     "three",
			cmdlines: []string{"puppet agent", "puppet agent", "puppetd"},
			want:     types.Warning,
			wantMsg:  "3 'puppetd/puppet agent' PROCESSES RUNNING",
		},
		{
			name:     "puppet apply is not an agent",
			cmdlines: []string{"/usr/bin/puppet apply site.pp"},
			want:     types.Critical,
			wantMsg:  "'puppetd/puppet agent' PROCESS NOT RUNNING",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &processProbe{lister: fakeLister{cmdlines: tc.cmdlines}}
			res, err := p.Probe(context.Background())
			if err != nil {
				t.Fatalf("Probe() error = %v", err)
			}
			if res.Severity != tc.want || res.Message != tc.wantMsg {
				t.Errorf("got (%v, %q), want (%v, %q)", res.Severity, res.Message, tc.want, tc.wantMsg)
			}
		})
	}
}

func TestProcessProbe_ListError(t *testing.T) {
	p := &processProbe{lister: fakeLister{err: errors.New("permission denied")}}
	_, err := p.Probe(context.Background())
	if _, ok := types.AsUnknown(err); !ok {
		t.Fatalf("error = %v, want UnknownError", err)
	}
}

func TestClassifyProcesses_Negative(t *testing.T) {
	if _, err := classifyProcesses(-1); err == nil {
		t.Fatal("expected error for negative count")
	}
}

// --- LastRun ---

func TestClassifyAge(t *testing.T) {
	const w, c = 35 * 60, 70 * 60
	tests := []struct {
		name string
		age  int64
		want types.Severity
	}{
		{"fresh", 10, types.OK},
		{"at warning", w, types.OK},
		{"past warning", w + 1, types.Warning},
		{"at critical", c, types.Warning},
		{"past critical", c + 1, types.Critical},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := classifyAge(tc.age, w, c)
			if res.Severity != tc.want {
				t.Errorf("classifyAge(%d) = %v, want %v", tc.age, res.Severity, tc.want)
			}
			if !strings.HasSuffix(res.Message, "(w=2100/c=4200)") {
				t.Errorf("message %q missing thresholds", res.Message)
			}
		})
	}
}

func TestClassifyAge_CriticalEqualsWarning(t *testing.T) {
	// Equal thresholds: equality is OK, one second more is CRITICAL.
	if got := classifyAge(600, 600, 600).Severity; got != types.OK {
		t.Errorf("age == thresholds: got %v, want OK", got)
	}
	if got := classifyAge(601, 600, 600).Severity; got != types.Critical {
		t.Errorf("age > thresholds: got %v, want CRITICAL", got)
	}
}

func TestLastRunProbe_Messages(t *testing.T) {
	state := filepath.Join(t.TempDir(), "state.yaml")
	writeFile(t, state, "---\n")
	if err := os.Chtimes(state, baseTime, baseTime.Add(-100*time.Second)); err != nil {
		t.Fatal(err)
	}

	p := &lastRunProbe{path: state, warning: 60, critical: 120, now: func() time.Time { return baseTime }}
	res, err := p.Probe(context.Background())
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if res.Severity != types.Warning {
		t.Errorf("Severity = %v, want WARNING", res.Severity)
	}
	if res.Message != "STATE FILE 100 SECONDS OLD (w=60/c=120)" {
		t.Errorf("Message = %q", res.Message)
	}
	if len(res.Perf) != 1 || res.Perf[0].String() != "state_file_age=100s;60;120" {
		t.Errorf("Perf = %v", res.Perf)
	}
}

func TestLastRunProbe_OKMessage(t *testing.T) {
	state := filepath.Join(t.TempDir(), "state.yaml")
	writeFile(t, state, "---\n")
	if err := os.Chtimes(state, baseTime, baseTime.Add(-90*time.Second)); err != nil {
		t.Fatal(err)
	}
	p := &lastRunProbe{path: state, warning: 2100, critical: 4200, now: func() time.Time { return baseTime }}
	res, err := p.Probe(context.Background())
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if res.Message != "state file last updated 90 seconds ago (w=2100/c=4200)" {
		t.Errorf("Message = %q", res.Message)
	}
}

func TestLastRunProbe_MissingStateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	p := &lastRunProbe{path: path, warning: 60, critical: 120, now: time.Now}
	_, err := p.Probe(context.Background())
	ue, ok := types.AsUnknown(err)
	if !ok {
		t.Fatalf("error = %v, want UnknownError", err)
	}
	if ue.Msg != "failed to get mtime of state file '"+path+"'" {
		t.Errorf("Msg = %q", ue.Msg)
	}
}

// --- Enabled ---

func TestEnabledProbe(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content *string
		want    types.Severity
		wantMsg string
	}{
		{"absent", nil, types.OK, "puppet runs enabled"},
		{"empty lock", strPtr(""), types.Critical, "PUPPET RUNS DISABLED"},
		{"legacy pid lock", strPtr("12345\n"), types.Critical, "PUPPET RUNS DISABLED"},
		{"json reason", strPtr(`{"disabled_message":"kernel upgrade CHG-42"}`), types.Critical, "PUPPET RUNS DISABLED (reason: kernel upgrade CHG-42)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tc.name, " ", "_")+".lock")
			if tc.content != nil {
				writeFile(t, path, *tc.content)
			}
			res, err := (&enabledProbe{path: path}).Probe(context.Background())
			if err != nil {
				t.Fatalf("Probe() error = %v", err)
			}
			if res.Severity != tc.want || res.Message != tc.wantMsg {
				t.Errorf("got (%v, %q), want (%v, %q)", res.Severity, res.Message, tc.want, tc.wantMsg)
			}
		})
	}
}

// --- Version ---

func TestVersionProbe(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		expected string
		want     types.Severity
		wantMsg  string
	}{
		{"no expectation", "6.4.2\n", "", types.OK, "puppet version 6.4.2"},
		{"matches", "6.4.2\n", "6.4.2", types.OK, "puppet version 6.4.2"},
		{"mismatch", "6.4.2\n", "6.4.3", types.Critical, "PUPPET VERSION 6.4.2 (expected '6.4.3')"},
		{"only first line", "3.8.7\nWarning: deprecated\n", "", types.OK, "puppet version 3.8.7"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &versionProbe{exe: "/usr/bin/puppet", expected: tc.expected, runner: &fakeRunner{version: tc.output}}
			res, err := p.Probe(context.Background())
			if err != nil {
				t.Fatalf("Probe() error = %v", err)
			}
			if res.Severity != tc.want || res.Message != tc.wantMsg {
				t.Errorf("got (%v, %q), want (%v, %q)", res.Severity, res.Message, tc.want, tc.wantMsg)
			}
		})
	}
}

func TestVersionProbe_Fatal(t *testing.T) {
	tests := []struct {
		name    string
		probe   *versionProbe
		wantMsg string
	}{
		{
			name:    "garbled version",
			probe:   &versionProbe{exe: "/usr/bin/puppet", runner: &fakeRunner{version: "latest\n"}},
			wantMsg: "version retrieved from '/usr/bin/puppet --version' did not match expected regex (returned 'latest')",
		},
		{
			name:    "single number",
			probe:   &versionProbe{exe: "/usr/bin/puppet", runner: &fakeRunner{version: "6\n"}},
			wantMsg: "version retrieved from '/usr/bin/puppet --version' did not match expected regex (returned '6')",
		},
		{
			name:    "no executable",
			probe:   &versionProbe{runner: &fakeRunner{}},
			wantMsg: "failed to find puppet command to test version",
		},
		{
			name:    "command fails",
			probe:   &versionProbe{exe: "/usr/bin/puppet", runner: &fakeRunner{versionErr: errors.New("exit status 1")}},
			wantMsg: "failed to run '/usr/bin/puppet --version'",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.probe.Probe(context.Background())
			ue, ok := types.AsUnknown(err)
			if !ok {
				t.Fatalf("error = %v, want UnknownError", err)
			}
			if ue.Msg != tc.wantMsg {
				t.Errorf("Msg = %q, want %q", ue.Msg, tc.wantMsg)
			}
		})
	}
}

// --- Environment ---

func TestEnvironmentProbe_Precedence(t *testing.T) {
	agentConf := "[main]\nlogdir = /var/log/puppet\n[agent]\nenvironment = staging\n"
	tests := []struct {
		name    string
		conf    string
		facter  string
		factErr error
		envVar  string
		want    string
	}{
		{"setting only", "[main]\nserver = puppet\n", "", errors.New("not found"), "", "production"},
		{"conf overrides setting", agentConf, "", errors.New("not found"), "", "staging"},
		{"facter overrides conf", agentConf, "environment: qa\n", nil, "", "qa"},
		{"env var when facter empty", agentConf, "environment: ~\n", nil, "uat", "uat"},
		{"facter beats env var", agentConf, "environment: qa\n", nil, "uat", "qa"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conf := filepath.Join(t.TempDir(), "puppet.conf")
			writeFile(t, conf, tc.conf)
			p := &environmentProbe{
				confPath: conf,
				baseline: "production",
				expected: "production",
				runner:   &fakeRunner{facter: tc.facter, facterErr: tc.factErr},
				getenv: func(k string) string {
					if k == puppet.FacterEnvVar {
						return tc.envVar
					}
					return ""
				},
			}
			res, err := p.Probe(context.Background())
			if err != nil {
				t.Fatalf("Probe() error = %v", err)
			}
			if got := res.Labels["environment"]; got != tc.want {
				t.Errorf("environment = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestEnvironmentProbe_DriftIsWarning(t *testing.T) {
	conf := filepath.Join(t.TempDir(), "puppet.conf")
	writeFile(t, conf, "[agent]\nenvironment = staging\n")
	p := &environmentProbe{
		confPath: conf,
		baseline: "production",
		expected: "production",
		runner:   &fakeRunner{facterErr: errors.New("executable file not found")},
		getenv:   noEnv,
	}
	res, err := p.Probe(context.Background())
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if res.Severity != types.Warning {
		t.Errorf("Severity = %v, want WARNING", res.Severity)
	}
	if !strings.Contains(res.Message, "staging") || !strings.Contains(res.Message, "production") {
		t.Errorf("Message = %q, want both environments", res.Message)
	}
}

func TestEnvironmentProbe_Match(t *testing.T) {
	res := classifyEnvironment("production", "production")
	if res.Severity != types.OK || res.Message != "environment 'production'" {
		t.Errorf("got (%v, %q)", res.Severity, res.Message)
	}
}

// --- All ---

func TestAll_Order(t *testing.T) {
	cfg := &config.Config{WarningMinutes: 35, CriticalMinutes: 70}
	probes := All(cfg, Deps{})
	want := []string{NameProcess, NameLastRun, NameEnabled, NameVersion, NameEnvironment}
	if len(probes) != len(want) {
		t.Fatalf("All() returned %d probes, want %d", len(probes), len(want))
	}
	for i, p := range probes {
		if p.Name() != want[i] {
			t.Errorf("probe %d = %q, want %q", i, p.Name(), want[i])
		}
	}
}

func strPtr(s string) *string { return &s }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
