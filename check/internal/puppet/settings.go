package puppet

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
)

// Puppet setting names read through `puppet config print`.
const (
	SettingLockfile    = "agent_disabled_lockfile"
	SettingStatefile   = "statefile"
	SettingEnvironment = "environment"
)

// Settings is the subset of Puppet's resolved configuration the check needs.
type Settings struct {
	Lockfile    string
	Statefile   string
	Environment string
}

// DefaultSettings are Puppet's compiled-in defaults for a non-AIO install.
// They apply when the settings resolver cannot be run.
var DefaultSettings = Settings{
	Lockfile:    "/var/lib/puppet/state/agent_disabled.lock",
	Statefile:   "/var/lib/puppet/state/state.yaml",
	Environment: "production",
}

// WithDefaults fills every empty field of s from d.
func (s Settings) WithDefaults(d Settings) Settings {
	if s.Lockfile == "" {
		s.Lockfile = d.Lockfile
	}
	if s.Statefile == "" {
		s.Statefile = d.Statefile
	}
	if s.Environment == "" {
		s.Environment = d.Environment
	}
	return s
}

// ResolveSettings asks the agent executable for its effective [agent]
// settings as read from confPath.
func ResolveSettings(ctx context.Context, r Runner, exe, confPath string) (Settings, error) {
	cmd := Command{
		Path: exe,
		Args: []string{
			"config", "print",
			SettingLockfile, SettingStatefile, SettingEnvironment,
			"--section", "agent",
			"--config", confPath,
		},
	}
	out, err := r.Output(ctx, cmd)
	if err != nil {
		return Settings{}, fmt.Errorf("settings: %w", err)
	}

	vals := parseSettings(out)
	s := Settings{
		Lockfile:    vals[SettingLockfile],
		Statefile:   vals[SettingStatefile],
		Environment: vals[SettingEnvironment],
	}
	if s == (Settings{}) {
		return Settings{}, fmt.Errorf("settings: no values in output of '%s'", cmd)
	}
	return s, nil
}

// parseSettings reads "name = value" lines. Lines without '=' are ignored.
func parseSettings(out []byte) map[string]string {
	vals := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		name, value, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		vals[name] = strings.TrimSpace(value)
	}
	return vals
}
