package puppet

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FacterEnvVar overrides the environment fact when facter reports nothing.
const FacterEnvVar = "FACTER_environment"

// FacterRubyLib holds custom facts synced by the agent (pluginsync).
const FacterRubyLib = "/var/lib/puppet/lib"

// FacterEnvironment runs facter and returns its environment fact, or "" when
// the fact is not set.
func FacterEnvironment(ctx context.Context, r Runner) (string, error) {
	cmd := Command{
		Path: "facter",
		Args: []string{"--yaml", "environment"},
		Env:  []string{"RUBYLIB=" + rubyLib(os.Getenv("RUBYLIB"))},
	}
	out, err := r.Output(ctx, cmd)
	if err != nil {
		return "", fmt.Errorf("facter: %w", err)
	}
	return parseFacterYAML(out)
}

func rubyLib(current string) string {
	if current == "" {
		return FacterRubyLib
	}
	return current + ":" + FacterRubyLib
}

// parseFacterYAML extracts the environment key from `facter --yaml` output.
func parseFacterYAML(out []byte) (string, error) {
	var facts map[string]any
	if err := yaml.Unmarshal(out, &facts); err != nil {
		return "", fmt.Errorf("facter: parse yaml: %w", err)
	}
	v, ok := facts[SettingEnvironment]
	if !ok || v == nil {
		return "", nil
	}
	return strings.TrimSpace(fmt.Sprint(v)), nil
}
