package probe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/obsidianstack/puppetcheck/check/internal/puppet"
	"github.com/obsidianstack/puppetcheck/pkg/types"
)

type environmentProbe struct {
	confPath string
	baseline string
	expected string
	runner   puppet.Runner
	getenv   func(string) string
}

func (p *environmentProbe) Name() string { return NameEnvironment }

// Probe resolves the agent's environment and compares it with the expected
// one. Precedence, lowest first: Puppet's resolved setting, the [agent]
// section of puppet.conf, facter, then FACTER_environment when facter has
// nothing. The resolved setting can report production while the agent runs
// elsewhere, which is why the later sources exist.
func (p *environmentProbe) Probe(ctx context.Context) (Result, error) {
	env := p.baseline

	confEnv, ok, err := puppet.ConfEnvironment(p.confPath)
	if err != nil {
		return Result{}, types.WrapUnknown(err, fmt.Sprintf("cannot read puppet conf file '%s'", p.confPath))
	}
	if ok {
		env = confEnv
	}

	factEnv, err := puppet.FacterEnvironment(ctx, p.runner)
	if err != nil {
		slog.Debug("probe: facter unavailable", "err", err)
	}
	if factEnv != "" {
		env = factEnv
	} else if v := p.getenv(puppet.FacterEnvVar); v != "" {
		env = v
	}

	slog.Debug("probe: environment resolved",
		"setting", p.baseline, "conf", confEnv, "facter", factEnv, "result", env)
	return classifyEnvironment(env, p.expected), nil
}

// classifyEnvironment treats drift as advisory: WARNING, never CRITICAL.
func classifyEnvironment(env, expected string) Result {
	res := Result{
		Name:   NameEnvironment,
		Labels: map[string]string{"environment": env},
	}
	if env == expected {
		res.Severity = types.OK
		res.Message = fmt.Sprintf("environment '%s'", env)
		return res
	}
	res.Severity = types.Warning
	res.Message = fmt.Sprintf("ENVIRONMENT '%s' (expected '%s')", env, expected)
	return res
}
