package probe

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/grafana/regexp"

	"github.com/obsidianstack/puppetcheck/check/internal/puppet"
	"github.com/obsidianstack/puppetcheck/pkg/types"
)

// versionRe accepts dot-separated non-negative integers with at least two parts.
var versionRe = regexp.MustCompile(`^\d+(\.\d+)+$`)

type versionProbe struct {
	exe      string
	expected string
	runner   puppet.Runner
}

func (p *versionProbe) Name() string { return NameVersion }

// Probe asks the agent executable for its version. A missing executable or a
// garbled answer is fatal rather than silently passing.
func (p *versionProbe) Probe(ctx context.Context) (Result, error) {
	if p.exe == "" {
		return Result{}, types.Unknownf("failed to find puppet command to test version")
	}
	cmd := puppet.Command{Path: p.exe, Args: []string{"--version"}}
	out, err := p.runner.Output(ctx, cmd)
	if err != nil {
		return Result{}, types.WrapUnknown(err, fmt.Sprintf("failed to run '%s'", cmd))
	}

	version := firstLine(out)
	if !versionRe.MatchString(version) {
		return Result{}, types.Unknownf("version retrieved from '%s' did not match expected regex (returned '%s')", cmd, version)
	}
	return classifyVersion(version, p.expected), nil
}

func classifyVersion(version, expected string) Result {
	res := Result{
		Name:   NameVersion,
		Labels: map[string]string{"version": version},
	}
	if expected == "" || version == expected {
		res.Severity = types.OK
		res.Message = "puppet version " + version
		return res
	}
	res.Severity = types.Critical
	res.Message = fmt.Sprintf("PUPPET VERSION %s (expected '%s')", version, expected)
	return res
}

func firstLine(out []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(out))
	if sc.Scan() {
		return strings.TrimSpace(sc.Text())
	}
	return ""
}
