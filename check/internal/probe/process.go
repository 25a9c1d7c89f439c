package probe

import (
	"context"
	"fmt"
	"strings"

	"github.com/obsidianstack/puppetcheck/check/internal/puppet"
	"github.com/obsidianstack/puppetcheck/pkg/types"
)

// agentPatterns match the foreground daemon of Puppet < 2.6 and the
// `puppet agent` application of later releases.
var agentPatterns = []string{"puppetd", "puppet agent"}

const agentProcess = "'puppetd/puppet agent'"

type processProbe struct {
	lister puppet.ProcessLister
}

func (p *processProbe) Name() string { return NameProcess }

// Probe counts agent processes. Two are tolerated: an upgrade can leave the
// old daemon running next to the new one for a while.
func (p *processProbe) Probe(_ context.Context) (Result, error) {
	cmdlines, err := p.lister.CommandLines()
	if err != nil {
		return Result{}, types.WrapUnknown(err, "failed to list "+agentProcess+" processes")
	}
	return classifyProcesses(countAgents(cmdlines))
}

func countAgents(cmdlines []string) int {
	n := 0
	for _, c := range cmdlines {
		for _, pat := range agentPatterns {
			if strings.Contains(c, pat) {
				n++
				break
			}
		}
	}
	return n
}

func classifyProcesses(n int) (Result, error) {
	res := Result{
		Name:  NameProcess,
		Extra: map[string]float64{"agent_processes": float64(n)},
	}
	switch {
	case n == 0:
		res.Severity = types.Critical
		res.Message = agentProcess + " PROCESS NOT RUNNING"
	case n == 1:
		res.Severity = types.OK
		res.Message = "1 " + agentProcess + " process running"
	case n == 2:
		res.Severity = types.OK
		res.Message = "2 " + agentProcess + " processes running"
	case n > 2:
		res.Severity = types.Warning
		res.Message = fmt.Sprintf("%d %s PROCESSES RUNNING", n, agentProcess)
	default:
		return Result{}, types.Unknownf("code error determining the number of %s processes", agentProcess)
	}
	return res, nil
}
