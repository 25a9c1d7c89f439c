package puppet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds each external command when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Command is one external program invocation.
type Command struct {
	Path string
	Args []string

	// Env is appended to the inherited environment.
	Env []string
}

// String renders the command the way it is shown in operator messages.
func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Runner executes a command and returns its standard output.
type Runner interface {
	Output(ctx context.Context, cmd Command) ([]byte, error)
}

// ExecRunner runs commands through os/exec, killing them after Timeout.
type ExecRunner struct {
	Timeout time.Duration
}

// Output runs cmd and returns its standard output. A command that does not
// finish within the timeout is killed and reported as an error.
func (r ExecRunner) Output(ctx context.Context, cmd Command) ([]byte, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.WaitDelay = time.Second
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	out, err := c.Output()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return out, fmt.Errorf("%s: timed out after %s", cmd, timeout)
	}
	if err != nil {
		return out, fmt.Errorf("%s: %w", cmd, err)
	}
	return out, nil
}
