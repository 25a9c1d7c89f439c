package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/obsidianstack/puppetcheck/check/internal/compute"
	"github.com/obsidianstack/puppetcheck/check/internal/config"
	"github.com/obsidianstack/puppetcheck/check/internal/health"
	"github.com/obsidianstack/puppetcheck/check/internal/probe"
	"github.com/obsidianstack/puppetcheck/check/internal/puppet"
	"github.com/obsidianstack/puppetcheck/check/internal/report"
	"github.com/obsidianstack/puppetcheck/check/internal/textfile"
	"github.com/obsidianstack/puppetcheck/check/internal/watch"
	"github.com/obsidianstack/puppetcheck/pkg/types"
)

func main() {
	c := &checker{
		stdout:      os.Stdout,
		executables: puppet.Executables,
		deps:        probe.DefaultDeps,
		now:         time.Now,
	}
	os.Exit(c.run(context.Background(), os.Args[1:]))
}

// checker holds the process-wide collaborators so tests can swap the host out.
type checker struct {
	stdout      io.Writer
	executables []string
	deps        func(timeout time.Duration) probe.Deps
	now         func() time.Time
}

// run is the single dispatcher: it is the only place that writes a status
// line for a fatal condition and picks the exit code.
func (c *checker) run(ctx context.Context, args []string) (code int) {
	defer func() {
		if r := recover(); r != nil {
			code = report.Panic(c.stdout, r)
		}
	}()

	defaults, err := config.LoadDefaults()
	if err != nil {
		return report.Error(c.stdout, types.WrapUnknown(err, "failed to load defaults: "+err.Error()))
	}
	opts, err := config.ParseFlags(args, defaults, c.stdout)
	if errors.Is(err, config.ErrHelp) {
		return types.Unknown.ExitCode()
	}
	if err != nil {
		return report.Error(c.stdout, types.WrapUnknown(err, "parsing error: "+err.Error()))
	}

	slog.SetDefault(newLogger(c.stdout, opts.Verbosity))
	slog.Info("check_puppet starting", "conf", opts.ConfPath, "watch", opts.Watch)

	if opts.Watch {
		return c.watch(ctx, opts)
	}
	return c.evaluate(ctx, opts).ExitCode()
}

// newLogger maps -v occurrences to a level. Without -v nothing but the
// status line reaches stdout.
func newLogger(w io.Writer, verbosity int) *slog.Logger {
	switch {
	case verbosity <= 0:
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	case verbosity == 1:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

func (c *checker) resolver(deps probe.Deps) *config.Resolver {
	return &config.Resolver{Runner: deps.Runner, Executables: c.executables}
}

// evaluate resolves opts, runs every probe, exports the textfile and prints
// the status line. Settings are resolved on every call so watch mode follows
// edits to puppet.conf.
func (c *checker) evaluate(ctx context.Context, opts config.Options) types.Severity {
	deps := c.deps(opts.Timeout)

	var agg *compute.Aggregated
	cfg, err := c.resolver(deps).Resolve(ctx, opts)
	if err == nil {
		agg, err = compute.Run(ctx, probe.All(cfg, deps))
	}
	if ctx.Err() != nil {
		slog.Info("evaluation interrupted")
		return types.Unknown
	}

	if opts.Textfile != "" {
		if werr := textfile.Write(opts.Textfile, textfile.Families(agg, err, c.now())); werr != nil {
			slog.Error("textfile export failed", "path", opts.Textfile, "err", werr)
		}
	}

	if err != nil {
		report.Error(c.stdout, err)
		return types.Unknown
	}
	report.Result(c.stdout, agg)
	return agg.Severity
}

// watch keeps evaluating until SIGINT or SIGTERM. Configuration errors found
// before the first evaluation are fatal; later ones are reported per line.
func (c *checker) watch(ctx context.Context, opts config.Options) int {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := watch.ParseSchedule(opts.Interval); err != nil {
		return report.Error(c.stdout, types.WrapUnknown(err, err.Error()))
	}
	cfg, err := c.resolver(c.deps(opts.Timeout)).Resolve(ctx, opts)
	if err != nil {
		return report.Error(c.stdout, err)
	}

	var hs *health.Server
	if opts.GRPCHealthAddr != "" {
		lis, err := net.Listen("tcp", opts.GRPCHealthAddr)
		if err != nil {
			return report.Error(c.stdout, types.WrapUnknown(err,
				fmt.Sprintf("cannot listen on '%s': %v", opts.GRPCHealthAddr, err)))
		}
		hs = health.New()
		go func() {
			if err := hs.Serve(lis); err != nil {
				slog.Error("gRPC health server stopped", "err", err)
			}
		}()
		defer hs.Stop()
	}

	w := &watch.Watcher{
		Schedule: opts.Interval,
		Paths:    cfg.WatchPaths(),
		Eval: func(ctx context.Context) {
			sev := c.evaluate(ctx, opts)
			if hs != nil && ctx.Err() == nil {
				hs.Update(sev)
			}
		},
	}
	if err := w.Run(ctx); err != nil {
		return report.Error(c.stdout, types.WrapUnknown(err, err.Error()))
	}
	slog.Info("check_puppet shutting down")
	return types.OK.ExitCode()
}
