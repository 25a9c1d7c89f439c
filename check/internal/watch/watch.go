package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSchedule validates a five-field cron spec or a descriptor such as
// "@hourly" or "@every 30s".
func ParseSchedule(spec string) (cron.Schedule, error) {
	s, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("watch: invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// Watcher calls Eval once at start, then on every schedule tick and file
// change until its context is cancelled.
type Watcher struct {
	Schedule string
	Paths    []string
	Eval     func(ctx context.Context)
}

// Run blocks until ctx is cancelled and returns nil, or returns an error if
// the schedule is invalid or the file watcher cannot be created.
func (w *Watcher) Run(ctx context.Context) error {
	sched, err := ParseSchedule(w.Schedule)
	if err != nil {
		return err
	}

	triggers := make(chan string, 1)
	trigger := func(reason string) {
		select {
		case triggers <- reason:
		default: // one evaluation already pending
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create file watcher: %w", err)
	}
	defer fsw.Close()

	targets := targetSet(w.Paths)
	for _, dir := range watchDirs(w.Paths) {
		if err := fsw.Add(dir); err != nil {
			slog.Warn("watch: cannot watch directory, relying on schedule", "dir", dir, "err", err)
			continue
		}
		slog.Debug("watch: watching directory", "dir", dir)
	}

	c := cron.New(cron.WithParser(parser))
	c.Schedule(sched, cron.FuncJob(func() { trigger("schedule") }))
	c.Start()
	defer c.Stop()

	slog.Info("watch: started", "schedule", w.Schedule, "paths", w.Paths)
	w.Eval(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("watch: stopping")
			return nil

		case reason := <-triggers:
			slog.Debug("watch: evaluating", "trigger", reason)
			w.Eval(ctx)

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !targets[filepath.Clean(ev.Name)] {
				continue
			}
			slog.Debug("watch: file changed", "path", ev.Name, "op", ev.Op.String())
			trigger("file")

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Error("watch: file watcher error", "err", err)
		}
	}
}

func targetSet(paths []string) map[string]bool {
	out := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p != "" {
			out[filepath.Clean(p)] = true
		}
	}
	return out
}

// watchDirs returns the distinct parent directories of paths, in order.
func watchDirs(paths []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		d := filepath.Dir(filepath.Clean(p))
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	return dirs
}
