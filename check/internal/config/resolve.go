package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/obsidianstack/puppetcheck/check/internal/puppet"
	"github.com/obsidianstack/puppetcheck/pkg/types"
)

// Resolver turns Options into a Config, consulting Puppet's settings for
// anything the options leave unset.
type Resolver struct {
	Runner      puppet.Runner
	Executables []string
}

// Resolve validates opts and returns the Config. It fails with a
// types.UnknownError before any probe runs when the puppet.conf file is
// unusable or thresholds are invalid, checked in that order.
func (r *Resolver) Resolve(ctx context.Context, opts Options) (*Config, error) {
	if err := checkConfFile(opts.ConfPath); err != nil {
		return nil, err
	}
	if err := validateThresholds(opts.Warning, opts.Critical); err != nil {
		return nil, err
	}

	cfg := &Config{
		ConfPath:        opts.ConfPath,
		Environment:     opts.Environment,
		WarningMinutes:  opts.Warning,
		CriticalMinutes: opts.Critical,
		Lockfile:        opts.Lockfile,
		Statefile:       opts.Statefile,
		ExpectedVersion: opts.Version,
		Verbosity:       opts.Verbosity,
		Timeout:         opts.Timeout,
		Textfile:        opts.Textfile,
		Watch:           opts.Watch,
		Interval:        opts.Interval,
		GRPCHealthAddr:  opts.GRPCHealthAddr,
	}

	settings := r.settings(ctx, cfg)
	if cfg.Lockfile == "" {
		cfg.Lockfile = settings.Lockfile
	}
	if cfg.Statefile == "" {
		cfg.Statefile = settings.Statefile
	}
	cfg.SettingsEnvironment = settings.Environment

	slog.Info("config: resolved",
		"conf", cfg.ConfPath,
		"lockfile", cfg.Lockfile,
		"statefile", cfg.Statefile,
		"executable", cfg.PuppetExecutable,
		"warning_min", cfg.WarningMinutes,
		"critical_min", cfg.CriticalMinutes,
	)
	return cfg, nil
}

// settings locates the agent executable and queries its settings, falling
// back to Puppet's built-in defaults when that is impossible.
func (r *Resolver) settings(ctx context.Context, cfg *Config) puppet.Settings {
	exe, ok := puppet.FindExecutable(r.Executables)
	if !ok {
		slog.Warn("config: no puppet executable found, using built-in settings",
			"candidates", r.Executables)
		return puppet.DefaultSettings
	}
	cfg.PuppetExecutable = exe

	s, err := puppet.ResolveSettings(ctx, r.Runner, exe, cfg.ConfPath)
	if err != nil {
		slog.Warn("config: settings resolver failed, using built-in settings", "err", err)
		return puppet.DefaultSettings
	}
	return s.WithDefaults(puppet.DefaultSettings)
}

func validateThresholds(warning, critical int) error {
	switch {
	case warning < 1:
		return types.Unknownf("warning threshold must be greater than 0!")
	case critical < 1:
		return types.Unknownf("critical threshold must be greater than 0!")
	case warning > critical:
		return types.Unknownf("warning threshold cannot be higher than critical threshold!")
	}
	return nil
}

// checkConfFile rejects a puppet.conf that is missing, not a regular file,
// unreadable or empty.
func checkConfFile(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.Unknownf("cannot find puppet conf file '%s'", path)
		}
		return types.WrapUnknown(err, fmt.Sprintf("cannot read puppet conf file '%s'", path))
	}
	if !fi.Mode().IsRegular() {
		return types.Unknownf("puppet conf file '%s' is not a regular file!", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return types.WrapUnknown(err, fmt.Sprintf("cannot read puppet conf file '%s'", path))
	}
	f.Close()
	if fi.Size() == 0 {
		return types.Unknownf("puppet conf file '%s' is empty!", path)
	}
	return nil
}
