package config

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"gopkg.in/alecthomas/kingpin.v2"
)

// AppName is the plugin name shown in usage output.
const AppName = "check_puppet"

// ErrHelp is returned by ParseFlags after usage was written for -h/--help.
var ErrHelp = errors.New("help requested")

const description = `Checks a Puppet agent and prints one Nagios status line:
1. 1 or 2 'puppetd' or 'puppet agent' processes are running
2. Puppet has run successfully recently (the state file has been updated)
3. Puppet runs are enabled
4. The puppet version installed
5. The puppet environment the system is in`

// ParseFlags parses args over defaults. Usage and help go to stdout.
func ParseFlags(args []string, defaults Options, stdout io.Writer) (Options, error) {
	opts := defaults
	helped := false

	app := kingpin.New(AppName, description).UsageWriter(stdout).ErrorWriter(stdout)
	app.Terminate(func(int) { helped = true })
	app.HelpFlag.Short('h')

	app.Flag("config", "The puppet.conf to read.").
		Short('C').Default(opts.ConfPath).StringVar(&opts.ConfPath)
	app.Flag("environment", "The puppet environment to expect.").
		Short('e').Default(opts.Environment).StringVar(&opts.Environment)
	app.Flag("warning", "Warning threshold for the state file age, in minutes.").
		Short('w').Default(strconv.Itoa(opts.Warning)).IntVar(&opts.Warning)
	app.Flag("critical", "Critical threshold for the state file age, in minutes.").
		Short('c').Default(strconv.Itoa(opts.Critical)).IntVar(&opts.Critical)
	app.Flag("lockfile", "The lock file. Default: uses puppet config / default.").
		Short('l').Default(opts.Lockfile).StringVar(&opts.Lockfile)
	app.Flag("statefile", "The state file. Default: uses puppet config / default.").
		Short('s').Default(opts.Statefile).StringVar(&opts.Statefile)
	app.Flag("version", "The puppet version to expect. Default: none.").
		Short('V').Default(opts.Version).StringVar(&opts.Version)
	app.Flag("verbose", "Verbose mode, repeat for debug output.").
		Short('v').CounterVar(&opts.Verbosity)
	app.Flag("timeout", "Timeout for each external command.").
		Short('t').Default(opts.Timeout.String()).DurationVar(&opts.Timeout)
	app.Flag("textfile", "Write Prometheus textfile collector metrics to this path.").
		Default(opts.Textfile).StringVar(&opts.Textfile)
	app.Flag("watch", "Keep running and re-check on schedule and on file changes.").
		Default(strconv.FormatBool(opts.Watch)).BoolVar(&opts.Watch)
	app.Flag("interval", "Watch mode schedule (cron spec or @every <duration>).").
		Default(opts.Interval).StringVar(&opts.Interval)
	app.Flag("grpc-health-addr", "Watch mode gRPC health service listen address.").
		Default(opts.GRPCHealthAddr).StringVar(&opts.GRPCHealthAddr)

	if _, err := app.Parse(attachAtValues(args, valueFlags(app))); err != nil {
		return opts, err
	}
	if helped {
		return opts, ErrHelp
	}
	return opts, nil
}

// valueFlags returns the long and short spellings of every flag that takes a
// value.
func valueFlags(app *kingpin.Application) map[string]bool {
	out := make(map[string]bool)
	for _, f := range app.Model().Flags {
		if f.IsBoolFlag() {
			continue
		}
		out["--"+f.Name] = true
		if f.Short != 0 {
			out["-"+string(f.Short)] = true
		}
	}
	return out
}

// attachAtValues joins "--flag @value" into "--flag=@value" and "-f @value"
// into "-f@value". kingpin reads a standalone argument starting with @ as a
// file of further arguments, which would swallow descriptors such as
// "@every 30s".
func attachAtValues(args []string, flags map[string]bool) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			return append(out, args[i:]...)
		}
		if flags[a] && i+1 < len(args) && strings.HasPrefix(args[i+1], "@") {
			if strings.HasPrefix(a, "--") {
				out = append(out, a+"="+args[i+1])
			} else {
				out = append(out, a+args[i+1])
			}
			i++
			continue
		}
		out = append(out, a)
	}
	return out
}
