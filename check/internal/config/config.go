package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/obsidianstack/puppetcheck/check/internal/puppet"
)

// Default values applied when no layer sets a field.
const (
	DefaultEnvironment = "production"
	DefaultWarning     = 35 // minutes
	DefaultCritical    = 70 // minutes
	DefaultInterval    = "@every 1m"
	DefaultTimeout     = puppet.DefaultTimeout

	DefaultDefaultsFile = "/etc/check_puppet.yaml"
	DefaultEnvFile      = "/etc/default/check_puppet"
)

// Environment variables naming alternative defaults files.
const (
	defaultsFileEnv = "CHECK_PUPPET_DEFAULTS_FILE"
	envFileEnv      = "CHECK_PUPPET_ENV_FILE"
	envPrefix       = "check_puppet"
)

// ConfPaths are the puppet.conf locations tried, in order, when no config
// path is given. The last entry is used when none exists.
var ConfPaths = []string{
	"/etc/puppetlabs/puppet/puppet.conf",
	"/etc/puppet/puppet.conf",
}

// Options are the unresolved settings. Fields map 1:1 to CLI flags, keys of
// the YAML defaults file and CHECK_PUPPET_* variables.
type Options struct {
	ConfPath    string `yaml:"config" envconfig:"CONFIG"`
	Environment string `yaml:"environment" envconfig:"ENVIRONMENT"`

	// Warning and Critical are last-run age thresholds in minutes.
	Warning  int `yaml:"warning" envconfig:"WARNING"`
	Critical int `yaml:"critical" envconfig:"CRITICAL"`

	// Lockfile and Statefile default to Puppet's own settings when empty.
	Lockfile  string `yaml:"lockfile" envconfig:"LOCKFILE"`
	Statefile string `yaml:"statefile" envconfig:"STATEFILE"`

	// Version is the expected agent version; empty accepts any.
	Version string `yaml:"version" envconfig:"VERSION"`

	Verbosity int `yaml:"-" ignored:"true"`

	// Timeout bounds every external command.
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`

	// Textfile is where Prometheus textfile metrics are written, if set.
	Textfile string `yaml:"textfile" envconfig:"TEXTFILE"`

	// Watch, Interval and GRPCHealthAddr configure the long-running mode.
	Watch          bool   `yaml:"watch" envconfig:"WATCH"`
	Interval       string `yaml:"interval" envconfig:"INTERVAL"`
	GRPCHealthAddr string `yaml:"grpc_health_addr" envconfig:"GRPC_HEALTH_ADDR"`
}

// Config is the resolved, read-only configuration handed to every probe.
type Config struct {
	ConfPath        string
	Environment     string
	WarningMinutes  int
	CriticalMinutes int
	Lockfile        string
	Statefile       string
	ExpectedVersion string
	Verbosity       int

	// SettingsEnvironment is the environment Puppet's settings resolver
	// reported. It is only the baseline of the environment probe.
	SettingsEnvironment string

	// PuppetExecutable is empty when no candidate executable exists.
	PuppetExecutable string

	Timeout        time.Duration
	Textfile       string
	Watch          bool
	Interval       string
	GRPCHealthAddr string
}

// WarningSeconds returns the warning threshold in seconds.
func (c *Config) WarningSeconds() int64 { return int64(c.WarningMinutes) * 60 }

// CriticalSeconds returns the critical threshold in seconds.
func (c *Config) CriticalSeconds() int64 { return int64(c.CriticalMinutes) * 60 }

// WatchPaths are the files whose changes trigger a re-evaluation in watch mode.
func (c *Config) WatchPaths() []string {
	return []string{c.Statefile, c.Lockfile, c.ConfPath}
}

// LoadDefaults builds Options from the built-in defaults, the YAML defaults
// file, the dotenv file and CHECK_PUPPET_* variables. The default file
// locations may be absent; locations named through the environment must exist.
func LoadDefaults() (Options, error) {
	yamlPath, yamlRequired := pathFromEnv(defaultsFileEnv, DefaultDefaultsFile)
	envPath, envRequired := pathFromEnv(envFileEnv, DefaultEnvFile)
	return loadDefaults(yamlPath, yamlRequired, envPath, envRequired)
}

func loadDefaults(yamlPath string, yamlRequired bool, envPath string, envRequired bool) (Options, error) {
	opts := defaults()

	if err := loadYAML(yamlPath, yamlRequired, &opts); err != nil {
		return opts, err
	}
	if err := loadEnvFile(envPath, envRequired); err != nil {
		return opts, err
	}
	if err := envconfig.Process(envPrefix, &opts); err != nil {
		return opts, fmt.Errorf("config: environment: %w", err)
	}
	return opts, nil
}

// defaults returns Options pre-populated with built-in values.
func defaults() Options {
	return Options{
		ConfPath:    defaultConfPath(ConfPaths),
		Environment: DefaultEnvironment,
		Warning:     DefaultWarning,
		Critical:    DefaultCritical,
		Timeout:     DefaultTimeout,
		Interval:    DefaultInterval,
	}
}

func defaultConfPath(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if len(paths) == 0 {
		return ""
	}
	return paths[len(paths)-1]
}

func pathFromEnv(name, fallback string) (path string, required bool) {
	if v := os.Getenv(name); v != "" {
		return v, true
	}
	return fallback, false
}

func loadYAML(path string, required bool, opts *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read defaults file: %w", err)
	}
	if err := yaml.Unmarshal(data, opts); err != nil {
		return fmt.Errorf("config: parse defaults file %s: %w", path, err)
	}
	return nil
}

// loadEnvFile exports the variables of a dotenv file that are not set yet.
func loadEnvFile(path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load env file %s: %w", path, err)
	}
	return nil
}
