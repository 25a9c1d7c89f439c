// Package config turns layered defaults, CLI flags and Puppet's own settings
// into the immutable Config every probe reads.
//
// Layering, lowest to highest precedence:
//   - built-in defaults (35/70 minute thresholds, production, 10s timeout)
//   - the YAML defaults file (/etc/check_puppet.yaml or $CHECK_PUPPET_DEFAULTS_FILE)
//   - the dotenv file (/etc/default/check_puppet or $CHECK_PUPPET_ENV_FILE);
//     it never overrides variables that are already set
//   - CHECK_PUPPET_* environment variables
//   - CLI flags, whose defaults are the result of the layers above
//
// Resolve then validates thresholds, checks the puppet.conf file and fills
// the lock file, state file and baseline environment from
// `puppet config print`. Every failure is a types.UnknownError.
package config
