// Package report writes the single monitoring-plugin status line and maps
// severities to exit codes. It is the only place output and exit status are
// decided.
package report
