package report

import (
	"fmt"
	"io"

	"github.com/obsidianstack/puppetcheck/check/internal/compute"
	"github.com/obsidianstack/puppetcheck/pkg/types"
)

// Prefix starts every status line.
const Prefix = "PUPPET"

// Line formats "PUPPET <SEVERITY>: <msg>".
func Line(sev types.Severity, msg string) string {
	return fmt.Sprintf("%s %s: %s", Prefix, sev, msg)
}

// Write prints the status line and returns the exit code for sev.
func Write(w io.Writer, sev types.Severity, msg string) int {
	fmt.Fprintln(w, Line(sev, msg))
	return sev.ExitCode()
}

// Result reports an aggregated evaluation.
func Result(w io.Writer, agg *compute.Aggregated) int {
	return Write(w, agg.Severity, agg.Message())
}

// ErrorMessage is the UNKNOWN message shown for err.
func ErrorMessage(err error) string {
	if ue, ok := types.AsUnknown(err); ok {
		return ue.Msg
	}
	return "code error: " + err.Error()
}

// Error reports err as UNKNOWN.
func Error(w io.Writer, err error) int {
	return Write(w, types.Unknown, ErrorMessage(err))
}

// Panic reports a recovered panic value as UNKNOWN.
func Panic(w io.Writer, r any) int {
	return Write(w, types.Unknown, fmt.Sprintf("code error: %v", r))
}
