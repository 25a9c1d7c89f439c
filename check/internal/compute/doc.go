// Package compute folds probe results into the single severity and status
// message a check run reports.
//
// Aggregate is pure: the worst severity wins under OK < WARNING < CRITICAL,
// messages keep probe order, and performance data follows a "|" separator.
// Run executes probes in order and stops at the first fatal error, which the
// caller reports as UNKNOWN.
package compute
