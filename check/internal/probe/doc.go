// Package probe implements the five fact-gathering checks. Each Probe
// queries one external fact and classifies it as OK, WARNING or CRITICAL.
//
// A probe that cannot determine its fact returns a types.UnknownError
// instead of a Result; the aggregator aborts the whole run on it.
//
// All returns the probes in the fixed order the aggregator folds them:
// process, lastrun, enabled, version, environment.
package probe
