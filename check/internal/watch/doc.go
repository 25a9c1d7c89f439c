// Package watch re-runs an evaluation on a cron schedule and whenever one of
// the watched files changes.
//
// Triggers from both sources are coalesced: while an evaluation runs at most
// one further evaluation is queued, and evaluations never overlap. Parent
// directories are watched rather than the files themselves so that atomic
// renames and the creation or removal of a lock file are seen.
package watch
