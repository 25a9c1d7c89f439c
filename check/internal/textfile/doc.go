// Package textfile exports check results as a Prometheus text exposition
// for the node_exporter textfile collector.
//
// Families converts an evaluation (or the error that aborted it) into metric
// families. Write encodes them with expfmt and replaces the target file
// atomically so the collector never reads a partial file.
package textfile
