// Package puppet wraps the external collaborators the check consumes: the
// agent executable, Puppet's own settings resolver (`puppet config print`),
// facter, the process table and the [agent] section of puppet.conf.
//
// Nothing here classifies results; it only gathers facts. External commands
// go through a Runner so every invocation is bounded by a timeout and tests
// can substitute canned output.
package puppet
