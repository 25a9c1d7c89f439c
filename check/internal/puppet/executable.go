package puppet

import "os"

// Executables are the agent binaries in priority order: the all-in-one
// package location, the pre-2.6 daemon, then the distro package.
var Executables = []string{
	"/opt/puppetlabs/bin/puppet",
	"/usr/sbin/puppetd",
	"/usr/bin/puppet",
}

// FindExecutable returns the first candidate that exists.
func FindExecutable(candidates []string) (string, bool) {
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}
