package puppet

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/grafana/regexp"
)

// maxConfLine is the longest puppet.conf line the scan accepts.
const maxConfLine = 1 << 20

var (
	agentSectionRe = regexp.MustCompile(`^\s*\[\s*(?:agent|puppetd)\s*\]\s*$`)
	sectionRe      = regexp.MustCompile(`^\s*\[[^\]]*\]\s*$`)
	environmentRe  = regexp.MustCompile(`^\s*environment\s*=\s*(.+?)\s*$`)
)

// ConfEnvironment returns the environment assigned in the [agent] (or legacy
// [puppetd]) section of the puppet.conf at path. ok is false when the section
// or the assignment is absent.
func ConfEnvironment(path string) (env string, ok bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", false, fmt.Errorf("conf: %w", err)
	}
	defer f.Close()
	return ScanEnvironment(f)
}

// ScanEnvironment scans to the first agent section header, then returns the
// first environment assignment before the next section header.
func ScanEnvironment(r io.Reader) (string, bool, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxConfLine)
	inAgent := false
	for sc.Scan() {
		line := sc.Text()
		if !inAgent {
			inAgent = agentSectionRe.MatchString(line)
			continue
		}
		if sectionRe.MatchString(line) {
			break
		}
		if m := environmentRe.FindStringSubmatch(line); m != nil {
			return m[1], true, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", false, fmt.Errorf("conf: scan: %w", err)
	}
	return "", false, nil
}
