// Package deps verifies that required external tools are installed.
package deps

import (
	"os/exec"

	"github.com/cockroachdb/errors"
)

// Checker verifies that required external commands are available.
type Checker struct {
	required []string
}

// NewChecker creates a checker for the given command names.
func NewChecker(names ...string) *Checker {
	return &Checker{required: names}
}

// Missing returns the names of required commands not found in PATH.
func (c *Checker) Missing() []string {
	var missing []string
	for _, name := range c.required {
		if _, err := exec.LookPath(name); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}

// CheckAll returns an error listing every missing command, or nil when
// all are available.
func (c *Checker) CheckAll() error {
	if missing := c.Missing(); len(missing) > 0 {
		return errors.Newf("missing dependencies: %v", missing)
	}
	return nil
}
