// Package buildinfo holds build-time metadata injected through -ldflags,
// kept apart from user configuration.
package buildinfo

import "fmt"

// UnknownValue is reported for metadata the build did not set.
const UnknownValue = "unknown"

// Context contains build-time metadata that is not user-configurable.
type Context struct {
	version   string
	commit    string
	buildDate string
}

// NewContext creates a Context. Empty values are reported as UnknownValue.
func NewContext(version, commit, buildDate string) *Context {
	return &Context{version: version, commit: commit, buildDate: buildDate}
}

// Version returns the release version, e.g. v1.4.0.
func (c *Context) Version() string {
	if c == nil {
		return UnknownValue
	}
	return orUnknown(c.version)
}

// Commit returns the VCS revision the binary was built from.
func (c *Context) Commit() string {
	if c == nil {
		return UnknownValue
	}
	return orUnknown(c.commit)
}

// BuildDate returns the build timestamp.
func (c *Context) BuildDate() string {
	if c == nil {
		return UnknownValue
	}
	return orUnknown(c.buildDate)
}

// String renders the metadata for the version command.
func (c *Context) String() string {
	return fmt.Sprintf("drivesync %s (commit %s, built %s)", c.Version(), c.Commit(), c.BuildDate())
}

func orUnknown(s string) string {
	if s == "" {
		return UnknownValue
	}
	return s
}
