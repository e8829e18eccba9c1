//go:generate go run golang.org/x/tools/cmd/stringer -type=Level -linecomment=true

package log

import (
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Level parametrizes supported log verbosity levels.
type Level int

const (
	// Debug messages trace individual timer transitions and protocol commands.
	Debug Level = iota // DEBUG
	// Info messages convey general events.
	Info // INFO
	// Warn messages describe non-erroring divergences from the ideal code path.
	Warn // WARN
	// Error messages indicate behavior that is not intended and should be corrected.
	Error // ERROR
)

var knownLevels = []Level{Debug, Info, Warn, Error}

// ParseLevel looks up a Level constant by its stringified (case-insensitive) representation.
// Unknown inputs resolve to Error, reported with a false second return value.
func ParseLevel(level string) (Level, bool) {
	for _, knownLevel := range knownLevels {
		if strings.EqualFold(strings.TrimSpace(level), knownLevel.String()) {
			return knownLevel, true
		}
	}

	return Error, false
}

// Enables indicates whether the current log level enables logging at another level.
//
// For example,
//	Debug enables Debug, Info, Warn, and Error
//	Info enables Warn and Error, but not Debug
//	Error enables Error, but not Debug, Info, or Warn
func (l Level) Enables(other Level) bool {
	return l <= other
}

// UnmarshalYAML allows a Level to be spelled by name in configuration files.
func (l *Level) UnmarshalYAML(node *yaml.Node) error {
	var name string
	if err := node.Decode(&name); err != nil {
		return errors.Wrap(err, "log: level must be a string")
	}

	level, ok := ParseLevel(name)
	if !ok {
		return errors.Errorf("log: unknown level: level=%s", name)
	}

	*l = level

	return nil
}
