package engine

import (
	"fmt"
	"strings"
)

// CircularDependencyError rejects a formula assignment that would close a
// loop in the dependency graph. Cycle holds the ordered node list (the first
// node depends on the last); Suggestion is a remediation hint suitable for
// surfacing to end users.
type CircularDependencyError struct {
	Cycle      []string
	Suggestion string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency: %s -> %s; %s",
		strings.Join(e.Cycle, " -> "), e.Cycle[0], e.Suggestion)
}

// cycleSuggestion is the standard remediation hint. Lagging one reference by
// a period is the usual fix for intentional feedback loops in financial
// models.
const cycleSuggestion = "introduce a lagged reference or an intermediate input metric to break the loop"

// ConfigurationError reports a misuse of the construction or input API: an
// unknown metric or dimension member, or an operation attempted before the
// horizon was initialized. It is fatal to the specific call only.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return e.Msg
}

func configErrorf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}
