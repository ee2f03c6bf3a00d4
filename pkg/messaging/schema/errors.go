package schema

import (
	"fmt"
	"strings"

	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
)

// Violation is one payload problem, addressed by a dotted field path.
type Violation struct {
	Path    string
	Message string
}

func (v Violation) String() string {
	if v.Path == "" {
		return v.Message
	}
	return v.Path + ": " + v.Message
}

// SchemaViolationError reports a payload that does not match its schema.
type SchemaViolationError struct {
	Name       events.Name
	Version    int
	Violations []Violation
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("event %s v%d violates schema: %s", e.Name, e.Version, joinViolations(e.Violations))
}

func joinViolations(violations []Violation) string {
	parts := make([]string, len(violations))
	for i, v := range violations {
		parts[i] = v.String()
	}
	return strings.Join(parts, "; ")
}

// SchemaVersionError reports a producer version the local consumer cannot read.
type SchemaVersionError struct {
	Name     events.Name
	Consumer int
	Producer int
	Reason   string
}

func (e *SchemaVersionError) Error() string {
	return fmt.Sprintf("event %s: consumer v%d cannot accept producer v%d: %s", e.Name, e.Consumer, e.Producer, e.Reason)
}
