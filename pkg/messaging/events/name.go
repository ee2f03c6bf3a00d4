package events

import (
	"fmt"
	"regexp"
)

// Name identifies an event type, e.g. "merchant.created".
type Name string

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)+$`)

func (n Name) String() string { return string(n) }

// Validate reports whether n is a dotted, lower-case name with at least two segments.
func (n Name) Validate() error {
	if !namePattern.MatchString(string(n)) {
		return fmt.Errorf("invalid event name %q: expected lower-case dotted segments like \"merchant.created\"", string(n))
	}
	return nil
}

type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

func (d Direction) Validate() error {
	switch d {
	case Inbound, Outbound:
		return nil
	default:
		return fmt.Errorf("invalid direction %q: must be %q or %q", string(d), Inbound, Outbound)
	}
}

// ExtraFieldPolicy controls how payload fields unknown to the schema are treated.
type ExtraFieldPolicy string

const (
	Strict  ExtraFieldPolicy = "strict"
	Lenient ExtraFieldPolicy = "lenient"
)

func (p ExtraFieldPolicy) Validate() error {
	switch p {
	case Strict, Lenient:
		return nil
	default:
		return fmt.Errorf("invalid extra-field policy %q: must be %q or %q", string(p), Strict, Lenient)
	}
}
