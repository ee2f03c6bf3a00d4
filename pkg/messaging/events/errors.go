package events

import (
	"errors"
	"fmt"
)

// ErrRegistrySealed is returned by Register once the registry has been sealed.
var ErrRegistrySealed = errors.New("event registry is sealed")

// DuplicateEventError reports a conflicting registration for an existing name and version.
type DuplicateEventError struct {
	Name    Name
	Version int
	Reason  string
}

func (e *DuplicateEventError) Error() string {
	return fmt.Sprintf("event %s v%d already registered: %s", e.Name, e.Version, e.Reason)
}

// NotFoundError reports an unknown event name or version.
type NotFoundError struct {
	Name Name
	// Version is zero when no version of the name is known.
	Version int
}

func (e *NotFoundError) Error() string {
	if e.Version == 0 {
		return fmt.Sprintf("event %s is not registered", e.Name)
	}
	return fmt.Sprintf("event %s v%d is not registered", e.Name, e.Version)
}

// IsNotFound reports whether err is, or wraps, a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
