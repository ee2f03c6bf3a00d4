package mapping

import (
	"errors"
	"fmt"
)

var (
	ErrNotNullable  = errors.New("field is not nullable")
	ErrUnknownField = errors.New("unknown entity field")
	ErrFieldType    = errors.New("incompatible field type")
	ErrNilEntity    = errors.New("entity is nil")
)

// PlanError reports a mapping that cannot be compiled for the given types.
type PlanError struct {
	From, To string
	Field    string
	Reason   string
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("mapping %s -> %s: field %s: %s", e.From, e.To, e.Field, e.Reason)
}
