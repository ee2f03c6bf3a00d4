package mongo

import "errors"

var (
	ErrEntityNotFound = errors.New("entity not found")

	// ErrOptimisticLocking is returned by Update when the stored version moved on.
	ErrOptimisticLocking = errors.New("optimistic locking conflict")
)
