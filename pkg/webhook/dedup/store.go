// Package dedup records which external events have already been taken on.
//
// A record is keyed by (source, external id) and owned by the id of the
// message that first claimed it. A claim by the same owner succeeds again, so
// a broker redelivery of that message is not mistaken for a duplicate.
package dedup

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidKey = errors.New("dedup key requires source and external id")

// Key identifies one external event.
type Key struct {
	Source     string
	ExternalID string
}

func (k Key) String() string {
	return k.Source + ":" + k.ExternalID
}

func (k Key) validate() error {
	if k.Source == "" || k.ExternalID == "" {
		return ErrInvalidKey
	}
	return nil
}

// Store performs atomic claims shared by every consumer replica.
type Store interface {
	// Claim records key for owner with the given TTL. It returns false when a
	// live record held by a different owner exists.
	Claim(ctx context.Context, key Key, owner string, ttl time.Duration) (bool, error)
}
