package outbox

import (
	"time"
)

const (
	StatusProcessing = "PROCESSING"
	StatusSent       = "SENT"
)

// entry is one stored envelope waiting to be relayed to the stream.
type entry struct {
	ID string `bson:"_id"`
	// Event is kept next to the encoded envelope for querying.
	Event            string            `bson:"event"`
	Envelope         []byte            `bson:"envelope"`
	Headers          map[string]string `bson:"headers,omitempty"`
	Status           string            `bson:"status"`
	CreatedAt        time.Time         `bson:"createdAt"`
	SentAt           time.Time         `bson:"sentAt,omitempty"`
	LockExpiresAt    time.Time         `bson:"lockExpiresAt,omitempty"`
	NextAttemptAfter time.Time         `bson:"nextAttemptAfter,omitempty"`
	AttemptsToSend   int32             `bson:"attemptsToSend"`
}
