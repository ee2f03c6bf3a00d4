package stream

import "time"

const (
	// SubjectPrefix addresses the primary event stream.
	SubjectPrefix = "evt"
	// DeadLetterPrefix addresses the dead-letter stream.
	DeadLetterPrefix = "dlq"

	defaultPrimaryName        = "EVENTS"
	defaultPrimaryMaxAge      = 24 * time.Hour
	defaultPrimaryMaxMessages = 1_000_000

	defaultDeadLetterName        = "DLQ"
	defaultDeadLetterMaxAge      = 7 * 24 * time.Hour
	defaultDeadLetterMaxMessages = 100_000

	defaultStorage         = StorageFile
	defaultReplicas        = 1
	defaultDuplicateWindow = 2 * time.Minute

	minMaxAge   = time.Minute
	maxReplicas = 5
)

const (
	StorageFile   = "file"
	StorageMemory = "memory"
)
