package dispatcher

import "time"

const (
	// Publisher defaults.
	defaultPublishMaxAttempts = 5
	defaultPublishInitial     = 100 * time.Millisecond
	defaultPublishMaxBackoff  = 5 * time.Second
	defaultPublishTimeout     = 5 * time.Second

	// Consumer defaults.
	defaultMaxDeliver        = 3
	defaultAckWait           = 30 * time.Second
	defaultBatchSize         = 10
	defaultFetchWait         = 5 * time.Second
	defaultConcurrency       = 8
	defaultProcessingTimeout = 25 * time.Second
	defaultDrainTimeout      = 20 * time.Second
	defaultInitialBackoff    = time.Second
	defaultMaxBackoff        = 30 * time.Second
	defaultDeadLetterTimeout = 5 * time.Second
	defaultDeadLetterTries   = 3

	// JetStream never stops redelivering; settlement enforces max-deliver.
	unlimitedDeliveries = -1

	// handlerCancelGrace bounds the wait for handlers cancelled at the drain deadline.
	handlerCancelGrace = 5 * time.Second

	deadLetterRetryInitial = 100 * time.Millisecond
	deadLetterRetryMax     = time.Second

	// Validation bounds.
	minAttempts          = 1
	maxAttempts          = 20
	minPublishBackoff    = 10 * time.Millisecond
	maxPublishBackoff    = time.Minute
	minPublishTimeout    = 100 * time.Millisecond
	maxPublishTimeout    = time.Minute
	minMaxDeliver        = 1
	maxMaxDeliver        = 100
	minAckWait           = time.Second
	maxAckWait           = 10 * time.Minute
	minBatchSize         = 1
	maxBatchSize         = 500
	minFetchWait         = 100 * time.Millisecond
	maxFetchWait         = time.Minute
	minConcurrency       = 1
	maxConcurrency       = 1024
	minProcessingTimeout = 100 * time.Millisecond
	maxProcessingTimeout = 10 * time.Minute
	minDrainTimeout      = 0
	maxDrainTimeout      = 5 * time.Minute
	minNakBackoff        = 10 * time.Millisecond
	maxNakBackoff        = 10 * time.Minute
	minDeadLetterTimeout = 100 * time.Millisecond
	maxDeadLetterTimeout = time.Minute
	minDeadLetterTries   = 1
	maxDeadLetterTries   = 10
)

// Message headers.
const (
	HeaderEvent         = "eventbus-event"
	HeaderVersion       = "eventbus-version"
	HeaderCorrelationID = "eventbus-correlation-id"
	HeaderCausationID   = "eventbus-causation-id"

	HeaderDLQError           = "dlq-error"
	HeaderDLQOriginalSubject = "dlq-original-subject"
	HeaderDLQDeliveryCount   = "dlq-delivery-count"
	HeaderDLQTimestamp       = "dlq-timestamp"
)
