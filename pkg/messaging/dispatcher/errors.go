package dispatcher

import (
	"errors"
	"fmt"

	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
)

var (
	// ErrPermanent marks a handler failure that redelivery cannot fix. The
	// message is dead-lettered at once.
	ErrPermanent = errors.New("permanent error")
	// ErrSkipMessage acknowledges the message without further processing.
	ErrSkipMessage = errors.New("skip message")
	// ErrNoHandler is returned for messages no handler of the consumer claims.
	ErrNoHandler = errors.New("no handler registered")
)

// PublishFailedError reports a publish the broker did not acknowledge.
type PublishFailedError struct {
	Event    events.Name
	Subject  string
	Attempts int
	Err      error
}

func (e *PublishFailedError) Error() string {
	return fmt.Sprintf("publish %s to %s failed after %d attempt(s): %v", e.Event, e.Subject, e.Attempts, e.Err)
}

func (e *PublishFailedError) Unwrap() error { return e.Err }

// DuplicateMessageError is informational: the message was already handled.
// The consumer acknowledges it.
type DuplicateMessageError struct {
	MessageID string
	Event     events.Name
	Key       string
}

func (e *DuplicateMessageError) Error() string {
	return fmt.Sprintf("duplicate message %s (%s) for key %s", e.MessageID, e.Event, e.Key)
}

// HandlerError wraps a failure returned by a registered handler.
type HandlerError struct {
	Event     events.Name
	MessageID string
	Err       error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler for %s failed on message %s: %v", e.Event, e.MessageID, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// PanicError represents a recovered handler panic.
type PanicError struct {
	Panic any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Panic)
}

// Permanent wraps err so that the consumer dead-letters without redelivery.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}
