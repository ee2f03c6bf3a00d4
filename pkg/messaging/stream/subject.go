package stream

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
)

// ErrUnroutable is returned when no configured stream captures an event's subject.
var ErrUnroutable = errors.New("no stream captures subject")

// EncodeName turns an event name into a single subject token.
func EncodeName(name events.Name) string {
	return strings.ReplaceAll(string(name), ".", "-")
}

// DecodeSubject returns the event name addressed by a primary or dead-letter subject.
func DecodeSubject(subject string) (events.Name, bool) {
	prefix, token, ok := strings.Cut(subject, ".")
	if !ok || (prefix != SubjectPrefix && prefix != DeadLetterPrefix) || token == "" || strings.Contains(token, ".") {
		return "", false
	}
	return events.Name(strings.ReplaceAll(token, "-", ".")), true
}

// Match reports whether subject is captured by pattern under NATS token rules:
// "*" matches exactly one token and a trailing ">" matches one or more.
func Match(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, p := range pt {
		if p == ">" {
			return i == len(pt)-1 && len(st) > i
		}
		if i >= len(st) {
			return false
		}
		if p != "*" && p != st[i] {
			return false
		}
	}
	return len(pt) == len(st)
}

func validatePattern(pattern string) error {
	if pattern == "" {
		return errors.New("empty subject pattern")
	}
	tokens := strings.Split(pattern, ".")
	for i, tok := range tokens {
		switch {
		case tok == "":
			return fmt.Errorf("subject pattern %q has an empty token", pattern)
		case tok == ">" && i != len(tokens)-1:
			return fmt.Errorf("subject pattern %q: '>' must be the last token", pattern)
		case strings.ContainsAny(tok, " \t") || (len(tok) > 1 && strings.ContainsAny(tok, "*>")):
			return fmt.Errorf("subject pattern %q has an invalid token %q", pattern, tok)
		}
	}
	return nil
}

// Topology resolves event names to routing subjects.
type Topology struct {
	primary    StreamConfig
	deadLetter StreamConfig
}

func NewTopology(cfg Config) *Topology {
	return &Topology{primary: cfg.Primary, deadLetter: cfg.DeadLetter}
}

// SubjectFor returns the primary stream subject for name.
func (t *Topology) SubjectFor(name events.Name) (string, error) {
	return route(t.primary, SubjectPrefix+"."+EncodeName(name))
}

// DeadLetterSubjectFor returns the dead-letter stream subject for name.
func (t *Topology) DeadLetterSubjectFor(name events.Name) (string, error) {
	return route(t.deadLetter, DeadLetterPrefix+"."+EncodeName(name))
}

// PrimaryStream is the name of the stream consumers bind to.
func (t *Topology) PrimaryStream() string {
	return t.primary.Name
}

func route(s StreamConfig, subject string) (string, error) {
	for _, pattern := range s.Subjects {
		if Match(pattern, subject) {
			return subject, nil
		}
	}
	return "", fmt.Errorf("%w %q in stream %s", ErrUnroutable, subject, s.Name)
}
