package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
	"github.com/google/uuid"
	"github.com/hamba/avro/v2"
	"github.com/samber/lo"
)

// Catalog is the read side of the event registry.
type Catalog interface {
	Lookup(name events.Name) (events.Descriptor, error)
	LookupVersion(name events.Name, version int) (events.Descriptor, error)
}

// Result is the outcome of Validate. Exactly one of Payload and Err is set.
type Result struct {
	// Descriptor is the local (consumer side) descriptor for the event.
	Descriptor events.Descriptor
	// Payload is the decoded JSON object, numbers as json.Number.
	Payload map[string]any
	Err     error
}

func (r Result) OK() bool { return r.Err == nil }

type Validator struct {
	catalog Catalog
}

func NewValidator(catalog Catalog) *Validator {
	return &Validator{catalog: catalog}
}

// Validate checks raw against the schema registered for (name, version).
// It never panics; every failure is reported through Result.Err.
func (v *Validator) Validate(name events.Name, version int, raw []byte) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: &SchemaViolationError{Name: name, Version: version, Violations: []Violation{{Message: fmt.Sprintf("validator panic: %v", r)}}}}
		}
	}()

	local, err := v.catalog.Lookup(name)
	if err != nil {
		return Result{Err: err}
	}

	if version == local.Version {
		return check(local, local.Record(), local.ExtraFields, version, raw)
	}

	producer, err := v.catalog.LookupVersion(name, version)
	if err != nil {
		// Unknown producer version: the payload itself must still satisfy
		// the local record, with its extra fields read as additions.
		out := check(local, local.Record(), events.Lenient, version, raw)
		var violation *SchemaViolationError
		if errors.As(out.Err, &violation) {
			out.Err = &SchemaVersionError{
				Name: name, Consumer: local.Version, Producer: version,
				Reason: "unregistered producer version breaks the local schema: " + joinViolations(violation.Violations),
			}
		}
		return out
	}

	// The newer side may only add optional fields to the older one.
	older, newer := producer, local
	if version > local.Version {
		older, newer = local, producer
	}
	if err := Compatible(older.Record(), newer.Record()); err != nil {
		return Result{Descriptor: local, Err: &SchemaVersionError{
			Name: name, Consumer: local.Version, Producer: version, Reason: err.Error(),
		}}
	}
	return check(local, producer.Record(), local.ExtraFields, version, raw)
}

func check(local events.Descriptor, record *avro.RecordSchema, policy events.ExtraFieldPolicy, version int, raw []byte) Result {
	payload, violations := decodeAndCheck(record, policy, raw)
	if len(violations) > 0 {
		return Result{Descriptor: local, Err: &SchemaViolationError{Name: local.Name, Version: version, Violations: violations}}
	}
	return Result{Descriptor: local, Payload: payload}
}

// ValidateCurrent validates raw against the locally registered version of name.
func (v *Validator) ValidateCurrent(name events.Name, raw []byte) Result {
	local, err := v.catalog.Lookup(name)
	if err != nil {
		return Result{Err: err}
	}
	return v.Validate(name, local.Version, raw)
}

// ValidateValue marshals a Go value and validates it like Validate.
func (v *Validator) ValidateValue(name events.Name, version int, value any) ([]byte, Result) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, Result{Err: &SchemaViolationError{Name: name, Version: version, Violations: []Violation{{Message: "payload is not JSON encodable: " + err.Error()}}}}
	}
	return raw, v.Validate(name, version, raw)
}

func decodeAndCheck(record *avro.RecordSchema, policy events.ExtraFieldPolicy, raw []byte) (map[string]any, []Violation) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, []Violation{{Message: "payload is not valid JSON: " + err.Error()}}
	}
	if dec.More() {
		return nil, []Violation{{Message: "payload has trailing data"}}
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, []Violation{{Message: "payload must be a JSON object"}}
	}

	c := checker{strict: policy == events.Strict}
	c.record("", record, obj)
	return obj, c.violations
}

type checker struct {
	strict     bool
	violations []Violation
}

func (c *checker) fail(path, format string, args ...any) {
	c.violations = append(c.violations, Violation{Path: path, Message: fmt.Sprintf(format, args...)})
}

func join(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}

func (c *checker) record(path string, s *avro.RecordSchema, obj map[string]any) {
	known := make(map[string]struct{}, len(s.Fields()))
	for _, f := range s.Fields() {
		known[f.Name()] = struct{}{}
		val, present := obj[f.Name()]
		if !present {
			if !optional(f) {
				c.fail(join(path, f.Name()), "required field is missing")
			}
			continue
		}
		c.value(join(path, f.Name()), f.Type(), val)
	}

	if !c.strict {
		return
	}
	var extra []string
	for key := range obj {
		if _, ok := known[key]; !ok {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		c.fail(join(path, key), "unknown field")
	}
}

func (c *checker) value(path string, s avro.Schema, val any) {
	switch t := s.(type) {
	case *avro.RefSchema:
		c.value(path, t.Schema(), val)
	case *avro.NullSchema:
		if val != nil {
			c.fail(path, "expected null")
		}
	case *avro.RecordSchema:
		obj, ok := val.(map[string]any)
		if !ok {
			c.fail(path, "expected object for record %s", t.FullName())
			return
		}
		c.record(path, t, obj)
	case *avro.UnionSchema:
		c.union(path, t, val)
	case *avro.ArraySchema:
		items, ok := val.([]any)
		if !ok {
			c.fail(path, "expected array")
			return
		}
		for i, item := range items {
			c.value(path+"["+strconv.Itoa(i)+"]", t.Items(), item)
		}
	case *avro.MapSchema:
		obj, ok := val.(map[string]any)
		if !ok {
			c.fail(path, "expected object for map")
			return
		}
		for key, item := range obj {
			c.value(join(path, key), t.Values(), item)
		}
	case *avro.EnumSchema:
		str, ok := val.(string)
		if !ok || !lo.Contains(t.Symbols(), str) {
			c.fail(path, "expected one of %v", t.Symbols())
		}
	case *avro.FixedSchema:
		str, ok := val.(string)
		if !ok || len(str) != t.Size() {
			c.fail(path, "expected string of length %d", t.Size())
		}
	case *avro.PrimitiveSchema:
		c.primitive(path, t, val)
	default:
		c.fail(path, "unsupported schema type %s", s.Type())
	}
}

func (c *checker) union(path string, s *avro.UnionSchema, val any) {
	for _, branch := range s.Types() {
		trial := checker{strict: c.strict}
		trial.value(path, branch, val)
		if len(trial.violations) == 0 {
			return
		}
	}
	c.fail(path, "value matches no branch of %s", typeName(s))
}

func (c *checker) primitive(path string, s *avro.PrimitiveSchema, val any) {
	var logical avro.LogicalType
	if ls := s.Logical(); ls != nil {
		logical = ls.Type()
	}

	switch s.Type() {
	case avro.Null:
		if val != nil {
			c.fail(path, "expected null")
		}
	case avro.Boolean:
		if _, ok := val.(bool); !ok {
			c.fail(path, "expected boolean")
		}
	case avro.Int, avro.Long:
		if isTimestamp(logical) {
			if str, ok := val.(string); ok {
				if _, err := time.Parse(time.RFC3339Nano, str); err != nil {
					c.fail(path, "expected RFC 3339 timestamp")
				}
				return
			}
		}
		n, ok := val.(json.Number)
		if !ok {
			c.fail(path, "expected integer")
			return
		}
		i, err := n.Int64()
		if err != nil {
			c.fail(path, "expected integer, got %s", n)
			return
		}
		if s.Type() == avro.Int && (i < math.MinInt32 || i > math.MaxInt32) {
			c.fail(path, "integer %d overflows int", i)
		}
	case avro.Float, avro.Double:
		n, ok := val.(json.Number)
		if !ok {
			c.fail(path, "expected number")
			return
		}
		if _, err := n.Float64(); err != nil {
			c.fail(path, "expected number, got %s", n)
		}
	case avro.Bytes:
		if logical == avro.Decimal {
			if _, ok := val.(json.Number); ok {
				return
			}
		}
		if _, ok := val.(string); !ok {
			c.fail(path, "expected string")
		}
	case avro.String:
		str, ok := val.(string)
		if !ok {
			c.fail(path, "expected string")
			return
		}
		if logical == avro.UUID {
			if _, err := uuid.Parse(str); err != nil {
				c.fail(path, "expected uuid")
			}
		}
	default:
		c.fail(path, "unsupported primitive %s", s.Type())
	}
}

func isTimestamp(t avro.LogicalType) bool {
	switch t {
	case avro.TimestampMillis, avro.TimestampMicros, avro.LocalTimestampMillis, avro.LocalTimestampMicros:
		return true
	default:
		return false
	}
}
