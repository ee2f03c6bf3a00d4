package mapping

import (
	"bytes"
	"encoding/json"
	"reflect"
)

type fieldState uint8

const (
	stateAbsent fieldState = iota
	stateSet
	stateNull
)

// Field is a patch value that distinguishes a missing key from an explicit
// null. The zero value is absent; tag fields with omitzero to drop absent
// values when encoding.
type Field[T any] struct {
	value T
	state fieldState
}

func Absent[T any]() Field[T] {
	return Field[T]{}
}

func Set[T any](v T) Field[T] {
	return Field[T]{value: v, state: stateSet}
}

func Null[T any]() Field[T] {
	return Field[T]{state: stateNull}
}

// IsPresent reports whether the field was set or nulled.
func (f Field[T]) IsPresent() bool {
	return f.state != stateAbsent
}

func (f Field[T]) IsNull() bool {
	return f.state == stateNull
}

// Value returns the set value. ok is false for absent and null fields.
func (f Field[T]) Value() (v T, ok bool) {
	return f.value, f.state == stateSet
}

func (f Field[T]) IsZero() bool {
	return f.state == stateAbsent
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.state != stateSet {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// UnmarshalJSON is only called for keys present in the input, so a missing
// key leaves the field absent.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Null[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Set(v)
	return nil
}

func (f Field[T]) patchValue() (fieldState, reflect.Value) {
	return f.state, reflect.ValueOf(&f.value).Elem()
}

func (Field[T]) valueType() reflect.Type {
	return reflect.TypeFor[T]()
}

type patchable interface {
	patchValue() (fieldState, reflect.Value)
	valueType() reflect.Type
}
