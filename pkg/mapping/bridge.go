// Package mapping moves data between persisted entities and their wire DTOs.
//
// A Bridge is compiled once per (entity, create input, patch input, output)
// quadruple. Fields are matched by name; mismatches are reported by NewBridge
// rather than at first use.
package mapping

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
)

type Bridge[E, C, P, O any] struct {
	entity reflect.Type
	fields map[string]structField
	create []copyStep
	patch  []patchStep
	output []copyStep
}

func NewBridge[E, C, P, O any]() (*Bridge[E, C, P, O], error) {
	entity, create, patch, output := reflect.TypeFor[E](), reflect.TypeFor[C](), reflect.TypeFor[P](), reflect.TypeFor[O]()
	for _, t := range []reflect.Type{entity, create, patch, output} {
		if t.Kind() != reflect.Struct {
			return nil, fmt.Errorf("mapping: %s is not a struct", t)
		}
	}

	b := &Bridge[E, C, P, O]{entity: entity, fields: byName(fieldsOf(entity))}
	var err error
	if b.create, err = copyPlan(create, entity, false); err != nil {
		return nil, err
	}
	if b.patch, err = patchPlan(patch, entity); err != nil {
		return nil, err
	}
	if b.output, err = copyPlan(entity, output, true); err != nil {
		return nil, err
	}
	return b, nil
}

// MustBridge is NewBridge for package-level variables.
func MustBridge[E, C, P, O any]() *Bridge[E, C, P, O] {
	b, err := NewBridge[E, C, P, O]()
	if err != nil {
		panic(err)
	}
	return b
}

// ToModel builds a new entity from in. Extras are assigned afterwards by
// entity field name, so they win over same-named input fields.
func (b *Bridge[E, C, P, O]) ToModel(in C, extras map[string]any) (*E, error) {
	e := new(E)
	ev := reflect.ValueOf(e).Elem()
	runCopy(b.create, ev, reflect.ValueOf(in))

	for _, name := range slices.Sorted(maps.Keys(extras)) {
		f, ok := b.fields[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s on %s", ErrUnknownField, name, b.entity)
		}
		dst := ev.FieldByIndex(f.index)
		val := reflect.ValueOf(extras[name])
		if !val.IsValid() {
			if !nilable(f.typ) {
				return nil, fmt.Errorf("%w: %s", ErrNotNullable, name)
			}
			dst.SetZero()
			continue
		}
		assign, ok := assigner(val.Type(), f.typ)
		if !ok {
			return nil, fmt.Errorf("%w: %s wants %s, got %s", ErrFieldType, name, f.typ, val.Type())
		}
		assign(dst, val)
	}
	return e, nil
}

// ApplyPatch writes the present fields of patch into entity and returns the
// names of the fields whose value changed. Nothing is written when any null
// targets a non-nilable field.
func (b *Bridge[E, C, P, O]) ApplyPatch(entity *E, patch P) ([]string, error) {
	if entity == nil {
		return nil, ErrNilEntity
	}
	ev := reflect.ValueOf(entity).Elem()
	pv := reflect.ValueOf(patch)

	type pending struct {
		step  patchStep
		state fieldState
		value reflect.Value
	}
	var todo []pending
	for _, s := range b.patch {
		state, value := s.read(pv.FieldByIndex(s.src))
		switch {
		case state == stateAbsent:
			continue
		case state == stateNull && !s.nullable:
			return nil, fmt.Errorf("%w: %s", ErrNotNullable, s.name)
		}
		todo = append(todo, pending{step: s, state: state, value: value})
	}

	var changed []string
	for _, p := range todo {
		dst := ev.FieldByIndex(p.step.dst)
		before := reflect.New(dst.Type()).Elem()
		before.Set(dst)

		if p.state == stateNull {
			dst.SetZero()
		} else {
			p.step.assign(dst, p.value)
		}
		if !reflect.DeepEqual(before.Interface(), dst.Interface()) {
			changed = append(changed, p.step.name)
		}
	}
	return changed, nil
}

// ToOutput returns the zero O for a nil entity.
func (b *Bridge[E, C, P, O]) ToOutput(entity *E) O {
	var out O
	if entity == nil {
		return out
	}
	runCopy(b.output, reflect.ValueOf(&out).Elem(), reflect.ValueOf(entity).Elem())
	return out
}

func (b *Bridge[E, C, P, O]) ToOutputs(entities []*E) []O {
	out := make([]O, len(entities))
	for i, e := range entities {
		if e == nil {
			continue
		}
		runCopy(b.output, reflect.ValueOf(&out[i]).Elem(), reflect.ValueOf(e).Elem())
	}
	return out
}
