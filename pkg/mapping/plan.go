package mapping

import (
	"reflect"
)

const tagName = "mapping"

type structField struct {
	name  string
	index []int
	typ   reflect.Type
}

// fieldsOf lists exported fields by mapping name. Fields of embedded structs
// are promoted; a `mapping:"name"` tag renames a field and `mapping:"-"`
// hides it.
func fieldsOf(t reflect.Type) []structField {
	var out []structField
	var walk func(t reflect.Type, prefix []int)
	walk = func(t reflect.Type, prefix []int) {
		for i := range t.NumField() {
			f := t.Field(i)
			tag := f.Tag.Get(tagName)
			if tag == "-" {
				continue
			}
			index := append(append([]int(nil), prefix...), i)
			// exported fields of an unexported embedded struct stay settable
			if f.Anonymous && tag == "" && f.Type.Kind() == reflect.Struct {
				walk(f.Type, index)
				continue
			}
			if !f.IsExported() {
				continue
			}
			name := f.Name
			if tag != "" {
				name = tag
			}
			out = append(out, structField{name: name, index: index, typ: f.Type})
		}
	}
	walk(t, nil)
	return out
}

func byName(fields []structField) map[string]structField {
	m := make(map[string]structField, len(fields))
	for _, f := range fields {
		m[f.name] = f
	}
	return m
}

type assignFn func(dst, src reflect.Value)

// assigner returns a setter copying a src-typed value into a dst-typed slot.
// Besides plain assignment it converts between named types of the same kind
// and steps through one pointer on either side. A nil source pointer leaves
// the destination untouched.
func assigner(src, dst reflect.Type) (assignFn, bool) {
	switch {
	case src.AssignableTo(dst):
		return func(d, s reflect.Value) { d.Set(s) }, true
	case src.Kind() == dst.Kind() && src.Kind() != reflect.Pointer && src.ConvertibleTo(dst):
		return func(d, s reflect.Value) { d.Set(s.Convert(dst)) }, true
	case src.Kind() == reflect.Pointer:
		inner, ok := assigner(src.Elem(), dst)
		if !ok {
			return nil, false
		}
		return func(d, s reflect.Value) {
			if !s.IsNil() {
				inner(d, s.Elem())
			}
		}, true
	case dst.Kind() == reflect.Pointer:
		inner, ok := assigner(src, dst.Elem())
		if !ok {
			return nil, false
		}
		elem := dst.Elem()
		return func(d, s reflect.Value) {
			p := reflect.New(elem)
			inner(p.Elem(), s)
			d.Set(p)
		}, true
	}
	return nil, false
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

type copyStep struct {
	src, dst []int
	assign   assignFn
}

// copyPlan pairs same-named fields of from and to. Every field of the
// driving side must find a partner: the input for create plans, the output
// for output plans.
func copyPlan(from, to reflect.Type, drivenByTarget bool) ([]copyStep, error) {
	sources, targets := byName(fieldsOf(from)), byName(fieldsOf(to))
	driver := fieldsOf(from)
	if drivenByTarget {
		driver = fieldsOf(to)
	}

	var steps []copyStep
	for _, f := range driver {
		src, dst := sources[f.name], targets[f.name]
		if src.index == nil || dst.index == nil {
			return nil, &PlanError{From: from.String(), To: to.String(), Field: f.name, Reason: "no field with this name"}
		}
		assign, ok := assigner(src.typ, dst.typ)
		if !ok {
			return nil, &PlanError{From: from.String(), To: to.String(), Field: f.name, Reason: src.typ.String() + " is not assignable to " + dst.typ.String()}
		}
		steps = append(steps, copyStep{src: src.index, dst: dst.index, assign: assign})
	}
	return steps, nil
}

func runCopy(steps []copyStep, dst, src reflect.Value) {
	for _, s := range steps {
		s.assign(dst.FieldByIndex(s.dst), src.FieldByIndex(s.src))
	}
}

type patchStep struct {
	name     string
	src, dst []int
	assign   assignFn
	nullable bool
	// read returns the state and value of the patch field.
	read func(v reflect.Value) (fieldState, reflect.Value)
}

func readField(v reflect.Value) (fieldState, reflect.Value) {
	return v.Interface().(patchable).patchValue()
}

func readPointer(v reflect.Value) (fieldState, reflect.Value) {
	if v.IsNil() {
		return stateAbsent, reflect.Value{}
	}
	return stateSet, v.Elem()
}

var patchableType = reflect.TypeFor[patchable]()

// patchPlan accepts Field[T] fields and plain pointers (nil means absent).
func patchPlan(patch, entity reflect.Type) ([]patchStep, error) {
	targets := byName(fieldsOf(entity))
	var steps []patchStep
	for _, f := range fieldsOf(patch) {
		fail := func(reason string) error {
			return &PlanError{From: patch.String(), To: entity.String(), Field: f.name, Reason: reason}
		}
		target, ok := targets[f.name]
		if !ok {
			return nil, fail("no field with this name")
		}

		var (
			valueType reflect.Type
			read      func(reflect.Value) (fieldState, reflect.Value)
		)
		switch {
		case f.typ.Implements(patchableType):
			valueType = reflect.Zero(f.typ).Interface().(patchable).valueType()
			read = readField
		case f.typ.Kind() == reflect.Pointer:
			valueType = f.typ.Elem()
			read = readPointer
		default:
			return nil, fail("patch fields must be mapping.Field or a pointer, got " + f.typ.String())
		}

		assign, ok := assigner(valueType, target.typ)
		if !ok {
			return nil, fail(valueType.String() + " is not assignable to " + target.typ.String())
		}
		steps = append(steps, patchStep{
			name:     target.name,
			src:      f.index,
			dst:      target.index,
			assign:   assign,
			nullable: nilable(target.typ),
			read:     read,
		})
	}
	return steps, nil
}
