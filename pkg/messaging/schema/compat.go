package schema

import (
	"fmt"
	"strings"

	"github.com/hamba/avro/v2"
)

// Compatible reports whether a consumer built for reader can accept payloads
// produced for writer. The writer may only add optional fields; any removed
// field or changed field type is a breaking change.
func Compatible(reader, writer *avro.RecordSchema) error {
	writerFields := make(map[string]*avro.Field, len(writer.Fields()))
	for _, f := range writer.Fields() {
		writerFields[f.Name()] = f
	}

	var problems []string
	for _, rf := range reader.Fields() {
		wf, ok := writerFields[rf.Name()]
		if !ok {
			problems = append(problems, fmt.Sprintf("field %q removed", rf.Name()))
			continue
		}
		delete(writerFields, rf.Name())
		if rf.Type().Fingerprint() != wf.Type().Fingerprint() {
			problems = append(problems, fmt.Sprintf("field %q changed type from %s to %s", rf.Name(), typeName(rf.Type()), typeName(wf.Type())))
		}
	}

	for _, wf := range writer.Fields() {
		if _, added := writerFields[wf.Name()]; added && !optional(wf) {
			problems = append(problems, fmt.Sprintf("field %q added without default", wf.Name()))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// optional fields may be omitted from a payload.
func optional(f *avro.Field) bool {
	return f.HasDefault() || nullable(f.Type())
}

func nullable(s avro.Schema) bool {
	switch t := s.(type) {
	case *avro.NullSchema:
		return true
	case *avro.UnionSchema:
		return t.Nullable()
	default:
		return false
	}
}

func typeName(s avro.Schema) string {
	switch t := s.(type) {
	case avro.NamedSchema:
		return t.FullName()
	case *avro.UnionSchema:
		names := make([]string, len(t.Types()))
		for i, branch := range t.Types() {
			names[i] = typeName(branch)
		}
		return "[" + strings.Join(names, ",") + "]"
	default:
		return string(s.Type())
	}
}
