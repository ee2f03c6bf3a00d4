package eventgen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
	"github.com/ettle/strcase"
)

// annotations are the catalog attributes read from the top of a schema.
type annotations struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Doc         string `json:"doc,omitempty"`
	Event       string `json:"event"`
	Version     int    `json:"version"`
	Direction   string `json:"direction"`
	ExtraFields string `json:"extra-fields,omitempty"`
}

// EventSchema is one annotated schema file.
type EventSchema struct {
	// FilePath is the path to the source file.
	FilePath string
	// Raw is the file content, embedded unchanged.
	Raw        []byte
	Descriptor events.Descriptor
}

// ParseEventSchema reads the annotations of data and checks the schema the
// same way the registry does at startup.
func ParseEventSchema(path string, data []byte) (*EventSchema, error) {
	var a annotations
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%s: failed to parse Avro schema: %w", path, err)
	}
	if a.Type != "record" {
		return nil, fmt.Errorf("%s: expected record type, got %q", path, a.Type)
	}
	if a.Event == "" {
		return nil, fmt.Errorf("%s: missing required 'event' annotation", path)
	}

	d := events.Descriptor{
		Name:        events.Name(a.Event),
		Version:     a.Version,
		Direction:   events.Direction(a.Direction),
		ExtraFields: events.ExtraFieldPolicy(a.ExtraFields),
		Schema:      string(data),
		Description: a.Doc,
	}
	parsed, err := d.Parse()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &EventSchema{FilePath: path, Raw: data, Descriptor: parsed}, nil
}

// ConstName is the Go identifier of the event name constant,
// e.g. "webhook.catalog.item_updated" -> "WebhookCatalogItemUpdated".
func (s *EventSchema) ConstName() string {
	return constName(s.Descriptor.Name)
}

// SchemaVarName is the identifier of the embedded schema,
// e.g. "merchantCreatedV1Schema".
func (s *EventSchema) SchemaVarName() string {
	return strcase.ToGoCamel(s.baseName()) + fmt.Sprintf("V%dSchema", s.Descriptor.Version)
}

// FileName is the name the schema is embedded under.
func (s *EventSchema) FileName() string {
	return fmt.Sprintf("%s.v%d.avsc", s.Descriptor.Name, s.Descriptor.Version)
}

func (s *EventSchema) baseName() string {
	return strings.ReplaceAll(string(s.Descriptor.Name), ".", "_")
}

func constName(name events.Name) string {
	return strcase.ToGoPascal(strings.ReplaceAll(string(name), ".", "_"))
}
