package events

import (
	"errors"
	"fmt"

	"github.com/hamba/avro/v2"
)

// Descriptor declares one version of an event contract.
type Descriptor struct {
	Name        Name
	Version     int
	Direction   Direction
	ExtraFields ExtraFieldPolicy
	// Schema is an Avro record schema in JSON form.
	Schema      string
	Description string

	record *avro.RecordSchema
}

// Record returns the parsed payload schema. It is nil until the descriptor
// has passed through Parse or Registry.Register.
func (d Descriptor) Record() *avro.RecordSchema {
	return d.record
}

// Fingerprint is the SHA-256 of the schema's canonical form.
func (d Descriptor) Fingerprint() [32]byte {
	if d.record == nil {
		return [32]byte{}
	}
	return d.record.Fingerprint()
}

// Parse validates d and returns a copy carrying the parsed schema.
func (d Descriptor) Parse() (Descriptor, error) {
	if err := d.Name.Validate(); err != nil {
		return Descriptor{}, err
	}
	if d.Version < 1 {
		return Descriptor{}, fmt.Errorf("event %s: version must be positive, got %d", d.Name, d.Version)
	}
	if err := d.Direction.Validate(); err != nil {
		return Descriptor{}, fmt.Errorf("event %s: %w", d.Name, err)
	}
	if d.ExtraFields == "" {
		d.ExtraFields = Strict
	}
	if err := d.ExtraFields.Validate(); err != nil {
		return Descriptor{}, fmt.Errorf("event %s: %w", d.Name, err)
	}
	if d.Schema == "" {
		return Descriptor{}, fmt.Errorf("event %s: schema is required", d.Name)
	}

	// a private cache keeps versions of the same record name apart
	parsed, err := avro.ParseWithCache(d.Schema, "", &avro.SchemaCache{})
	if err != nil {
		return Descriptor{}, fmt.Errorf("event %s v%d: parse schema: %w", d.Name, d.Version, err)
	}
	record, ok := parsed.(*avro.RecordSchema)
	if !ok {
		return Descriptor{}, errors.New("event " + string(d.Name) + ": payload schema must be an Avro record")
	}
	d.record = record
	return d, nil
}

func (d Descriptor) sameContract(other Descriptor) bool {
	return d.Direction == other.Direction &&
		d.ExtraFields == other.ExtraFields &&
		d.Fingerprint() == other.Fingerprint()
}
