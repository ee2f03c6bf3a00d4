package schema

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
	"github.com/confluentinc/confluent-kafka-go/v2/schemaregistry"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Pushed describes one schema registered by RegistrySync.Push.
type Pushed struct {
	Subject string
	Event   events.Name
	Version int
	ID      int
}

// RegistrySync publishes event schemas to a Confluent Schema Registry so that
// tooling outside the fleet can read the contracts.
type RegistrySync struct {
	client schemaregistry.Client
	log    *zap.Logger
}

func NewRegistrySync(client schemaregistry.Client, log *zap.Logger) *RegistrySync {
	return &RegistrySync{client: client, log: log}
}

// Subject returns the registry subject for an event.
func Subject(name events.Name) string {
	return string(name) + "-value"
}

// CheckVersions verifies that every version of an event only adds optional
// fields to the previous one.
func CheckVersions(descriptors []events.Descriptor) error {
	for name, versions := range groupByName(descriptors) {
		for i := 1; i < len(versions); i++ {
			prev, next := versions[i-1], versions[i]
			if err := Compatible(prev.Record(), next.Record()); err != nil {
				return &SchemaVersionError{Name: name, Consumer: prev.Version, Producer: next.Version, Reason: err.Error()}
			}
		}
	}
	return nil
}

// Push checks compatibility locally and then registers every schema in
// version order. It stops at the first registry error.
func (s *RegistrySync) Push(descriptors []events.Descriptor) ([]Pushed, error) {
	parsed := make([]events.Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		p, err := d.Parse()
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, p)
	}
	if err := CheckVersions(parsed); err != nil {
		return nil, err
	}

	groups := groupByName(parsed)
	names := lo.Keys(groups)
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	var pushed []Pushed
	for _, name := range names {
		for _, d := range groups[name] {
			subject := Subject(name)
			id, err := s.client.Register(subject, schemaInfo(d), false)
			if err != nil {
				return pushed, fmt.Errorf("failed to register schema for %s v%d: %w", name, d.Version, err)
			}
			s.log.Info("schema registered",
				zap.String("subject", subject),
				zap.Int("version", d.Version),
				zap.Int("id", id))
			pushed = append(pushed, Pushed{Subject: subject, Event: name, Version: d.Version, ID: id})
		}
	}
	return pushed, nil
}

func schemaInfo(d events.Descriptor) schemaregistry.SchemaInfo {
	return schemaregistry.SchemaInfo{
		Schema:     d.Schema,
		SchemaType: "AVRO",
		Metadata: &schemaregistry.Metadata{
			Properties: map[string]string{
				"event":        string(d.Name),
				"version":      strconv.Itoa(d.Version),
				"direction":    string(d.Direction),
				"extra-fields": string(d.ExtraFields),
			},
		},
	}
}

func groupByName(descriptors []events.Descriptor) map[events.Name][]events.Descriptor {
	groups := lo.GroupBy(descriptors, func(d events.Descriptor) events.Name { return d.Name })
	for _, versions := range groups {
		sort.Slice(versions, func(i, j int) bool { return versions[i].Version < versions[j].Version })
	}
	return groups
}
