package schema

import (
	"testing"

	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	merchantV1 = `{
		"type": "record",
		"name": "MerchantCreated",
		"fields": [
			{"name": "merchant_id", "type": "string"},
			{"name": "email", "type": "string"}
		]
	}`

	merchantV2 = `{
		"type": "record",
		"name": "MerchantCreated",
		"fields": [
			{"name": "merchant_id", "type": "string"},
			{"name": "email", "type": "string"},
			{"name": "plan", "type": ["null", "string"], "default": null}
		]
	}`

	merchantV3Breaking = `{
		"type": "record",
		"name": "MerchantCreated",
		"fields": [
			{"name": "merchant_id", "type": "long"},
			{"name": "email", "type": "string"}
		]
	}`

	orderPlaced = `{
		"type": "record",
		"name": "OrderPlaced",
		"fields": [
			{"name": "order_id", "type": {"type": "string", "logicalType": "uuid"}},
			{"name": "quantity", "type": "int"},
			{"name": "total", "type": "double"},
			{"name": "status", "type": {"type": "enum", "name": "Status", "symbols": ["NEW", "PAID"]}},
			{"name": "tags", "type": {"type": "array", "items": "string"}, "default": []},
			{"name": "attributes", "type": {"type": "map", "values": "long"}, "default": {}},
			{"name": "placed_at", "type": {"type": "long", "logicalType": "timestamp-millis"}},
			{"name": "customer", "type": {
				"type": "record",
				"name": "Customer",
				"fields": [
					{"name": "id", "type": "string"},
					{"name": "vip", "type": "boolean", "default": false}
				]
			}},
			{"name": "note", "type": ["null", "string"], "default": null}
		]
	}`
)

func newRegistry(t *testing.T, descriptors ...events.Descriptor) *events.Registry {
	t.Helper()
	r := events.NewRegistry(nil)
	for _, d := range descriptors {
		require.NoError(t, r.Register(d))
	}
	return r
}

func descriptor(name events.Name, version int, schema string, policy events.ExtraFieldPolicy) events.Descriptor {
	return events.Descriptor{Name: name, Version: version, Direction: events.Inbound, Schema: schema, ExtraFields: policy}
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(newRegistry(t,
		descriptor("merchant.created", 1, merchantV1, events.Strict),
		descriptor("order.placed", 1, orderPlaced, events.Lenient),
	))

	t.Run("valid payload", func(t *testing.T) {
		res := v.Validate("merchant.created", 1, []byte(`{"merchant_id":"m1","email":"a@b.c"}`))

		require.NoError(t, res.Err)
		assert.True(t, res.OK())
		assert.Equal(t, "m1", res.Payload["merchant_id"])
		assert.Equal(t, 1, res.Descriptor.Version)
	})

	t.Run("missing required field", func(t *testing.T) {
		res := v.Validate("merchant.created", 1, []byte(`{"merchant_id":"m1"}`))

		var violation *SchemaViolationError
		require.ErrorAs(t, res.Err, &violation)
		require.Len(t, violation.Violations, 1)
		assert.Equal(t, "email", violation.Violations[0].Path)
		assert.Nil(t, res.Payload)
	})

	t.Run("strict rejects unknown fields", func(t *testing.T) {
		res := v.Validate("merchant.created", 1, []byte(`{"merchant_id":"m1","email":"a@b.c","extra":1}`))

		var violation *SchemaViolationError
		require.ErrorAs(t, res.Err, &violation)
		assert.Equal(t, "extra", violation.Violations[0].Path)
	})

	t.Run("lenient ignores unknown fields", func(t *testing.T) {
		res := v.Validate("order.placed", 1, []byte(`{
			"order_id": "9b2f8a3e-6f0a-4a57-9d7c-1c2f3e4d5a6b",
			"quantity": 2,
			"total": 19.99,
			"status": "NEW",
			"placed_at": "2024-03-01T12:00:00Z",
			"customer": {"id": "c1", "loyalty": "gold"},
			"unexpected": true
		}`))

		assert.NoError(t, res.Err)
	})

	t.Run("unknown event", func(t *testing.T) {
		res := v.Validate("merchant.deleted", 1, []byte(`{}`))

		var nf *events.NotFoundError
		assert.ErrorAs(t, res.Err, &nf)
	})

	t.Run("not an object", func(t *testing.T) {
		for _, raw := range []string{`[]`, `"x"`, `nope`, `{} {}`} {
			res := v.Validate("merchant.created", 1, []byte(raw))

			var violation *SchemaViolationError
			assert.ErrorAs(t, res.Err, &violation, raw)
		}
	})
}

func TestValidator_Types(t *testing.T) {
	v := NewValidator(newRegistry(t, descriptor("order.placed", 1, orderPlaced, events.Strict)))

	valid := map[string]any{
		"order_id":   "9b2f8a3e-6f0a-4a57-9d7c-1c2f3e4d5a6b",
		"quantity":   2,
		"total":      19.99,
		"status":     "PAID",
		"tags":       []string{"gift"},
		"attributes": map[string]int{"weight": 3},
		"placed_at":  1709294400000,
		"customer":   map[string]any{"id": "c1"},
		"note":       nil,
	}

	tests := []struct {
		name  string
		field string
		value any
		path  string
	}{
		{"bad uuid", "order_id", "not-a-uuid", "order_id"},
		{"float for int", "quantity", 2.5, "quantity"},
		{"int overflow", "quantity", int64(1) << 40, "quantity"},
		{"string for double", "total", "19.99", "total"},
		{"unknown enum symbol", "status", "SHIPPED", "status"},
		{"wrong array item", "tags", []any{"ok", 3}, "tags[1]"},
		{"wrong map value", "attributes", map[string]any{"weight": "heavy"}, "attributes.weight"},
		{"bad timestamp string", "placed_at", "yesterday", "placed_at"},
		{"nested unknown field", "customer", map[string]any{"id": "c1", "tier": 1}, "customer.tier"},
		{"nested missing field", "customer", map[string]any{}, "customer.id"},
		{"union branch mismatch", "note", 42, "note"},
	}

	t.Run("baseline is valid", func(t *testing.T) {
		_, res := v.ValidateValue("order.placed", 1, valid)
		assert.NoError(t, res.Err)
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := make(map[string]any, len(valid))
			for k, val := range valid {
				payload[k] = val
			}
			payload[tt.field] = tt.value

			_, res := v.ValidateValue("order.placed", 1, payload)

			var violation *SchemaViolationError
			require.ErrorAs(t, res.Err, &violation)
			assert.Equal(t, tt.path, violation.Violations[0].Path)
		})
	}
}

func TestValidator_Versions(t *testing.T) {
	v := NewValidator(newRegistry(t,
		descriptor("merchant.created", 1, merchantV1, events.Strict),
		descriptor("merchant.created", 2, merchantV2, events.Strict),
	))

	t.Run("older producer without the optional field", func(t *testing.T) {
		res := v.Validate("merchant.created", 1, []byte(`{"merchant_id":"m1","email":"a@b.c"}`))

		require.NoError(t, res.Err)
		assert.Equal(t, 2, res.Descriptor.Version)
		assert.Equal(t, "m1", res.Payload["merchant_id"])
	})

	t.Run("older producer still checked against its own schema", func(t *testing.T) {
		res := v.Validate("merchant.created", 1, []byte(`{"merchant_id":"m1"}`))

		var violation *SchemaViolationError
		require.ErrorAs(t, res.Err, &violation)
		assert.Equal(t, "email", violation.Violations[0].Path)
	})

	t.Run("producer at consumer version", func(t *testing.T) {
		res := v.Validate("merchant.created", 2, []byte(`{"merchant_id":"m1","email":"a@b.c","plan":"pro"}`))
		assert.NoError(t, res.Err)
	})

	t.Run("unregistered producer version matching the local schema", func(t *testing.T) {
		res := v.Validate("merchant.created", 9, []byte(`{"merchant_id":"m1","email":"a@b.c","region":"eu"}`))

		require.NoError(t, res.Err)
		assert.Equal(t, "eu", res.Payload["region"])
	})

	t.Run("unregistered producer version breaking the local schema", func(t *testing.T) {
		res := v.Validate("merchant.created", 9, []byte(`{"merchant_id":7,"email":"a@b.c"}`))

		var versionErr *SchemaVersionError
		require.ErrorAs(t, res.Err, &versionErr)
		assert.Equal(t, 2, versionErr.Consumer)
		assert.Equal(t, 9, versionErr.Producer)
		assert.Contains(t, versionErr.Reason, "merchant_id")
	})

	t.Run("newer producer adding optional field", func(t *testing.T) {
		consumer := newRegistry(t,
			descriptor("merchant.created", 1, merchantV1, events.Strict),
			descriptor("merchant.created", 2, merchantV2, events.Strict),
		)
		pinned := NewValidator(pinnedCatalog{Registry: consumer, version: 1})
		res := pinned.Validate("merchant.created", 2, []byte(`{"merchant_id":"m1","email":"a@b.c","plan":"pro"}`))

		assert.NoError(t, res.Err)
	})

	t.Run("breaking producer version", func(t *testing.T) {
		consumer := newRegistry(t,
			descriptor("merchant.created", 1, merchantV1, events.Strict),
			descriptor("merchant.created", 3, merchantV3Breaking, events.Strict),
		)
		pinned := NewValidator(pinnedCatalog{Registry: consumer, version: 1})

		res := pinned.Validate("merchant.created", 3, []byte(`{"merchant_id":1,"email":"a@b.c"}`))

		var versionErr *SchemaVersionError
		require.ErrorAs(t, res.Err, &versionErr)
		assert.Contains(t, versionErr.Reason, "merchant_id")
	})
}

func TestValidator_RollingUpgrade(t *testing.T) {
	t.Run("producer upgraded before the consumer", func(t *testing.T) {
		v := NewValidator(newRegistry(t, descriptor("merchant.created", 1, merchantV1, events.Strict)))

		res := v.Validate("merchant.created", 2, []byte(`{"merchant_id":"m1","email":"a@b.c","plan":"pro"}`))

		require.NoError(t, res.Err)
		assert.Equal(t, 1, res.Descriptor.Version)
		assert.Equal(t, "pro", res.Payload["plan"])
	})

	t.Run("producer upgraded before the consumer drops a required field", func(t *testing.T) {
		v := NewValidator(newRegistry(t, descriptor("merchant.created", 1, merchantV1, events.Strict)))

		res := v.Validate("merchant.created", 2, []byte(`{"merchant_id":"m1","plan":"pro"}`))

		var versionErr *SchemaVersionError
		require.ErrorAs(t, res.Err, &versionErr)
		assert.Contains(t, versionErr.Reason, "email")
	})

	t.Run("consumer upgraded before the producer", func(t *testing.T) {
		v := NewValidator(newRegistry(t,
			descriptor("merchant.created", 1, merchantV1, events.Strict),
			descriptor("merchant.created", 2, merchantV2, events.Strict),
		))

		res := v.Validate("merchant.created", 1, []byte(`{"merchant_id":"m1","email":"a@b.c"}`))

		require.NoError(t, res.Err)
		assert.Equal(t, 2, res.Descriptor.Version)
	})

	t.Run("consumer upgraded across a breaking version", func(t *testing.T) {
		v := NewValidator(newRegistry(t,
			descriptor("merchant.created", 1, merchantV1, events.Strict),
			descriptor("merchant.created", 3, merchantV3Breaking, events.Strict),
		))

		res := v.Validate("merchant.created", 1, []byte(`{"merchant_id":"m1","email":"a@b.c"}`))

		var versionErr *SchemaVersionError
		require.ErrorAs(t, res.Err, &versionErr)
		assert.Contains(t, versionErr.Reason, "changed type")
	})
}

func TestValidator_NeverPanics(t *testing.T) {
	v := NewValidator(newRegistry(t, descriptor("order.placed", 1, orderPlaced, events.Strict)))

	inputs := [][]byte{nil, {}, []byte("null"), []byte(`{"customer": null}`), []byte(`{"tags": {"a": 1}}`), {0xff, 0xfe}}
	for _, raw := range inputs {
		assert.NotPanics(t, func() {
			res := v.Validate("order.placed", 1, raw)
			assert.Error(t, res.Err)
		})
	}
}

func TestCompatible(t *testing.T) {
	parse := func(schema string) events.Descriptor {
		d, err := descriptor("merchant.created", 1, schema, events.Strict).Parse()
		require.NoError(t, err)
		return d
	}
	v1, v2, v3 := parse(merchantV1), parse(merchantV2), parse(merchantV3Breaking)

	assert.NoError(t, Compatible(v1.Record(), v1.Record()))
	assert.NoError(t, Compatible(v1.Record(), v2.Record()))
	assert.ErrorContains(t, Compatible(v2.Record(), v1.Record()), `field "plan" removed`)
	assert.ErrorContains(t, Compatible(v1.Record(), v3.Record()), "changed type")

	requiredAddition := parse(`{"type":"record","name":"MerchantCreated","fields":[
		{"name":"merchant_id","type":"string"},
		{"name":"email","type":"string"},
		{"name":"country","type":"string"}
	]}`)
	assert.ErrorContains(t, Compatible(v1.Record(), requiredAddition.Record()), "without default")
}

// pinnedCatalog reports a fixed version as the local one.
type pinnedCatalog struct {
	*events.Registry
	version int
}

func (p pinnedCatalog) Lookup(name events.Name) (events.Descriptor, error) {
	return p.LookupVersion(name, p.version)
}
