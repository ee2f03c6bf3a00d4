package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckCollisions(t *testing.T) {
	t.Run("consumer and producer may share a name", func(t *testing.T) {
		producer := Catalog{Service: "merchant", Descriptors: []Descriptor{merchantCreated(1, merchantCreatedV1)}}
		inbound := merchantCreated(1, merchantCreatedV1)
		inbound.Direction = Inbound
		consumer := Catalog{Service: "catalog", Descriptors: []Descriptor{inbound}}

		assert.NoError(t, CheckCollisions(producer, consumer))
	})

	t.Run("two producers collide", func(t *testing.T) {
		a := Catalog{Service: "merchant", Descriptors: []Descriptor{merchantCreated(1, merchantCreatedV1)}}
		b := Catalog{Service: "billing", Descriptors: []Descriptor{merchantCreated(1, merchantCreatedV1)}}

		err := CheckCollisions(a, b)

		assert.ErrorContains(t, err, "published by both merchant and billing")
	})

	t.Run("conflicting schemas collide", func(t *testing.T) {
		a := Catalog{Service: "merchant", Descriptors: []Descriptor{merchantCreated(1, merchantCreatedV1)}}
		inbound := merchantCreated(1, merchantCreatedV2)
		inbound.Direction = Inbound
		b := Catalog{Service: "catalog", Descriptors: []Descriptor{inbound}}

		var dup *DuplicateEventError
		assert.ErrorAs(t, CheckCollisions(a, b), &dup)
	})

	t.Run("invalid descriptor is reported with its service", func(t *testing.T) {
		bad := Catalog{Service: "merchant", Descriptors: []Descriptor{{Name: "typo", Version: 1, Direction: Outbound, Schema: merchantCreatedV1}}}

		assert.ErrorContains(t, CheckCollisions(bad), "merchant:")
	})
}
