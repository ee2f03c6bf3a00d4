package eventgen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const merchantCreatedV1 = `{
  "type": "record",
  "name": "MerchantCreated",
  "doc": "a merchant signed up",
  "event": "merchant.created",
  "version": 1,
  "direction": "outbound",
  "fields": [
    {"name": "merchant_id", "type": "string"}
  ]
}`

const merchantCreatedV2 = `{
  "type": "record",
  "name": "MerchantCreated",
  "event": "merchant.created",
  "version": 2,
  "direction": "outbound",
  "fields": [
    {"name": "merchant_id", "type": "string"},
    {"name": "plan", "type": ["null", "string"], "default": null}
  ]
}`

const itemUpdated = `{
  "type": "record",
  "name": "ItemUpdated",
  "event": "webhook.catalog.item_updated",
  "version": 1,
  "direction": "inbound",
  "extra-fields": "lenient",
  "fields": [
    {"name": "id", "type": "long"}
  ]
}`

func writeSchemas(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestParseSchemas(t *testing.T) {
	dir := writeSchemas(t, map[string]string{
		"item_updated.avsc":        itemUpdated,
		"merchant_created_v2.avsc": merchantCreatedV2,
		"merchant_created.avsc":    merchantCreatedV1,
	})

	schemas, err := ParseSchemas(dir)

	require.NoError(t, err)
	require.Len(t, schemas, 3)
	assert.Equal(t, events.Name("merchant.created"), schemas[0].Descriptor.Name)
	assert.Equal(t, 1, schemas[0].Descriptor.Version)
	assert.Equal(t, 2, schemas[1].Descriptor.Version)
	assert.Equal(t, events.Lenient, schemas[2].Descriptor.ExtraFields)
	assert.Equal(t, events.Inbound, schemas[2].Descriptor.Direction)
	assert.Equal(t, "WebhookCatalogItemUpdated", schemas[2].ConstName())
	assert.Equal(t, "merchantCreatedV2Schema", schemas[1].SchemaVarName())
	assert.Equal(t, "merchant.created.v1.avsc", schemas[0].FileName())
}

func TestParseSchemas_Errors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{"empty dir", map[string]string{}, "no *.avsc files"},
		{"missing event", map[string]string{"a.avsc": `{"type": "record", "name": "A", "fields": []}`}, "'event' annotation"},
		{"not a record", map[string]string{"a.avsc": `{"type": "enum", "name": "A", "symbols": ["X"]}`}, "expected record"},
		{"bad direction", map[string]string{"a.avsc": `{"type": "record", "name": "A", "event": "a.b", "version": 1, "direction": "both", "fields": []}`}, "invalid direction"},
		{"same version twice", map[string]string{"a.avsc": merchantCreatedV1, "b.avsc": merchantCreatedV1}, "already declared"},
		{"direction flips between versions", map[string]string{
			"a.avsc": merchantCreatedV1,
			"b.avsc": `{"type": "record", "name": "MerchantCreated", "event": "merchant.created", "version": 2, "direction": "inbound", "fields": []}`,
		}, "declared outbound"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchemas(writeSchemas(t, tt.files))

			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestGenerate(t *testing.T) {
	schemasDir := writeSchemas(t, map[string]string{
		"merchant_created.avsc":    merchantCreatedV1,
		"merchant_created_v2.avsc": merchantCreatedV2,
		"item_updated.avsc":        itemUpdated,
	})
	outDir := filepath.Join(t.TempDir(), "catalog")

	gen, err := New(&Config{SchemasDir: schemasDir, OutputDir: outDir, Package: "catalog"})
	require.NoError(t, err)
	require.NoError(t, gen.Generate())

	code, err := os.ReadFile(filepath.Join(outDir, "catalog.gen.go"))
	require.NoError(t, err)
	src := string(code)

	assert.Contains(t, src, "Code generated by eventgen. DO NOT EDIT.")
	assert.Regexp(t, `MerchantCreated\s+events\.Name = "merchant\.created"`, src)
	assert.Regexp(t, `WebhookCatalogItemUpdated\s+events\.Name = "webhook\.catalog\.item_updated"`, src)
	assert.Contains(t, src, "//go:embed schemas/merchant.created.v2.avsc")
	assert.Contains(t, src, "var Descriptors = []events.Descriptor{")
	assert.Regexp(t, `Direction:\s+events\.Inbound`, src)
	assert.Regexp(t, `Description:\s+"a merchant signed up"`, src)

	embedded, err := os.ReadFile(filepath.Join(outDir, "schemas", "merchant.created.v1.avsc"))
	require.NoError(t, err)
	assert.Equal(t, merchantCreatedV1, string(embedded))
}

func TestConfig_Validate(t *testing.T) {
	cfg := &Config{SchemasDir: "schemas"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, defaultPackage, cfg.Package)

	assert.Error(t, (&Config{}).Validate())
	assert.Error(t, (&Config{SchemasDir: "schemas"}).ValidateForGeneration())
}
