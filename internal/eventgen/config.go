// Package eventgen generates a typed event catalog from annotated Avro schemas.
//
// Every *.avsc file in the schemas directory declares one version of one
// event. Besides the usual record fields it carries four annotations:
//
//	{
//	  "type": "record",
//	  "name": "MerchantCreated",
//	  "event": "merchant.created",
//	  "version": 1,
//	  "direction": "outbound",
//	  "extra-fields": "strict",
//	  "fields": [...]
//	}
//
// The generated package holds an events.Name constant per event, the schemas
// embedded verbatim and a Descriptors slice ready for events.ProvideCatalog.
//
// Basic usage:
//
//	gen, err := eventgen.New(&eventgen.Config{
//		SchemasDir: "./schemas",
//		OutputDir:  "./gen/catalog",
//		Package:    "catalog",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := gen.Generate(); err != nil {
//		log.Fatal(err)
//	}
package eventgen

import (
	"errors"
	"fmt"
	"path/filepath"
)

const defaultPackage = "catalog"

// Config holds the configuration for the generator.
type Config struct {
	// SchemasDir is the directory containing annotated *.avsc files.
	SchemasDir string
	// OutputDir is where the generated package is written.
	OutputDir string
	// Package is the Go package name. Defaults to "catalog".
	Package string
	// Verbose enables detailed logging during generation.
	Verbose bool
}

// Validate checks that the configuration is usable and fills defaults.
func (c *Config) Validate() error {
	if c.SchemasDir == "" {
		return errors.New("schemas directory is required")
	}
	if c.Package == "" {
		c.Package = defaultPackage
	}
	return nil
}

// ValidateForGeneration also requires an output directory.
func (c *Config) ValidateForGeneration() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.OutputDir == "" {
		return errors.New("output directory is required for generation")
	}
	return nil
}

// AbsolutePaths converts relative paths to absolute paths.
func (c *Config) AbsolutePaths() error {
	var err error
	if c.SchemasDir != "" {
		if c.SchemasDir, err = filepath.Abs(c.SchemasDir); err != nil {
			return fmt.Errorf("failed to resolve schemas directory: %w", err)
		}
	}
	if c.OutputDir != "" {
		if c.OutputDir, err = filepath.Abs(c.OutputDir); err != nil {
			return fmt.Errorf("failed to resolve output directory: %w", err)
		}
	}
	return nil
}
