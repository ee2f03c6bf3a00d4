package eventgen

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
	"github.com/dave/jennifer/jen"
)

const eventsImport = "github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"

const headerComment = "Code generated by eventgen. DO NOT EDIT."

// Generator orchestrates the code generation process.
type Generator struct {
	config *Config
	out    io.Writer
}

// New creates a new Generator with the given configuration.
func New(cfg *Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.AbsolutePaths(); err != nil {
		return nil, err
	}
	return &Generator{config: cfg, out: os.Stdout}, nil
}

// Generate runs the complete code generation process.
func (g *Generator) Generate() error {
	if err := g.config.ValidateForGeneration(); err != nil {
		return err
	}

	g.log("Parsing schemas from %s", g.config.SchemasDir)
	schemas, err := ParseSchemas(g.config.SchemasDir)
	if err != nil {
		return fmt.Errorf("failed to parse schemas: %w", err)
	}
	g.log("Found %d event schemas", len(schemas))

	if err := g.createOutputDirs(); err != nil {
		return err
	}
	if err := g.writeSchemaFiles(schemas); err != nil {
		return err
	}
	if err := g.generateCatalog(schemas); err != nil {
		return err
	}

	g.log("Code generation complete")
	return nil
}

// Validate checks the schemas without generating code.
func (g *Generator) Validate() error {
	schemas, err := ParseSchemas(g.config.SchemasDir)
	if err != nil {
		return err
	}
	for _, s := range schemas {
		g.log("ok %s v%d (%s)", s.Descriptor.Name, s.Descriptor.Version, filepath.Base(s.FilePath))
	}
	return nil
}

func (g *Generator) createOutputDirs() error {
	dirs := []string{
		g.config.OutputDir,
		filepath.Join(g.config.OutputDir, "schemas"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// writeSchemaFiles copies each schema next to the generated code so that
// go:embed can reach it.
func (g *Generator) writeSchemaFiles(schemas []*EventSchema) error {
	for _, s := range schemas {
		path := filepath.Join(g.config.OutputDir, "schemas", s.FileName())
		if err := os.WriteFile(path, s.Raw, 0o644); err != nil {
			return fmt.Errorf("failed to write schema: %w", err)
		}
		g.log("  Created schemas/%s", s.FileName())
	}
	return nil
}

// generateCatalog writes catalog.gen.go: name constants, embedded schemas
// and the Descriptors slice.
func (g *Generator) generateCatalog(schemas []*EventSchema) error {
	f := jen.NewFile(g.config.Package)
	f.HeaderComment(headerComment)
	f.Anon("embed")

	f.Comment("Event names.")
	f.Const().DefsFunc(func(group *jen.Group) {
		seen := make(map[events.Name]bool)
		for _, s := range schemas {
			if seen[s.Descriptor.Name] {
				continue
			}
			seen[s.Descriptor.Name] = true
			group.Id(s.ConstName()).Qual(eventsImport, "Name").Op("=").Lit(string(s.Descriptor.Name))
		}
	})
	f.Line()

	for _, s := range schemas {
		f.Comment(fmt.Sprintf("//go:embed schemas/%s", s.FileName()))
		f.Var().Id(s.SchemaVarName()).String()
		f.Line()
	}

	f.Comment("Descriptors lists every event version of the catalog:")
	f.Comment("")
	f.Comment(fmt.Sprintf("\tevents.ProvideCatalog(%q, %s.Descriptors)", g.config.Package, g.config.Package))
	f.Var().Id("Descriptors").Op("=").Index().Qual(eventsImport, "Descriptor").ValuesFunc(func(group *jen.Group) {
		for _, s := range schemas {
			d := s.Descriptor
			dict := jen.Dict{
				jen.Id("Name"):        jen.Id(s.ConstName()),
				jen.Id("Version"):     jen.Lit(d.Version),
				jen.Id("Direction"):   jen.Qual(eventsImport, directionIdent(d.Direction)),
				jen.Id("ExtraFields"): jen.Qual(eventsImport, extraFieldsIdent(d.ExtraFields)),
				jen.Id("Schema"):      jen.Id(s.SchemaVarName()),
			}
			if d.Description != "" {
				dict[jen.Id("Description")] = jen.Lit(d.Description)
			}
			group.Values(dict)
		}
	})

	path := filepath.Join(g.config.OutputDir, "catalog.gen.go")
	if err := f.Save(path); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	g.log("  Created catalog.gen.go")
	return nil
}

func directionIdent(d events.Direction) string {
	if d == events.Inbound {
		return "Inbound"
	}
	return "Outbound"
}

func extraFieldsIdent(p events.ExtraFieldPolicy) string {
	if p == events.Lenient {
		return "Lenient"
	}
	return "Strict"
}

// log prints a message if verbose mode is enabled.
func (g *Generator) log(format string, args ...any) {
	if g.config.Verbose {
		fmt.Fprintf(g.out, format+"\n", args...)
	}
}
