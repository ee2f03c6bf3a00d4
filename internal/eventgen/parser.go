package eventgen

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
)

// ParseSchemas reads every *.avsc file in dir and returns them ordered by
// event name and version. Conflicts the registry would reject at startup
// are reported here instead.
func ParseSchemas(dir string) ([]*EventSchema, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.avsc"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob schema files: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no *.avsc files found in %s", dir)
	}

	schemas := make([]*EventSchema, 0, len(paths))
	for _, file := range paths {
		data, err := os.ReadFile(file) //nolint:gosec // File paths come from controlled glob pattern
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		s, err := ParseEventSchema(file, data)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}

	sort.Slice(schemas, func(i, j int) bool {
		a, b := schemas[i].Descriptor, schemas[j].Descriptor
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Version < b.Version
	})

	// a scratch registry applies the same duplicate and direction rules
	registry := events.NewRegistry(events.TopicMap{})
	consts := make(map[string]events.Name)
	files := make(map[string]string)
	for _, s := range schemas {
		if prev, ok := files[s.FileName()]; ok {
			return nil, fmt.Errorf("%s: %s v%d is already declared in %s", s.FilePath, s.Descriptor.Name, s.Descriptor.Version, prev)
		}
		files[s.FileName()] = s.FilePath
		if err := registry.Register(s.Descriptor); err != nil {
			return nil, fmt.Errorf("%s: %w", s.FilePath, err)
		}
		if other, ok := consts[s.ConstName()]; ok && other != s.Descriptor.Name {
			return nil, fmt.Errorf("%s: events %s and %s both map to constant %s", s.FilePath, other, s.Descriptor.Name, s.ConstName())
		}
		consts[s.ConstName()] = s.Descriptor.Name
	}
	return schemas, nil
}
