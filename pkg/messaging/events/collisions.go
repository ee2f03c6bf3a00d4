package events

import (
	"errors"
	"fmt"
)

// Catalog is the set of events one service declares.
type Catalog struct {
	Service     string
	Descriptors []Descriptor
}

type declaration struct {
	service    string
	descriptor Descriptor
}

// CheckCollisions verifies that no two catalogs publish the same event and
// that every shared name and version agrees on its schema.
func CheckCollisions(catalogs ...Catalog) error {
	producers := make(map[Name]string)
	schemas := make(map[Name]map[int]declaration)
	var errs []error

	for _, catalog := range catalogs {
		for _, raw := range catalog.Descriptors {
			d, err := raw.Parse()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", catalog.Service, err))
				continue
			}

			if d.Direction == Outbound {
				if owner, ok := producers[d.Name]; ok && owner != catalog.Service {
					errs = append(errs, fmt.Errorf("event %s is published by both %s and %s", d.Name, owner, catalog.Service))
				} else {
					producers[d.Name] = catalog.Service
				}
			}

			if schemas[d.Name] == nil {
				schemas[d.Name] = make(map[int]declaration)
			}
			prev, ok := schemas[d.Name][d.Version]
			if !ok {
				schemas[d.Name][d.Version] = declaration{service: catalog.Service, descriptor: d}
				continue
			}
			if prev.descriptor.Fingerprint() != d.Fingerprint() {
				errs = append(errs, &DuplicateEventError{
					Name:    d.Name,
					Version: d.Version,
					Reason:  fmt.Sprintf("schemas declared by %s and %s differ", prev.service, catalog.Service),
				})
			}
		}
	}
	return errors.Join(errs...)
}
