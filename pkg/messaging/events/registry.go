package events

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
)

// Registry is the process-wide catalog of event contracts. It is filled at
// startup and sealed before the first message flows; lookups are safe for
// concurrent use at any time.
type Registry struct {
	mu       sync.RWMutex
	versions map[Name]map[int]Descriptor
	latest   map[Name]int
	topics   TopicMap
	sealed   atomic.Bool
}

func NewRegistry(topics TopicMap) *Registry {
	if topics == nil {
		topics = DefaultTopicMap()
	}
	return &Registry{
		versions: make(map[Name]map[int]Descriptor),
		latest:   make(map[Name]int),
		topics:   topics,
	}
}

// Register adds d. Registering an identical descriptor again is a no-op.
func (r *Registry) Register(d Descriptor) error {
	if r.sealed.Load() {
		return ErrRegistrySealed
	}
	parsed, err := d.Parse()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	byVersion, known := r.versions[parsed.Name]
	if !known {
		byVersion = make(map[int]Descriptor)
		r.versions[parsed.Name] = byVersion
	}

	for _, existing := range byVersion {
		if existing.Direction != parsed.Direction {
			return &DuplicateEventError{
				Name:    parsed.Name,
				Version: parsed.Version,
				Reason:  "declared " + string(existing.Direction) + " by an earlier version",
			}
		}
	}
	if existing, ok := byVersion[parsed.Version]; ok {
		if existing.sameContract(parsed) {
			return nil
		}
		return &DuplicateEventError{Name: parsed.Name, Version: parsed.Version, Reason: "schema differs"}
	}

	byVersion[parsed.Version] = parsed
	if parsed.Version > r.latest[parsed.Name] {
		r.latest[parsed.Name] = parsed.Version
	}
	return nil
}

// MustRegister is Register for static catalogs; it panics on error.
func (r *Registry) MustRegister(descriptors ...Descriptor) {
	for _, d := range descriptors {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the highest registered version of name.
func (r *Registry) Lookup(name Name) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.latest[name]
	if !ok {
		return Descriptor{}, &NotFoundError{Name: name}
	}
	return r.versions[name][v], nil
}

func (r *Registry) LookupVersion(name Name, version int) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byVersion, ok := r.versions[name]
	if !ok {
		return Descriptor{}, &NotFoundError{Name: name}
	}
	d, ok := byVersion[version]
	if !ok {
		return Descriptor{}, &NotFoundError{Name: name, Version: version}
	}
	return d, nil
}

// Seal freezes the registry. Further Register calls fail with ErrRegistrySealed.
func (r *Registry) Seal() {
	r.sealed.Store(true)
}

func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

// Descriptors returns every registered descriptor ordered by name and version.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := lo.FlatMap(lo.Values(r.versions), func(byVersion map[int]Descriptor, _ int) []Descriptor {
		return lo.Values(byVersion)
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Version < out[j].Version
	})
	return out
}

// Names returns the registered event names in order.
func (r *Registry) Names() []Name {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := lo.Keys(r.latest)
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// ClassifyWebhookTopic maps an external topic to the internal event name.
// The second result is false when the source or topic is not on the allow-list.
func (r *Registry) ClassifyWebhookTopic(source, rawTopic string) (Name, bool) {
	return r.topics.Lookup(source, rawTopic)
}

// IsWebhookEvent reports whether name is the target of some allowed webhook
// topic. Such events arrive wrapped in webhook.received rather than on their
// own subject.
func (r *Registry) IsWebhookEvent(name Name) bool {
	return lo.Contains(r.topics.Targets(), name)
}
