package mapping

import (
	"context"
	"fmt"
)

// Store persists entities by id. mongo.GenericRepository satisfies it.
type Store[E any] interface {
	Insert(ctx context.Context, entity *E) error
	FindByID(ctx context.Context, id string) (*E, error)
	Update(ctx context.Context, entity *E) (*E, error)
	List(ctx context.Context, offset, limit int) ([]*E, int64, error)
}

// Page is one slice of a listing and the total count behind it.
type Page[O any] struct {
	Items []O
	Total int64
}

// CRUD composes a Bridge with a Store.
type CRUD[E, C, P, O any] struct {
	bridge *Bridge[E, C, P, O]
	store  Store[E]
	extras func() map[string]any
}

type CRUDOption func(*crudOptions)

type crudOptions struct {
	extras func() map[string]any
}

// WithExtras supplies server-side fields, such as ids and timestamps, for
// every Create.
func WithExtras(fn func() map[string]any) CRUDOption {
	return func(o *crudOptions) { o.extras = fn }
}

func NewCRUD[E, C, P, O any](store Store[E], opts ...CRUDOption) (*CRUD[E, C, P, O], error) {
	o := &crudOptions{}
	for _, opt := range opts {
		opt(o)
	}
	b, err := NewBridge[E, C, P, O]()
	if err != nil {
		return nil, err
	}
	return &CRUD[E, C, P, O]{bridge: b, store: store, extras: o.extras}, nil
}

func (c *CRUD[E, C, P, O]) Bridge() *Bridge[E, C, P, O] {
	return c.bridge
}

func (c *CRUD[E, C, P, O]) Create(ctx context.Context, in C) (O, error) {
	var zero O
	var extras map[string]any
	if c.extras != nil {
		extras = c.extras()
	}
	entity, err := c.bridge.ToModel(in, extras)
	if err != nil {
		return zero, err
	}
	if err := c.store.Insert(ctx, entity); err != nil {
		return zero, fmt.Errorf("insert: %w", err)
	}
	return c.bridge.ToOutput(entity), nil
}

func (c *CRUD[E, C, P, O]) Get(ctx context.Context, id string) (O, error) {
	var zero O
	entity, err := c.store.FindByID(ctx, id)
	if err != nil {
		return zero, err
	}
	return c.bridge.ToOutput(entity), nil
}

// Patch loads the entity, applies patch and stores it when something
// changed. The changed field names are returned with the result.
func (c *CRUD[E, C, P, O]) Patch(ctx context.Context, id string, patch P) (O, []string, error) {
	var zero O
	entity, err := c.store.FindByID(ctx, id)
	if err != nil {
		return zero, nil, err
	}
	changed, err := c.bridge.ApplyPatch(entity, patch)
	if err != nil {
		return zero, nil, err
	}
	if len(changed) == 0 {
		return c.bridge.ToOutput(entity), nil, nil
	}
	updated, err := c.store.Update(ctx, entity)
	if err != nil {
		return zero, nil, fmt.Errorf("update: %w", err)
	}
	return c.bridge.ToOutput(updated), changed, nil
}

func (c *CRUD[E, C, P, O]) List(ctx context.Context, offset, limit int) (Page[O], error) {
	entities, total, err := c.store.List(ctx, offset, limit)
	if err != nil {
		return Page[O]{}, err
	}
	return Page[O]{Items: c.bridge.ToOutputs(entities), Total: total}, nil
}
