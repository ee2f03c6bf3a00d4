package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// EntityMapper converts between domain values and stored documents.
type EntityMapper[Domain any, Entity any] interface {
	ToEntity(domain *Domain) *Entity
	ToDomain(entity *Entity) *Domain
	GetID(entity *Entity) string
	GetVersion(entity *Entity) int
	SetVersion(entity *Entity, version int)
}

// GenericRepository stores one aggregate per document with a "version" field
// used for optimistic locking. It satisfies mapping.Store.
type GenericRepository[Domain any, Entity any] struct {
	coll   Collection
	mapper EntityMapper[Domain, Entity]
}

func NewGenericRepository[Domain any, Entity any](coll Collection, mapper EntityMapper[Domain, Entity]) (*GenericRepository[Domain, Entity], error) {
	if coll == nil {
		return nil, errors.New("collection is required")
	}
	if mapper == nil {
		return nil, errors.New("mapper is required")
	}
	return &GenericRepository[Domain, Entity]{coll: coll, mapper: mapper}, nil
}

func (r *GenericRepository[Domain, Entity]) Insert(ctx context.Context, domain *Domain) error {
	if _, err := r.coll.InsertOne(ctx, r.mapper.ToEntity(domain)); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", r.coll.Name(), err)
	}
	return nil
}

func (r *GenericRepository[Domain, Entity]) FindByID(ctx context.Context, id string) (*Domain, error) {
	var entity Entity
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&entity)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s %s: %w", r.coll.Name(), id, ErrEntityNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s: %w", r.coll.Name(), id, err)
	}
	return r.mapper.ToDomain(&entity), nil
}

// Update replaces the document if its stored version still equals the
// domain's version, and bumps the version.
func (r *GenericRepository[Domain, Entity]) Update(ctx context.Context, domain *Domain) (*Domain, error) {
	entity := r.mapper.ToEntity(domain)
	current := r.mapper.GetVersion(entity)
	r.mapper.SetVersion(entity, current+1)

	filter := bson.D{
		{Key: "_id", Value: r.mapper.GetID(entity)},
		{Key: "version", Value: current},
	}
	var updated Entity
	err := r.coll.FindOneAndReplace(ctx, filter, entity, options.FindOneAndReplace().SetReturnDocument(options.After)).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrOptimisticLocking
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", r.coll.Name(), err)
	}
	return r.mapper.ToDomain(&updated), nil
}

// List returns a window of documents in _id order and the total count.
func (r *GenericRepository[Domain, Entity]) List(ctx context.Context, offset, limit int) ([]*Domain, int64, error) {
	total, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", r.coll.Name(), err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query %s: %w", r.coll.Name(), err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var entities []Entity
	if err := cursor.All(ctx, &entities); err != nil {
		return nil, 0, fmt.Errorf("failed to decode %s: %w", r.coll.Name(), err)
	}
	out := make([]*Domain, len(entities))
	for i := range entities {
		out[i] = r.mapper.ToDomain(&entities[i])
	}
	return out, total, nil
}

func (r *GenericRepository[Domain, Entity]) Delete(ctx context.Context, id string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", r.coll.Name(), id, err)
	}
	return nil
}
