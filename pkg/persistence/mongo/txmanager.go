package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// TxManager runs functions inside a multi-document transaction. It needs a
// replica set.
type TxManager interface {
	// WithTransaction runs fn with a ctx bound to the session; fn may be
	// retried on transient transaction errors.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error)
}

type txManager struct {
	client *mongo.Client
}

func NewTxManager(m Mongo) TxManager {
	return &txManager{client: m.Database().Client()}
}

func (t *txManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	session, err := t.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, fn)
	if err != nil {
		return result, fmt.Errorf("transaction failed: %w", err)
	}
	return result, nil
}
