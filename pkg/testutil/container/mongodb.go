package container

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongooptions "go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoDBContainer is a running MongoDB with a connected client.
type MongoDBContainer struct {
	Container        *mongodb.MongoDBContainer
	Client           *mongo.Client
	ConnectionString string
}

type MongoDBOption func(*mongoDBOptions)

type mongoDBOptions struct {
	image      string
	replicaSet string
}

func WithMongoDBImage(image string) MongoDBOption {
	return func(o *mongoDBOptions) { o.image = image }
}

// WithReplicaSet starts a single node replica set, needed for transactions.
func WithReplicaSet(name string) MongoDBOption {
	return func(o *mongoDBOptions) { o.replicaSet = name }
}

func StartMongoDBContainer(ctx context.Context, opts ...MongoDBOption) (*MongoDBContainer, error) {
	o := &mongoDBOptions{image: "mongo:7"}
	for _, opt := range opts {
		opt(o)
	}

	var customizers []testcontainers.ContainerCustomizer
	if o.replicaSet != "" {
		customizers = append(customizers, mongodb.WithReplicaSet(o.replicaSet))
	}

	ctr, err := mongodb.Run(ctx, o.image, customizers...)
	if err != nil {
		return nil, fmt.Errorf("failed to start mongodb container: %w", err)
	}
	m := &MongoDBContainer{Container: ctr}

	if m.ConnectionString, err = ctr.ConnectionString(ctx); err != nil {
		return nil, m.abort(fmt.Errorf("failed to get connection string: %w", err))
	}
	if m.Client, err = mongo.Connect(mongooptions.Client().ApplyURI(m.ConnectionString)); err != nil {
		return nil, m.abort(fmt.Errorf("failed to connect to mongodb: %w", err))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := m.Client.Ping(pingCtx, nil); err != nil {
		return nil, m.abort(fmt.Errorf("failed to ping mongodb: %w", err))
	}
	return m, nil
}

func (m *MongoDBContainer) Database(name string) *mongo.Database {
	return m.Client.Database(name)
}

func (m *MongoDBContainer) Terminate(ctx context.Context) error {
	var errs []error
	if m.Client != nil {
		if err := m.Client.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to disconnect from mongodb: %w", err))
		}
	}
	if m.Container != nil {
		if err := testcontainers.TerminateContainer(m.Container); err != nil {
			errs = append(errs, fmt.Errorf("failed to terminate mongodb container: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (m *MongoDBContainer) abort(cause error) error {
	return errors.Join(cause, m.Terminate(context.Background()))
}
