package persistence

import (
	"github.com/Sokol111/ecommerce-eventbus/pkg/persistence/mongo"
	"github.com/Sokol111/ecommerce-eventbus/pkg/persistence/redis"
	"go.uber.org/fx"
)

type persistenceOptions struct {
	mongo   []mongo.Option
	redis   []redis.Option
	noMongo bool
	noRedis bool
}

type Option func(*persistenceOptions)

func WithMongoConfig(cfg mongo.Config) Option {
	return func(o *persistenceOptions) { o.mongo = append(o.mongo, mongo.WithMongoConfig(cfg)) }
}

func WithRedisConfig(cfg redis.Config) Option {
	return func(o *persistenceOptions) { o.redis = append(o.redis, redis.WithRedisConfig(cfg)) }
}

// WithoutMongo skips the Mongo client, e.g. when dedup runs on Redis and the
// service keeps no entities.
func WithoutMongo() Option {
	return func(o *persistenceOptions) { o.noMongo = true }
}

func WithoutRedis() Option {
	return func(o *persistenceOptions) { o.noRedis = true }
}

// NewPersistenceModule provides the Mongo and Redis clients.
//
//	persistence.NewPersistenceModule(persistence.WithoutMongo())
func NewPersistenceModule(opts ...Option) fx.Option {
	o := &persistenceOptions{}
	for _, opt := range opts {
		opt(o)
	}

	var modules []fx.Option
	if !o.noMongo {
		modules = append(modules, mongo.NewMongoModule(o.mongo...))
	}
	if !o.noRedis {
		modules = append(modules, redis.NewRedisModule(o.redis...))
	}
	return fx.Options(modules...)
}
