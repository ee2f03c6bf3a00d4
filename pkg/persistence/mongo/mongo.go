package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/v2/mongo/otelmongo"
	"go.uber.org/zap"
)

// Mongo hands out collections of the configured database.
type Mongo interface {
	Collection(name string) Collection
	Database() *mongo.Database
}

type client struct {
	client   *mongo.Client
	database *mongo.Database
	conf     Config
	log      *zap.Logger
}

func newMongo(log *zap.Logger, conf Config, appName string) (*client, error) {
	opts := options.Client().
		ApplyURI(buildURI(conf)).
		SetAppName(appName).
		SetMaxPoolSize(conf.MaxPoolSize).
		SetMinPoolSize(conf.MinPoolSize).
		SetMaxConnIdleTime(conf.MaxConnIdleTime).
		SetConnectTimeout(conf.ConnectTimeout).
		SetServerSelectionTimeout(conf.ServerSelectTimeout).
		SetTimeout(conf.QueryTimeout).
		SetMonitor(otelmongo.NewMonitor())

	// no I/O happens here; connect pings
	c, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}
	return &client{
		client:   c,
		database: c.Database(conf.Database),
		conf:     conf,
		log:      log,
	}, nil
}

func (m *client) connect(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, m.conf.ConnectTimeout)
	defer cancel()
	if err := m.client.Ping(c, nil); err != nil {
		return fmt.Errorf("failed to ping mongo: %w", err)
	}
	m.log.Info("connected to mongo",
		zap.String("database", m.conf.Database),
		zap.Uint64("max-pool-size", m.conf.MaxPoolSize),
		zap.Duration("query-timeout", m.conf.QueryTimeout))
	return nil
}

func (m *client) disconnect(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, m.conf.ConnectTimeout)
	defer cancel()
	if err := m.client.Disconnect(c); err != nil {
		return fmt.Errorf("failed to disconnect from mongo: %w", err)
	}
	m.log.Info("disconnected from mongo")
	return nil
}

func (m *client) Collection(name string) Collection {
	return m.database.Collection(name)
}

func (m *client) Database() *mongo.Database {
	return m.database
}

func buildURI(conf Config) string {
	if conf.ConnectionString != "" {
		return conf.ConnectionString
	}

	u := url.URL{
		Scheme: "mongodb",
		Host:   conf.Host + ":" + strconv.Itoa(conf.Port),
		Path:   "/" + conf.Database,
	}
	if conf.Username != "" {
		u.User = url.UserPassword(conf.Username, conf.Password)
	}
	q := url.Values{}
	if conf.ReplicaSet != "" {
		q.Set("replicaSet", conf.ReplicaSet)
	}
	if conf.DirectConnection {
		q.Set("directConnection", "true")
	}
	u.RawQuery = q.Encode()
	return u.String()
}
