package modules

import (
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/broker"
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/dispatcher"
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/events"
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/outbox"
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/schema"
	"github.com/Sokol111/ecommerce-eventbus/pkg/messaging/stream"
	"go.uber.org/fx"
)

// NewMessagingModule provides messaging functionality: broker, streams, registry, validator, dispatcher.
// Catalogs are added with events.ProvideCatalog and consumers with dispatcher.RegisterConsumer.
func NewMessagingModule() fx.Option {
	return fx.Options(
		broker.NewBrokerModule(),
		stream.NewStreamModule(),
		events.NewRegistryModule(),
		schema.NewValidatorModule(),
		dispatcher.NewDispatcherModule(),
	)
}

// NewOutboxModule provides the transactional outbox. It needs NewMessagingModule
// and NewPersistenceModule with mongo.
func NewOutboxModule() fx.Option {
	return outbox.NewOutboxModule()
}
