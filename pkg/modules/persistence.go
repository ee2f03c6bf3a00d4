package modules

import (
	"github.com/Sokol111/ecommerce-eventbus/pkg/persistence"
	"go.uber.org/fx"
)

// NewPersistenceModule provides persistence functionality: mongo, redis
func NewPersistenceModule(opts ...persistence.Option) fx.Option {
	return persistence.NewPersistenceModule(opts...)
}
