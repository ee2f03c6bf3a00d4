package health

import (
	"github.com/Sokol111/ecommerce-eventbus/pkg/core/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewReadinessModule() fx.Option {
	return fx.Provide(
		func(log *zap.Logger, appConfig config.AppConfig) *readiness {
			return newReadiness(log, appConfig.IsKubernetes)
		},
		func(r *readiness) ComponentManager { return r },
		func(r *readiness) ReadinessChecker { return r },
		func(r *readiness) ReadinessWaiter { return r },
		func(r *readiness) TrafficController { return r },
	)
}
