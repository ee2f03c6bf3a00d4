package health

import (
	"github.com/Sokol111/ecommerce-eventbus/pkg/http/server"
	"go.uber.org/fx"
)

// NewHealthRoutesModule mounts /health/ready and /health/live on the HTTP server.
func NewHealthRoutesModule() fx.Option {
	return fx.Module("health-routes",
		fx.Provide(
			newHealthHandler,
			server.AsRoute(readyRoute),
			server.AsRoute(liveRoute),
		),
	)
}
