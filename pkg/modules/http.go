package modules

import (
	"github.com/Sokol111/ecommerce-eventbus/pkg/http/health"
	"github.com/Sokol111/ecommerce-eventbus/pkg/http/server"
	"go.uber.org/fx"
)

// NewHTTPModule provides the HTTP server with health probes.
// Webhook intake mounts itself when webhook.WithIntake is used.
func NewHTTPModule() fx.Option {
	return fx.Options(
		server.NewHTTPServerModule(),
		health.NewHealthRoutesModule(),
	)
}
