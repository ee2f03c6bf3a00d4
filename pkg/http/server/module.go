package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Sokol111/ecommerce-eventbus/pkg/core/health"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type serverOptions struct {
	config *Config
}

type Option func(*serverOptions)

func WithServerConfig(cfg Config) Option {
	return func(o *serverOptions) { o.config = &cfg }
}

// NewHTTPServerModule serves every Route in the http_routes group.
func NewHTTPServerModule(opts ...Option) fx.Option {
	o := &serverOptions{}
	for _, opt := range opts {
		opt(o)
	}

	configProvider := fx.Provide(newConfig)
	if o.config != nil {
		cfg := *o.config
		applyDefaults(&cfg)
		configProvider = fx.Provide(func() (Config, error) {
			return cfg, validateConfig(cfg)
		})
	}

	return fx.Module("http-server",
		configProvider,
		fx.Provide(fx.Annotate(newServeMux, fx.ParamTags(``, routesGroup))),
		fx.Invoke(startHTTPServer),
	)
}

func newServeMux(cfg Config, routes []Route) (http.Handler, error) {
	mux := http.NewServeMux()
	seen := make(map[string]bool, len(routes))
	for _, r := range routes {
		if seen[r.Pattern] {
			return nil, fmt.Errorf("route %q registered twice", r.Pattern)
		}
		seen[r.Pattern] = true
		mux.Handle(r.Pattern, http.MaxBytesHandler(r.Handler, cfg.MaxBodyBytes))
	}
	return mux, nil
}

func startHTTPServer(lc fx.Lifecycle, log *zap.Logger, conf Config, handler http.Handler, readiness health.ComponentManager, shutdowner fx.Shutdowner) {
	srv := newServer(log, conf, handler)
	markReady := readiness.AddComponent("http-server")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ServeWithReadyCallback(markReady); err != nil {
					log.Error("HTTP server failed, shutting down application", zap.Error(err))
					_ = shutdowner.Shutdown() //nolint:errcheck // shutdown is best-effort
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
