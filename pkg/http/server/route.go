package server

import (
	"net/http"

	"go.uber.org/fx"
)

const routesGroup = `group:"http_routes"`

// Route is one handler mounted on the server's mux. Pattern uses the
// http.ServeMux syntax, e.g. "POST /webhooks/{source}".
type Route struct {
	Pattern string
	Handler http.Handler
}

// AsRoute annotates a constructor returning Route so that the server module
// mounts it.
func AsRoute(constructor any) any {
	return fx.Annotate(constructor, fx.ResultTags(routesGroup))
}
