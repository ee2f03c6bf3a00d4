package health

import (
	"encoding/json"
	"net/http"

	corehealth "github.com/Sokol111/ecommerce-eventbus/pkg/core/health"
	"github.com/Sokol111/ecommerce-eventbus/pkg/http/server"
)

type healthHandler struct {
	readiness      corehealth.ReadinessChecker
	trafficControl corehealth.TrafficController
}

func newHealthHandler(r corehealth.ReadinessChecker, t corehealth.TrafficController) *healthHandler {
	return &healthHandler{readiness: r, trafficControl: t}
}

// IsReady answers the readiness probe. A successful probe marks the process
// ready for traffic.
func (h *healthHandler) IsReady(w http.ResponseWriter, r *http.Request) {
	ready := h.readiness.IsReady()
	if ready {
		h.trafficControl.MarkTrafficReady()
	}

	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}

	if r.URL.Query().Get("format") == "json" || r.Header.Get("Accept") == "application/json" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(h.readiness.GetStatus())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	if ready {
		_, _ = w.Write([]byte("ready"))
	} else {
		_, _ = w.Write([]byte("not ready"))
	}
}

func (h *healthHandler) IsLive(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("alive"))
}

func readyRoute(h *healthHandler) server.Route {
	return server.Route{Pattern: "GET /health/ready", Handler: http.HandlerFunc(h.IsReady)}
}

func liveRoute(h *healthHandler) server.Route {
	return server.Route{Pattern: "GET /health/live", Handler: http.HandlerFunc(h.IsLive)}
}
