package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Sokol111/ecommerce-eventbus/pkg/http/server"
	"go.uber.org/zap"
)

const intakePattern = "POST /webhooks/{source}"

type acceptedResponse struct {
	MessageID  string `json:"message_id"`
	ExternalID string `json:"external_id"`
}

// IntakeHandler exposes Intake over HTTP at POST /webhooks/{source}.
type IntakeHandler struct {
	intake *Intake
	log    *zap.Logger
}

func NewIntakeHandler(intake *Intake, log *zap.Logger) *IntakeHandler {
	return &IntakeHandler{intake: intake, log: log}
}

func (h *IntakeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	env, err := h.intake.Accept(r.Context(), Delivery{
		Source:  r.PathValue("source"),
		Headers: r.Header,
		Body:    body,
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrUnsupportedSource):
		http.Error(w, "unknown source", http.StatusNotFound)
		return
	case errors.Is(err, ErrInvalidSignature):
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	default:
		// providers retry on 5xx, which is what a failed publish needs
		h.log.Error("webhook not published", zap.Error(err))
		http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(acceptedResponse{MessageID: env.ID, ExternalID: env.External.ID})
}

func intakeRoute(h *IntakeHandler) server.Route {
	return server.Route{Pattern: intakePattern, Handler: h}
}
