package handlers

import (
	"context"
	"net/http"

	"github.com/climajusto/iacolhe/internal/utils"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	responder
	db Pinger
}

func NewHealthHandler(db Pinger, logger *utils.Logger) *HealthHandler {
	return &HealthHandler{responder: responder{logger: logger}, db: db}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		h.logger.Error("Health check failed", "error", err)
		h.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
