package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/climajusto/iacolhe/internal/models"
	"github.com/climajusto/iacolhe/internal/services"
	"github.com/climajusto/iacolhe/internal/utils"
	"github.com/gorilla/mux"
)

type ProtocolHandler struct {
	responder
	service services.ProtocolService
}

func NewProtocolHandler(service services.ProtocolService, logger *utils.Logger) *ProtocolHandler {
	return &ProtocolHandler{
		responder: responder{logger: logger},
		service:   service,
	}
}

func (h *ProtocolHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var form models.ProtocolForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		h.respondError(w, utils.NewBadRequestError("Invalid request body"))
		return
	}

	receipt, err := h.service.Simulate(r.Context(), form)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, receipt)
}

func (h *ProtocolHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Lookup(r.Context(), mux.Vars(r)["protocol"])
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, status)
}
