package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/climajusto/iacolhe/internal/models"
	"github.com/climajusto/iacolhe/internal/services"
	"github.com/climajusto/iacolhe/internal/utils"
)

// RelayHandler serves the two public relay endpoints. Whatever goes wrong, the
// caller sees 200, 429, 402 or 500 and a {"error": ...} body.
type RelayHandler struct {
	responder
	service services.RelayService
}

func NewRelayHandler(service services.RelayService, logger *utils.Logger) *RelayHandler {
	return &RelayHandler{
		responder: responder{logger: logger},
		service:   service,
	}
}

func (h *RelayHandler) Chat(w http.ResponseWriter, r *http.Request) {
	if !h.requirePost(w, r) {
		return
	}

	var req models.ChatRelayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, utils.NewInternalError(err.Error()).WithCause(err))
		return
	}

	reply, err := h.service.Chat(r.Context(), req.Messages)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, models.ChatRelayResponse{Response: reply})
}

func (h *RelayHandler) ExtractDocument(w http.ResponseWriter, r *http.Request) {
	if !h.requirePost(w, r) {
		return
	}

	var req models.ExtractionRelayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, utils.NewInternalError(err.Error()).WithCause(err))
		return
	}

	resp, err := h.service.ExtractDocument(r.Context(), &req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// requirePost answers any other method through the same 500 error body as a bad request.
func (h *RelayHandler) requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodPost {
		return true
	}
	h.respondError(w, utils.NewInternalError(fmt.Sprintf("Method %s not allowed", r.Method)))
	return false
}
