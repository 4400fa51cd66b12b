package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/climajusto/iacolhe/internal/models"
	"github.com/climajusto/iacolhe/internal/services"
	"github.com/climajusto/iacolhe/internal/utils"
)

type ChatHandler struct {
	responder
	service services.ConversationService
}

func NewChatHandler(service services.ConversationService, logger *utils.Logger) *ChatHandler {
	return &ChatHandler{
		responder: responder{logger: logger},
		service:   service,
	}
}

func (h *ChatHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.StartSession(r.Context(), identity(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Session(r.Context(), identity(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

func (h *ChatHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	h.service.EndSession(identity(r))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, utils.NewBadRequestError("Invalid request body"))
		return
	}

	view, err := h.service.Submit(r.Context(), identity(r), req.Content)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}
