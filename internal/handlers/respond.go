package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/climajusto/iacolhe/internal/auth"
	"github.com/climajusto/iacolhe/internal/models"
	"github.com/climajusto/iacolhe/internal/utils"
)

type errorBody struct {
	Error        string               `json:"error"`
	Notification *models.Notification `json:"notification,omitempty"`
}

// responder holds the JSON response helpers every handler shares.
type responder struct {
	logger *utils.Logger
}

func (h responder) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (h responder) respondError(w http.ResponseWriter, err error) {
	body := errorBody{Error: "Internal server error"}
	status := http.StatusInternalServerError

	if appErr, ok := utils.AsAppError(err); ok {
		status = appErr.StatusCode
		body.Error = appErr.Message
		body.Notification = appErr.Notification
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request error", "status", status, "error", err)
	} else {
		h.logger.Warn("Request rejected", "status", status, "error", err)
	}

	h.respondJSON(w, status, body)
}

func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}
