package handlers

import (
	"encoding/json"
	"mime"
	"net/http"
	"strconv"

	"github.com/climajusto/iacolhe/internal/models"
	"github.com/climajusto/iacolhe/internal/services"
	"github.com/climajusto/iacolhe/internal/utils"
	"github.com/gorilla/mux"
)

// ReviewHandler serves the agent panel. Every request enters the panel first,
// which is where the agent role is checked.
type ReviewHandler struct {
	responder
	review    services.ReviewService
	analytics services.AnalyticsService
}

func NewReviewHandler(review services.ReviewService, analytics services.AnalyticsService, logger *utils.Logger) *ReviewHandler {
	return &ReviewHandler{
		responder: responder{logger: logger},
		review:    review,
		analytics: analytics,
	}
}

func (h *ReviewHandler) enter(w http.ResponseWriter, r *http.Request) (services.ReviewPanel, bool) {
	panel, err := h.review.Enter(r.Context(), identity(r))
	if err != nil {
		h.respondError(w, err)
		return nil, false
	}
	return panel, true
}

func (h *ReviewHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	panel, ok := h.enter(w, r)
	if !ok {
		return
	}

	requests, err := panel.ListRequests(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

func (h *ReviewHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	panel, ok := h.enter(w, r)
	if !ok {
		return
	}

	detail, err := panel.RequestDetail(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, detail)
}

func (h *ReviewHandler) Decide(w http.ResponseWriter, r *http.Request) {
	panel, ok := h.enter(w, r)
	if !ok {
		return
	}

	var req models.DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, utils.NewBadRequestError("Invalid request body"))
		return
	}

	decided, err := panel.Decide(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, decided)
}

func (h *ReviewHandler) DownloadOriginal(w http.ResponseWriter, r *http.Request) {
	panel, ok := h.enter(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	file, err := panel.Original(r.Context(), vars["id"], vars["analysisID"])
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		h.logger.Error("Failed to write document", "error", err)
	}
}

func (h *ReviewHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.enter(w, r); !ok {
		return
	}

	docs, err := h.analytics.Documents(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	reqs, err := h.analytics.Requests(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"requests":  reqs,
	})
}
