package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/climajusto/iacolhe/internal/models"
	"github.com/climajusto/iacolhe/internal/services"
	"github.com/climajusto/iacolhe/internal/utils"
)

const (
	MaxFilesPerUpload = 10
	formOverhead      = 1 << 20
)

type DocumentHandler struct {
	responder
	service     services.IntakeService
	maxFileSize int64
}

func NewDocumentHandler(service services.IntakeService, maxFileSize int64, logger *utils.Logger) *DocumentHandler {
	return &DocumentHandler{
		responder:   responder{logger: logger},
		service:     service,
		maxFileSize: maxFileSize,
	}
}

// Upload accepts a multipart form with one or more "files" parts.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	limit := h.maxFileSize*MaxFilesPerUpload + formOverhead
	if r.ContentLength > limit {
		h.respondError(w, utils.NewBadRequestError("Upload too large"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(w, utils.NewBadRequestError("Upload too large"))
			return
		}
		h.respondError(w, utils.NewBadRequestError("Invalid form data"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		h.respondError(w, utils.NewBadRequestError("No files provided"))
		return
	}
	if len(headers) > MaxFilesPerUpload {
		h.respondError(w, utils.NewBadRequestError("Too many files in one upload"))
		return
	}

	files := make([]models.UploadFile, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			h.respondError(w, utils.NewBadRequestError("Failed to read file").WithCause(err))
			return
		}
		// One byte over the limit is enough for the service to reject the file.
		data, err := io.ReadAll(io.LimitReader(f, h.maxFileSize+1))
		f.Close()
		if err != nil {
			h.respondError(w, utils.NewInternalError("Failed to read file").WithCause(err))
			return
		}

		h.logger.Info("File upload attempt",
			"filename", header.Filename,
			"reported_content_type", header.Header.Get("Content-Type"),
			"size", header.Size)

		files = append(files, models.UploadFile{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	result, err := h.service.Process(r.Context(), identity(r), files)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

func (h *DocumentHandler) Statuses(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	if id.ID == "" {
		h.respondError(w, utils.NewUnauthorizedError("Login required"))
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"documents": h.service.Statuses(id)})
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	analyses, err := h.service.List(r.Context(), identity(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"documents": analyses})
}
