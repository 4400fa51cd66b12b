package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/climajusto/iacolhe/internal/auth"
	"github.com/climajusto/iacolhe/internal/models"
	"github.com/climajusto/iacolhe/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRelay struct {
	chatCalls int
}

func (s *stubRelay) Chat(ctx context.Context, msgs []models.Message) (string, error) {
	s.chatCalls++
	return "resposta", nil
}

func (s *stubRelay) ExtractDocument(ctx context.Context, req *models.ExtractionRelayRequest) (*models.ExtractionRelayResponse, error) {
	return nil, utils.NewPaymentRequiredError("Créditos esgotados.")
}

type stubIntake struct {
	got []models.UploadFile
}

func (s *stubIntake) Process(ctx context.Context, id auth.Identity, files []models.UploadFile) (*models.IntakeResult, error) {
	s.got = files
	return &models.IntakeResult{RequestID: "r1"}, nil
}

func (s *stubIntake) Statuses(id auth.Identity) []models.DocumentProgress { return nil }

func (s *stubIntake) List(ctx context.Context, id auth.Identity) ([]models.DocumentAnalysis, error) {
	return nil, nil
}

func TestRelayDecodeFailureIs500(t *testing.T) {
	relay := &stubRelay{}
	h := NewRelayHandler(relay, utils.NopLogger())

	rec := httptest.NewRecorder()
	h.Chat(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":`)
	assert.Zero(t, relay.chatCalls)
}

func TestRelayRejectsOtherMethodsWith500(t *testing.T) {
	relay := &stubRelay{}
	h := NewRelayHandler(relay, utils.NopLogger())

	rec := httptest.NewRecorder()
	h.Chat(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Method GET not allowed"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ExtractDocument(rec, httptest.NewRequest(http.MethodPut, "/ocr-extract", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Method PUT not allowed"}`, rec.Body.String())
	assert.Zero(t, relay.chatCalls)
}

func TestRelayErrorBodyHasOnlyError(t *testing.T) {
	h := NewRelayHandler(&stubRelay{}, utils.NopLogger())

	rec := httptest.NewRecorder()
	h.ExtractDocument(rec, httptest.NewRequest(http.MethodPost, "/ocr-extract", strings.NewReader(`{"image":"eA==","filename":"a.jpg"}`)))

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.JSONEq(t, `{"error":"Créditos esgotados."}`, rec.Body.String())
}

func TestRespondErrorHidesUnexpectedErrors(t *testing.T) {
	h := responder{logger: utils.NopLogger()}

	rec := httptest.NewRecorder()
	h.respondError(rec, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func uploadRequest(t *testing.T, field string, names ...string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range names {
		part, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte("conteúdo de " + name))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{ID: "u1"}))
}

func TestUploadPassesEveryFile(t *testing.T) {
	intake := &stubIntake{}
	h := NewDocumentHandler(intake, 1<<20, utils.NopLogger())

	rec := httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t, "files", "rg.jpg", "conta.pdf"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, intake.got, 2)
	assert.Equal(t, "rg.jpg", intake.got[0].Name)
	assert.Equal(t, []byte("conteúdo de conta.pdf"), intake.got[1].Data)
}

func TestUploadValidatesForm(t *testing.T) {
	intake := &stubIntake{}
	h := NewDocumentHandler(intake, 1<<20, utils.NopLogger())

	rec := httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t, "file", "rg.jpg"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	names := make([]string, MaxFilesPerUpload+1)
	for i := range names {
		names[i] = "doc.jpg"
	}
	rec = httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t, "files", names...))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", strings.NewReader("x"))
	req.Header.Set("Content-Type", "text/plain")
	h.Upload(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Nil(t, intake.got)
}

func TestUploadTruncatesOversizedFileForService(t *testing.T) {
	intake := &stubIntake{}
	h := NewDocumentHandler(intake, 8, utils.NopLogger())

	rec := httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t, "files", "grande.jpg"))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, intake.got, 1)
	assert.Len(t, intake.got[0].Data, 9)
}
