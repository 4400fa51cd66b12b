package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/climajusto/iacolhe/internal/auth"
	"github.com/climajusto/iacolhe/internal/extractor"
	"github.com/climajusto/iacolhe/internal/metrics"
	"github.com/climajusto/iacolhe/internal/models"
	"github.com/climajusto/iacolhe/internal/repository"
	"github.com/climajusto/iacolhe/internal/storage"
	"github.com/climajusto/iacolhe/internal/utils"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"
)

var (
	chatFirstNotice = models.Notification{
		Title:       "Converse com o assistente primeiro",
		Description: "Inicie a triagem no chat antes de enviar documentos.",
		Variant:     models.VariantDestructive,
	}
	documentProcessedNotice = models.Notification{
		Title:       "Documento processado",
		Description: "Informações extraídas com sucesso!",
	}
	documentFailedNotice = models.Notification{
		Title:       "Erro ao processar documento",
		Description: "Tente novamente.",
		Variant:     models.VariantDestructive,
	}
)

var acceptedTypes = []string{"image/jpeg", "image/png", "application/pdf"}

type IntakeService interface {
	// Process runs every file through extraction independently. A file failing
	// never affects the others.
	Process(ctx context.Context, id auth.Identity, files []models.UploadFile) (*models.IntakeResult, error)
	Statuses(id auth.Identity) []models.DocumentProgress
	List(ctx context.Context, id auth.Identity) ([]models.DocumentAnalysis, error)
}

const (
	defaultProgressTTL    = time.Hour
	defaultTrackedPerUser = 50
)

type IntakeOptions struct {
	MaxFileSize int64
	Concurrency int
	// ProgressTTL and MaxTrackedPerUser bound how long and how many finished
	// uploads stay visible in Statuses. In-progress uploads are always kept.
	ProgressTTL       time.Duration
	MaxTrackedPerUser int
}

type intakeService struct {
	relay     ExtractionRelay
	benefits  repository.BenefitRepository
	documents repository.DocumentRepository
	archive   storage.Storage
	opts      IntakeOptions
	logger    *utils.Logger

	tracker *progressTracker
}

// NewIntakeService builds the intake controller. archive may be nil, in which
// case originals are not kept.
func NewIntakeService(
	relay ExtractionRelay,
	benefits repository.BenefitRepository,
	documents repository.DocumentRepository,
	archive storage.Storage,
	opts IntakeOptions,
	logger *utils.Logger,
) IntakeService {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.ProgressTTL <= 0 {
		opts.ProgressTTL = defaultProgressTTL
	}
	if opts.MaxTrackedPerUser <= 0 {
		opts.MaxTrackedPerUser = defaultTrackedPerUser
	}
	return &intakeService{
		relay:     relay,
		benefits:  benefits,
		documents: documents,
		archive:   archive,
		opts:      opts,
		logger:    logger,
		tracker:   newProgressTracker(opts.ProgressTTL, opts.MaxTrackedPerUser),
	}
}

func (s *intakeService) Process(ctx context.Context, id auth.Identity, files []models.UploadFile) (*models.IntakeResult, error) {
	if id.ID == "" {
		return nil, utils.NewUnauthorizedError("Login required").WithNotification(loginRequiredNotice)
	}
	if len(files) == 0 {
		return nil, utils.NewBadRequestError("No files provided")
	}

	req, err := s.benefits.LatestForUser(ctx, id.ID)
	if err != nil {
		return nil, utils.NewInternalError("Failed to load benefit request").WithCause(err)
	}
	if req == nil {
		return nil, utils.NewConflictError("No benefit request for this user").WithNotification(chatFirstNotice)
	}

	uploadIDs := make([]string, len(files))
	for i, f := range files {
		uploadIDs[i] = utils.GenerateID()
		s.tracker.set(id.ID, models.DocumentProgress{
			UploadID: uploadIDs[i],
			Name:     f.Name,
			Type:     f.ContentType,
			Status:   models.DocUploading,
		})
	}

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)

	final := make([]models.DocumentProgress, len(files))
	for i := range files {
		g.Go(func() error {
			final[i] = s.processFile(ctx, id.ID, req.ID, uploadIDs[i], files[i])
			return nil
		})
	}
	_ = g.Wait()

	result := &models.IntakeResult{RequestID: req.ID}
	for _, p := range final {
		result.Documents = append(result.Documents, p)
		if p.Status == models.DocCompleted {
			result.Notifications = append(result.Notifications, documentProcessedNotice)
		} else {
			result.Notifications = append(result.Notifications, documentFailedNotice)
		}
	}
	return result, nil
}

// processFile returns the final progress of one upload.
func (s *intakeService) processFile(ctx context.Context, userID, requestID, uploadID string, f models.UploadFile) models.DocumentProgress {
	log := s.logger.With("request_id", requestID, "upload_id", uploadID, "filename", f.Name)

	analysis, err := s.extract(ctx, userID, requestID, uploadID, f)
	if err != nil {
		log.Warn("Document processing failed", "error", err)
		metrics.DocumentsProcessed.WithLabelValues(string(models.DocError)).Inc()
		return s.tracker.update(userID, uploadID, func(p *models.DocumentProgress) {
			p.Status = models.DocError
			p.Error = errorMessage(err)
		})
	}

	log.Info("Document processed", "analysis_id", analysis.ID, "valid", *analysis.IsValid)
	metrics.DocumentsProcessed.WithLabelValues(string(models.DocCompleted)).Inc()
	return s.tracker.update(userID, uploadID, func(p *models.DocumentProgress) {
		p.Status = models.DocCompleted
		p.AnalysisID = analysis.ID
		p.ExtractedData = &analysis.AnalysisResult
	})
}

func (s *intakeService) extract(ctx context.Context, userID, requestID, uploadID string, f models.UploadFile) (*models.DocumentAnalysis, error) {
	contentType, err := s.validate(f)
	if err != nil {
		return nil, err
	}
	s.tracker.update(userID, uploadID, func(p *models.DocumentProgress) { p.Type = contentType })

	var storageKey *string
	if s.archive != nil {
		key := storage.ObjectKey(requestID, uploadID, f.Name)
		if err := s.archive.Put(ctx, storage.Object{
			Key:         key,
			Filename:    f.Name,
			ContentType: contentType,
			Data:        f.Data,
		}); err != nil {
			return nil, err
		}
		storageKey = &key
	}

	relayReq := &models.ExtractionRelayRequest{Filename: f.Name, ContentType: contentType}
	if contentType == "application/pdf" {
		text, err := extractor.ExtractPDF(f.Data)
		if err != nil {
			return nil, utils.NewBadRequestError("Não foi possível ler o PDF").WithCause(err)
		}
		relayReq.Text = text.Content
	} else {
		relayReq.Image = base64.StdEncoding.EncodeToString(f.Data)
	}

	s.tracker.update(userID, uploadID, func(p *models.DocumentProgress) { p.Status = models.DocProcessing })

	resp, err := s.relay.ExtractDocument(ctx, relayReq)
	if err != nil {
		s.discard(ctx, storageKey)
		return nil, err
	}

	valid := resp.Structured
	analysis := &models.DocumentAnalysis{
		ID:             utils.GenerateID(),
		RequestID:      requestID,
		DocumentName:   f.Name,
		ContentType:    contentType,
		StorageKey:     storageKey,
		AnalysisResult: models.JSONDocument(resp.ExtractedData),
		IsValid:        &valid,
		CreatedAt:      time.Now(),
	}
	if err := s.documents.Create(ctx, analysis); err != nil {
		s.discard(ctx, storageKey)
		return nil, err
	}
	return analysis, nil
}

// validate returns the sniffed media type of an acceptable file.
func (s *intakeService) validate(f models.UploadFile) (string, error) {
	if len(f.Data) == 0 {
		return "", utils.NewBadRequestError("Arquivo vazio")
	}
	if s.opts.MaxFileSize > 0 && int64(len(f.Data)) > s.opts.MaxFileSize {
		return "", utils.NewBadRequestError(fmt.Sprintf("Arquivo maior que %d MB", s.opts.MaxFileSize>>20))
	}

	detected := mimetype.Detect(f.Data)
	for _, t := range acceptedTypes {
		if detected.Is(t) {
			return t, nil
		}
	}
	return "", utils.NewBadRequestError("Formato não suportado. Envie JPG, PNG ou PDF")
}

func (s *intakeService) discard(ctx context.Context, key *string) {
	if key == nil {
		return
	}
	if err := s.archive.Remove(context.WithoutCancel(ctx), *key); err != nil {
		s.logger.Warn("Failed to remove archived document", "key", *key, "error", err)
	}
}

func (s *intakeService) Statuses(id auth.Identity) []models.DocumentProgress {
	return s.tracker.list(id.ID)
}

func (s *intakeService) List(ctx context.Context, id auth.Identity) ([]models.DocumentAnalysis, error) {
	if id.ID == "" {
		return nil, utils.NewUnauthorizedError("Login required").WithNotification(loginRequiredNotice)
	}

	req, err := s.benefits.LatestForUser(ctx, id.ID)
	if err != nil {
		return nil, utils.NewInternalError("Failed to load benefit request").WithCause(err)
	}
	if req == nil {
		return []models.DocumentAnalysis{}, nil
	}

	analyses, err := s.documents.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, utils.NewInternalError("Failed to list documents").WithCause(err)
	}
	return analyses, nil
}

func errorMessage(err error) string {
	if appErr, ok := utils.AsAppError(err); ok {
		return appErr.Message
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return "Erro ao processar documento"
}

// progressTracker holds per-file intake status keyed by identity and upload id.
// Finished entries are dropped once older than ttl or beyond limit per identity.
type progressTracker struct {
	mu    sync.Mutex
	ttl   time.Duration
	limit int
	clock func() time.Time
	users map[string]*userUploads
}

type userUploads struct {
	order []string
	byID  map[string]*models.DocumentProgress
}

func newProgressTracker(ttl time.Duration, limit int) *progressTracker {
	return &progressTracker{
		ttl:   ttl,
		limit: limit,
		clock: time.Now,
		users: make(map[string]*userUploads),
	}
}

func (t *progressTracker) set(userID string, p models.DocumentProgress) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prune()
	u, ok := t.users[userID]
	if !ok {
		u = &userUploads{byID: make(map[string]*models.DocumentProgress)}
		t.users[userID] = u
	}
	if _, exists := u.byID[p.UploadID]; !exists {
		u.order = append(u.order, p.UploadID)
	}
	p.UpdatedAt = t.clock().UTC()
	u.byID[p.UploadID] = &p
}

// update applies fn to a tracked upload and returns a copy of the result.
func (t *progressTracker) update(userID, uploadID string, fn func(*models.DocumentProgress)) models.DocumentProgress {
	t.mu.Lock()
	defer t.mu.Unlock()

	u, ok := t.users[userID]
	if !ok {
		return models.DocumentProgress{UploadID: uploadID}
	}
	p, ok := u.byID[uploadID]
	if !ok {
		return models.DocumentProgress{UploadID: uploadID}
	}
	fn(p)
	p.UpdatedAt = t.clock().UTC()
	return *p
}

func (t *progressTracker) list(userID string) []models.DocumentProgress {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prune()
	out := []models.DocumentProgress{}
	u, ok := t.users[userID]
	if !ok {
		return out
	}
	for _, id := range u.order {
		out = append(out, *u.byID[id])
	}
	return out
}

// prune must be called with t.mu held.
func (t *progressTracker) prune() {
	cutoff := t.clock().UTC().Add(-t.ttl)
	for userID, u := range t.users {
		finished := 0
		for _, id := range u.order {
			if isFinished(u.byID[id].Status) {
				finished++
			}
		}

		kept := u.order[:0]
		for _, id := range u.order {
			p := u.byID[id]
			if isFinished(p.Status) {
				expired := p.UpdatedAt.Before(cutoff)
				overflow := finished > t.limit
				finished--
				if expired || overflow {
					delete(u.byID, id)
					continue
				}
			}
			kept = append(kept, id)
		}
		u.order = kept

		if len(u.order) == 0 {
			delete(t.users, userID)
		}
	}
}

func isFinished(status models.DocumentStatus) bool {
	return status == models.DocCompleted || status == models.DocError
}
