package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/climajusto/iacolhe/internal/auth"
	"github.com/climajusto/iacolhe/internal/models"
	"github.com/climajusto/iacolhe/internal/repository"
	"github.com/climajusto/iacolhe/internal/storage"
	"github.com/climajusto/iacolhe/internal/utils"
)

// ReviewService is the entry point of the staff panel. Access is checked once in Enter.
type ReviewService interface {
	Enter(ctx context.Context, id auth.Identity) (ReviewPanel, error)
}

// ReviewPanel is what an agent can do once inside. Its methods do not re-check the role.
type ReviewPanel interface {
	ListRequests(ctx context.Context) ([]models.BenefitRequest, error)
	RequestDetail(ctx context.Context, requestID string) (*models.RequestDetail, error)
	Decide(ctx context.Context, requestID string, decision models.DecisionRequest) (*models.BenefitRequest, error)
	// Original returns the archived upload behind an analysis.
	Original(ctx context.Context, requestID, analysisID string) (*models.UploadFile, error)
}

type reviewService struct {
	roles       repository.RoleRepository
	benefits    repository.BenefitRepository
	transcripts repository.TranscriptRepository
	documents   repository.DocumentRepository
	archive     storage.Storage
	logger      *utils.Logger
}

func NewReviewService(
	roles repository.RoleRepository,
	benefits repository.BenefitRepository,
	transcripts repository.TranscriptRepository,
	documents repository.DocumentRepository,
	archive storage.Storage,
	logger *utils.Logger,
) ReviewService {
	return &reviewService{
		roles:       roles,
		benefits:    benefits,
		transcripts: transcripts,
		documents:   documents,
		archive:     archive,
		logger:      logger,
	}
}

func (s *reviewService) Enter(ctx context.Context, id auth.Identity) (ReviewPanel, error) {
	if id.ID == "" {
		return nil, utils.NewUnauthorizedError("Login required").WithNotification(loginRequiredNotice)
	}

	ok, err := s.roles.HasRole(ctx, id.ID, models.RoleAgent)
	if err != nil {
		return nil, utils.NewInternalError("Failed to check role").WithCause(err)
	}
	if !ok {
		return nil, utils.NewForbiddenError("Acesso restrito a agentes públicos")
	}

	return &reviewPanel{svc: s, reviewer: id}, nil
}

type reviewPanel struct {
	svc      *reviewService
	reviewer auth.Identity
}

func (p *reviewPanel) ListRequests(ctx context.Context) ([]models.BenefitRequest, error) {
	requests, err := p.svc.benefits.List(ctx)
	if err != nil {
		return nil, utils.NewInternalError("Failed to list benefit requests").WithCause(err)
	}
	if requests == nil {
		requests = []models.BenefitRequest{}
	}
	return requests, nil
}

func (p *reviewPanel) RequestDetail(ctx context.Context, requestID string) (*models.RequestDetail, error) {
	req, err := p.load(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if req.Transcript, err = p.svc.transcripts.Load(ctx, req.ID); err != nil {
		return nil, utils.NewInternalError("Failed to load transcript").WithCause(err)
	}

	analyses, err := p.svc.documents.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, utils.NewInternalError("Failed to list documents").WithCause(err)
	}

	detail := &models.RequestDetail{
		Request:          req,
		ValidDocuments:   []models.DocumentAnalysis{},
		InvalidDocuments: []models.DocumentAnalysis{},
	}
	for _, a := range analyses {
		if a.IsValid != nil && *a.IsValid {
			detail.ValidDocuments = append(detail.ValidDocuments, a)
		} else {
			detail.InvalidDocuments = append(detail.InvalidDocuments, a)
		}
	}
	return detail, nil
}

func (p *reviewPanel) Decide(ctx context.Context, requestID string, decision models.DecisionRequest) (*models.BenefitRequest, error) {
	if !decision.Status.Decided() {
		return nil, utils.NewBadRequestError("Status must be approved or rejected")
	}

	if _, err := p.load(ctx, requestID); err != nil {
		return nil, err
	}

	err := p.svc.benefits.Decide(ctx, requestID, decision.Status, strings.TrimSpace(decision.Notes), time.Now())
	if errors.Is(err, repository.ErrNotPending) {
		return nil, utils.NewConflictError("Esta solicitação já foi analisada").WithCause(err)
	}
	if err != nil {
		return nil, utils.NewInternalError("Failed to record decision").WithCause(err)
	}

	p.svc.logger.Info("Benefit request decided",
		"request_id", requestID,
		"status", decision.Status,
		"reviewer", p.reviewer.ID,
	)
	return p.load(ctx, requestID)
}

func (p *reviewPanel) Original(ctx context.Context, requestID, analysisID string) (*models.UploadFile, error) {
	a, err := p.svc.documents.GetByID(ctx, analysisID)
	if err != nil {
		return nil, utils.NewInternalError("Failed to load document").WithCause(err)
	}
	if a == nil || a.RequestID != requestID {
		return nil, utils.NewNotFoundError("Documento não encontrado")
	}
	if a.StorageKey == nil || p.svc.archive == nil {
		return nil, utils.NewNotFoundError("Arquivo original não foi arquivado")
	}

	obj, err := p.svc.archive.Get(ctx, *a.StorageKey)
	if err != nil {
		return nil, utils.NewInternalError("Failed to download document").WithCause(err)
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = a.ContentType
	}
	return &models.UploadFile{Name: a.DocumentName, ContentType: contentType, Data: obj.Data}, nil
}

func (p *reviewPanel) load(ctx context.Context, requestID string) (*models.BenefitRequest, error) {
	req, err := p.svc.benefits.GetByID(ctx, requestID)
	if err != nil {
		return nil, utils.NewInternalError("Failed to load benefit request").WithCause(err)
	}
	if req == nil {
		return nil, utils.NewNotFoundError("Solicitação não encontrada")
	}
	return req, nil
}
