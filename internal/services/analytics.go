package services

import (
	"context"
	"math"

	"github.com/climajusto/iacolhe/internal/models"
	"github.com/climajusto/iacolhe/internal/repository"
	"github.com/climajusto/iacolhe/internal/utils"
)

// AnalyticsService computes the dashboard figures from stored rows.
type AnalyticsService interface {
	Documents(ctx context.Context) (*models.DocumentStats, error)
	Requests(ctx context.Context) (*models.RequestStats, error)
}

type analyticsService struct {
	benefits  repository.BenefitRepository
	documents repository.DocumentRepository
}

func NewAnalyticsService(benefits repository.BenefitRepository, documents repository.DocumentRepository) AnalyticsService {
	return &analyticsService{benefits: benefits, documents: documents}
}

func (s *analyticsService) Documents(ctx context.Context) (*models.DocumentStats, error) {
	counts, err := s.documents.Stats(ctx)
	if err != nil {
		return nil, utils.NewInternalError("Failed to compute document statistics").WithCause(err)
	}

	stats := &models.DocumentStats{
		Processed:    counts.Total,
		Valid:        counts.Valid,
		WithProblems: counts.Invalid,
	}
	if counts.Total > 0 {
		stats.ValidationRate = math.Round(float64(counts.Valid)/float64(counts.Total)*1000) / 10
	}
	return stats, nil
}

func (s *analyticsService) Requests(ctx context.Context) (*models.RequestStats, error) {
	counts, err := s.benefits.CountByStatus(ctx)
	if err != nil {
		return nil, utils.NewInternalError("Failed to compute request statistics").WithCause(err)
	}

	stats := &models.RequestStats{
		Pending:  counts[models.StatusPending],
		Approved: counts[models.StatusApproved],
		Rejected: counts[models.StatusRejected],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}
