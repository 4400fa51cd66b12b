package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/climajusto/iacolhe/internal/models"
	"github.com/climajusto/iacolhe/internal/repository"
	"github.com/climajusto/iacolhe/internal/utils"
)

const (
	protocolPrefix      = "CJ-"
	maxProtocolAttempts = 5
)

var simulationNextSteps = []string{
	"Aguarde análise do seu pedido (até 5 dias úteis)",
	"Acompanhe o status pelo número do protocolo",
	"Em caso de aprovação, o benefício será creditado em até 10 dias",
}

// GenerateProtocol returns CJ- followed by the last 8 digits of the Unix millisecond timestamp.
func GenerateProtocol(now time.Time) string {
	return fmt.Sprintf("%s%08d", protocolPrefix, now.UnixMilli()%100_000_000)
}

type ProtocolService interface {
	// Issue assigns a protocol number to req and stores it with its first transcript.
	Issue(ctx context.Context, req *models.BenefitRequest, transcript []models.Message) error
	Simulate(ctx context.Context, form models.ProtocolForm) (*models.ProtocolReceipt, error)
	Lookup(ctx context.Context, protocol string) (*models.ProtocolStatus, error)
}

type protocolService struct {
	benefits repository.BenefitRepository
	clock    func() time.Time
	logger   *utils.Logger
}

func NewProtocolService(benefits repository.BenefitRepository, logger *utils.Logger) ProtocolService {
	return &protocolService{
		benefits: benefits,
		clock:    time.Now,
		logger:   logger,
	}
}

func (s *protocolService) Issue(ctx context.Context, req *models.BenefitRequest, transcript []models.Message) error {
	now := s.clock()
	for attempt := 0; attempt < maxProtocolAttempts; attempt++ {
		req.Protocol = GenerateProtocol(now.Add(time.Duration(attempt) * time.Millisecond))

		err := s.benefits.Create(ctx, req, transcript)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateProtocol) {
			return err
		}
		s.logger.Warn("Protocol number collision, regenerating", "protocol", req.Protocol, "attempt", attempt+1)
	}
	return fmt.Errorf("could not allocate a protocol number after %d attempts: %w", maxProtocolAttempts, repository.ErrDuplicateProtocol)
}

func (s *protocolService) Simulate(ctx context.Context, form models.ProtocolForm) (*models.ProtocolReceipt, error) {
	if strings.TrimSpace(form.Name) == "" ||
		strings.TrimSpace(form.CPF) == "" ||
		strings.TrimSpace(form.Address) == "" ||
		strings.TrimSpace(form.AffectedArea) == "" {
		return nil, utils.NewBadRequestError("Preencha todos os campos obrigatórios")
	}
	if countDigits(form.CPF) != 11 {
		return nil, utils.NewBadRequestError("CPF deve conter 11 dígitos")
	}

	now := s.clock()
	return &models.ProtocolReceipt{
		Protocol:  GenerateProtocol(now),
		IssuedAt:  now.UTC(),
		NextSteps: append([]string(nil), simulationNextSteps...),
	}, nil
}

func (s *protocolService) Lookup(ctx context.Context, protocol string) (*models.ProtocolStatus, error) {
	protocol = strings.ToUpper(strings.TrimSpace(protocol))
	if protocol == "" {
		return nil, utils.NewBadRequestError("Protocolo não informado")
	}

	req, err := s.benefits.GetByProtocol(ctx, protocol)
	if err != nil {
		return nil, utils.NewInternalError("Failed to look up protocol").WithCause(err)
	}
	if req == nil {
		return nil, utils.NewNotFoundError("Protocolo não encontrado")
	}

	return &models.ProtocolStatus{
		Protocol:     req.Protocol,
		Status:       req.Status,
		BenefitType:  req.BenefitType,
		CreatedAt:    req.CreatedAt,
		DecisionDate: req.DecisionDate,
	}, nil
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
