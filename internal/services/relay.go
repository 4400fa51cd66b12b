package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/climajusto/iacolhe/internal/analyzer"
	"github.com/climajusto/iacolhe/internal/metrics"
	"github.com/climajusto/iacolhe/internal/models"
	"github.com/climajusto/iacolhe/internal/prompts"
	"github.com/climajusto/iacolhe/internal/utils"
)

const (
	RelayChat       = "chat"
	RelayExtraction = "ocr-extract"

	defaultImageType = "image/jpeg"
)

// relayMessages are the caller-facing texts for each failure class of one relay.
type relayMessages struct {
	rateLimited      string
	creditsExhausted string
	generic          string
}

var (
	chatRelayMessages = relayMessages{
		rateLimited:      "Limite de requisições excedido. Tente novamente em instantes.",
		creditsExhausted: "Créditos esgotados. Por favor, contate o administrador.",
		generic:          "Erro ao processar solicitação",
	}
	extractionRelayMessages = relayMessages{
		rateLimited:      "Limite de requisições excedido.",
		creditsExhausted: "Créditos esgotados.",
		generic:          "Erro ao processar imagem",
	}
)

type ChatRelay interface {
	Chat(ctx context.Context, messages []models.Message) (string, error)
}

type ExtractionRelay interface {
	ExtractDocument(ctx context.Context, req *models.ExtractionRelayRequest) (*models.ExtractionRelayResponse, error)
}

// RelayService forwards turns to the completion API behind a fixed instruction script.
// Every error it returns is an *utils.AppError with status 429, 402 or 500.
type RelayService interface {
	ChatRelay
	ExtractionRelay
}

type relayService struct {
	completer  analyzer.Completer
	chat       prompts.Script
	extraction prompts.Script
	logger     *utils.Logger
}

func NewRelayService(completer analyzer.Completer, chat, extraction prompts.Script, logger *utils.Logger) RelayService {
	return &relayService{
		completer:  completer,
		chat:       chat,
		extraction: extraction,
		logger:     logger,
	}
}

func (s *relayService) Chat(ctx context.Context, messages []models.Message) (string, error) {
	outgoing := make([]analyzer.Message, 0, len(messages)+1)
	outgoing = append(outgoing, analyzer.Message{Role: "system", Content: s.chat.Text})
	for _, m := range messages {
		outgoing = append(outgoing, analyzer.Message{Role: m.Role, Content: m.Content})
	}

	started := time.Now()
	reply, err := s.completer.Complete(ctx, outgoing)
	if err != nil {
		appErr := s.mapError(RelayChat, err, chatRelayMessages)
		metrics.ObserveRelay(RelayChat, appErr.StatusCode, started)
		return "", appErr
	}

	metrics.ObserveRelay(RelayChat, http.StatusOK, started)
	s.logger.Debug("Chat relay answered", "turns", len(messages), "script", s.chat.Version)
	return reply, nil
}

func (s *relayService) ExtractDocument(ctx context.Context, req *models.ExtractionRelayRequest) (*models.ExtractionRelayResponse, error) {
	user := analyzer.Message{Role: "user"}
	if req.Image == "" && req.Text != "" {
		user.Content = s.extraction.Lead + "\n\n" + req.Text
	} else {
		contentType := req.ContentType
		if contentType == "" {
			contentType = defaultImageType
		}
		user.Parts = []analyzer.Part{
			{Text: s.extraction.Lead},
			{ImageURL: "data:" + contentType + ";base64," + req.Image},
		}
	}

	started := time.Now()
	reply, err := s.completer.Complete(ctx, []analyzer.Message{
		{Role: "system", Content: s.extraction.Text},
		user,
	})
	if err != nil {
		appErr := s.mapError(RelayExtraction, err, extractionRelayMessages)
		metrics.ObserveRelay(RelayExtraction, appErr.StatusCode, started)
		return nil, appErr
	}
	metrics.ObserveRelay(RelayExtraction, http.StatusOK, started)

	data, structured, err := parseExtraction(reply)
	if err != nil {
		return nil, utils.NewInternalError(err.Error()).WithCause(err)
	}

	return &models.ExtractionRelayResponse{
		Filename:      req.Filename,
		ExtractedData: data,
		Structured:    structured,
	}, nil
}

// parseExtraction keeps the reply as-is when it is valid JSON and otherwise
// wraps the unchanged text in {"raw_text": ...}.
func parseExtraction(reply string) (json.RawMessage, bool, error) {
	if json.Valid([]byte(reply)) {
		return json.RawMessage(reply), true, nil
	}

	wrapped, err := json.Marshal(models.RawTextFallback{RawText: reply})
	if err != nil {
		return nil, false, err
	}
	return wrapped, false, nil
}

func (s *relayService) mapError(relay string, err error, msgs relayMessages) *utils.AppError {
	var upstream *analyzer.UpstreamError

	switch {
	case errors.Is(err, analyzer.ErrMissingCredential):
		s.logger.Error("Relay is not configured", "relay", relay)
		return utils.NewInternalError(err.Error()).WithCause(err)
	case errors.As(err, &upstream):
		switch upstream.StatusCode {
		case http.StatusTooManyRequests:
			return utils.NewTooManyRequestsError(msgs.rateLimited).WithCause(err)
		case http.StatusPaymentRequired:
			return utils.NewPaymentRequiredError(msgs.creditsExhausted).WithCause(err)
		}
		s.logger.Error("AI gateway error", "relay", relay, "status", upstream.StatusCode, "body", upstream.Body)
		return utils.NewInternalError(msgs.generic).WithCause(err)
	case errors.Is(err, analyzer.ErrEmptyResponse):
		s.logger.Error("AI gateway returned no choices", "relay", relay)
		return utils.NewInternalError(msgs.generic).WithCause(err)
	default:
		s.logger.Error("Relay call failed", "relay", relay, "error", err)
		return utils.NewInternalError(err.Error()).WithCause(err)
	}
}
