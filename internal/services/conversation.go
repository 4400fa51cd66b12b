package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/climajusto/iacolhe/internal/auth"
	"github.com/climajusto/iacolhe/internal/models"
	"github.com/climajusto/iacolhe/internal/repository"
	"github.com/climajusto/iacolhe/internal/utils"
)

const greeting = "Olá! Sou o assistente virtual do Clima Justo. Como posso ajudá-lo hoje? " +
	"Estou aqui para orientar sobre direitos, benefícios e procedimentos relacionados a " +
	"situações de enchentes e alagamentos."

// ErrTurnInFlight is the cause of the conflict returned when a session is still awaiting a reply.
var ErrTurnInFlight = errors.New("a reply is still pending")

var (
	loginRequiredNotice = models.Notification{
		Title:       "Login necessário",
		Description: "Você precisa fazer login para usar o chat.",
		Variant:     models.VariantDestructive,
	}
	sendFailedNotice = models.Notification{
		Title:       "Erro ao enviar mensagem",
		Description: "Tente novamente em instantes.",
		Variant:     models.VariantDestructive,
	}
)

// ConversationService runs one chat session per signed-in identity.
type ConversationService interface {
	StartSession(ctx context.Context, id auth.Identity) (*models.SessionView, error)
	// Session returns the current session, starting one when there is none.
	Session(ctx context.Context, id auth.Identity) (*models.SessionView, error)
	Submit(ctx context.Context, id auth.Identity, input string) (*models.SessionView, error)
	EndSession(id auth.Identity)
}

// session is the per-identity conversation context. The mutex guards every field;
// it is not held while the relay call is outstanding.
type session struct {
	mu         sync.Mutex
	userID     string
	requestID  *string
	protocol   string
	status     models.RequestStatus
	state      models.SessionState
	transcript []models.Message
	notice     *models.Notification
	lastSeen   time.Time
}

func (s *session) awaiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == models.StateAwaitingReply
}

func (s *session) view() *models.SessionView {
	v := &models.SessionView{
		UserID:     s.userID,
		RequestID:  s.requestID,
		Protocol:   s.protocol,
		Status:     s.status,
		State:      s.state,
		Transcript: append([]models.Message(nil), s.transcript...),
	}
	if s.notice != nil {
		v.Notification = s.notice
		s.notice = nil
	}
	return v
}

const defaultSessionTTL = 2 * time.Hour

type ConversationOptions struct {
	// SessionTTL is how long an idle session stays in memory. A session
	// awaiting a reply is never evicted.
	SessionTTL time.Duration
}

type conversationService struct {
	relay       ChatRelay
	benefits    repository.BenefitRepository
	transcripts repository.TranscriptRepository
	protocols   ProtocolService
	opts        ConversationOptions
	clock       func() time.Time
	logger      *utils.Logger

	mu        sync.Mutex
	sessions  map[string]*session
	lastSweep time.Time

	// creating serializes the first-turn check for an existing request with its creation.
	creating sync.Mutex
}

func NewConversationService(
	relay ChatRelay,
	benefits repository.BenefitRepository,
	transcripts repository.TranscriptRepository,
	protocols ProtocolService,
	opts ConversationOptions,
	logger *utils.Logger,
) ConversationService {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	return &conversationService{
		relay:       relay,
		benefits:    benefits,
		transcripts: transcripts,
		protocols:   protocols,
		opts:        opts,
		clock:       time.Now,
		logger:      logger,
		sessions:    make(map[string]*session),
	}
}

func (s *conversationService) StartSession(ctx context.Context, id auth.Identity) (*models.SessionView, error) {
	if id.ID == "" {
		return nil, utils.NewUnauthorizedError("Login required").WithNotification(loginRequiredNotice)
	}

	if busy := s.inFlight(id.ID); busy != nil {
		return s.touch(busy), nil
	}

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sweep()
	// A turn that started while this one was loading keeps its session.
	if existing, ok := s.sessions[id.ID]; ok && existing.awaiting() {
		sess = existing
	} else {
		s.sessions[id.ID] = sess
	}
	s.mu.Unlock()

	return s.touch(sess), nil
}

// inFlight returns the identity's session when it is awaiting a reply.
func (s *conversationService) inFlight(userID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[userID]; ok && existing.awaiting() {
		return existing
	}
	return nil
}

func (s *conversationService) touch(sess *session) *models.SessionView {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastSeen = s.clock()
	return sess.view()
}

// sweep evicts sessions idle for longer than the TTL. Callers hold s.mu.
func (s *conversationService) sweep() {
	now := s.clock()
	if now.Sub(s.lastSweep) < s.opts.SessionTTL/4 {
		return
	}
	s.lastSweep = now

	for userID, sess := range s.sessions {
		sess.mu.Lock()
		stale := sess.state != models.StateAwaitingReply && now.Sub(sess.lastSeen) > s.opts.SessionTTL
		sess.mu.Unlock()
		if stale {
			delete(s.sessions, userID)
		}
	}
}

func (s *conversationService) Session(ctx context.Context, id auth.Identity) (*models.SessionView, error) {
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.touch(sess), nil
}

func (s *conversationService) EndSession(id auth.Identity) {
	s.mu.Lock()
	delete(s.sessions, id.ID)
	s.mu.Unlock()
}

func (s *conversationService) Submit(ctx context.Context, id auth.Identity, input string) (*models.SessionView, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, utils.NewBadRequestError("Message content is required")
	}
	if id.ID == "" {
		return nil, utils.NewUnauthorizedError("Login required").WithNotification(loginRequiredNotice)
	}

	sess, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if sess.state == models.StateAwaitingReply {
		sess.mu.Unlock()
		return nil, utils.NewConflictError("Aguarde a resposta do assistente").WithCause(ErrTurnInFlight)
	}
	before := sess.transcript
	userTurn := models.Message{Role: string(models.RoleUser), Content: input}
	outgoing := append(append([]models.Message(nil), before...), userTurn)
	sess.state = models.StateAwaitingReply
	sess.lastSeen = s.clock()
	sess.mu.Unlock()

	reply, err := s.relay.Chat(ctx, outgoing)
	if err != nil {
		return nil, s.fail(sess, before, err)
	}

	assistantTurn := models.Message{Role: string(models.RoleAssistant), Content: reply}
	full := append(outgoing, assistantTurn)

	if err := s.persist(ctx, id, sess, full, userTurn, assistantTurn); err != nil {
		return nil, s.fail(sess, before, err)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.transcript = full
	sess.state = models.StateIdle
	sess.lastSeen = s.clock()
	return sess.view(), nil
}

// persist creates the benefit request on the first successful turn and appends
// the two new turns to its log afterwards.
func (s *conversationService) persist(ctx context.Context, id auth.Identity, sess *session, full []models.Message, turns ...models.Message) error {
	sess.mu.Lock()
	requestID := sess.requestID
	sess.mu.Unlock()

	if requestID != nil {
		_, err := s.transcripts.Append(ctx, *requestID, turns...)
		return err
	}

	s.creating.Lock()
	defer s.creating.Unlock()

	// Another session of the same identity may have created the request meanwhile.
	existing, err := s.benefits.LatestForUser(ctx, id.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		if _, err := s.transcripts.Append(ctx, existing.ID, turns...); err != nil {
			return err
		}
		s.adopt(sess, existing)
		return nil
	}

	now := s.clock()
	req := &models.BenefitRequest{
		ID:          utils.GenerateID(),
		UserID:      id.ID,
		UserName:    id.DisplayName(),
		BenefitType: models.BenefitTypeReconstruction,
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.protocols.Issue(ctx, req, full); err != nil {
		return err
	}

	s.logger.Info("Benefit request created", "request_id", req.ID, "protocol", req.Protocol, "user_id", id.ID)
	s.adopt(sess, req)
	return nil
}

func (s *conversationService) adopt(sess *session, req *models.BenefitRequest) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.requestID = &req.ID
	sess.protocol = req.Protocol
	sess.status = req.Status
}

// fail puts the session in the error state and restores the transcript it had before the turn.
func (s *conversationService) fail(sess *session, before []models.Message, err error) error {
	sess.mu.Lock()
	sess.transcript = before
	sess.state = models.StateError
	userID := sess.userID
	sess.mu.Unlock()

	status := http.StatusInternalServerError
	message := "Erro ao processar solicitação"
	if appErr, ok := utils.AsAppError(err); ok {
		status = appErr.StatusCode
		message = appErr.Message
	} else {
		s.logger.Error("Failed to persist chat turn", "user_id", userID, "error", err)
	}

	return utils.NewAppError(status, message).WithCause(err).WithNotification(sendFailedNotice)
}

func (s *conversationService) lookup(ctx context.Context, id auth.Identity) (*session, error) {
	if id.ID == "" {
		return nil, utils.NewUnauthorizedError("Login required").WithNotification(loginRequiredNotice)
	}

	s.mu.Lock()
	s.sweep()
	sess, ok := s.sessions[id.ID]
	s.mu.Unlock()
	if ok {
		return sess, nil
	}

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another request may have started the session while this one was loading.
	if existing, ok := s.sessions[id.ID]; ok {
		return existing, nil
	}
	s.sessions[id.ID] = sess
	return sess, nil
}

func (s *conversationService) load(ctx context.Context, id auth.Identity) (*session, error) {
	sess := &session{userID: id.ID, state: models.StateIdle, lastSeen: s.clock()}

	req, err := s.benefits.LatestForUser(ctx, id.ID)
	if err != nil {
		return nil, utils.NewInternalError("Failed to load benefit request").WithCause(err)
	}
	if req == nil {
		sess.transcript = []models.Message{{Role: string(models.RoleAssistant), Content: greeting}}
		return sess, nil
	}

	persisted, err := s.transcripts.Load(ctx, req.ID)
	if err != nil {
		return nil, utils.NewInternalError("Failed to load transcript").WithCause(err)
	}

	sess.requestID = &req.ID
	sess.protocol = req.Protocol
	sess.status = req.Status
	sess.transcript = make([]models.Message, 0, len(persisted))
	for _, m := range persisted {
		if m.Role == "" || m.Content == "" {
			continue
		}
		sess.transcript = append(sess.transcript, m)
	}
	sess.notice = decisionNotice(req)
	return sess, nil
}

func decisionNotice(req *models.BenefitRequest) *models.Notification {
	notes := ""
	if req.DecisionNotes != nil {
		notes = strings.TrimSpace(*req.DecisionNotes)
	}

	switch req.Status {
	case models.StatusApproved:
		if notes == "" {
			notes = "Seu benefício foi aprovado pelos agentes públicos."
		}
		return &models.Notification{Title: "Benefício Aprovado! ✅", Description: notes}
	case models.StatusRejected:
		if notes == "" {
			notes = "Seu benefício não foi aprovado. Entre em contato para mais informações."
		}
		return &models.Notification{Title: "Benefício Não Aprovado ❌", Description: notes, Variant: models.VariantDestructive}
	}
	return nil
}
