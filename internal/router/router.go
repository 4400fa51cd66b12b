package router

import (
	"net/http"

	"github.com/climajusto/iacolhe/internal/auth"
	"github.com/climajusto/iacolhe/internal/handlers"
	"github.com/climajusto/iacolhe/internal/middleware"
	"github.com/climajusto/iacolhe/internal/services"
	"github.com/climajusto/iacolhe/internal/utils"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Relay        services.RelayService
	Conversation services.ConversationService
	Intake       services.IntakeService
	Review       services.ReviewService
	Protocols    services.ProtocolService
	Analytics    services.AnalyticsService

	Verifier *auth.Verifier
	DB       handlers.Pinger
	// Gatherer backs /metrics. Nil means the default prometheus registry.
	Gatherer prometheus.Gatherer

	MaxFileSize    int64
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(deps Deps, logger *utils.Logger) http.Handler {
	r := mux.NewRouter()

	// Middlewares
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())

	relayHandler := handlers.NewRelayHandler(deps.Relay, logger)
	chatHandler := handlers.NewChatHandler(deps.Conversation, logger)
	docHandler := handlers.NewDocumentHandler(deps.Intake, deps.MaxFileSize, logger)
	reviewHandler := handlers.NewReviewHandler(deps.Review, deps.Analytics, logger)
	protocolHandler := handlers.NewProtocolHandler(deps.Protocols, logger)
	healthHandler := handlers.NewHealthHandler(deps.DB, logger)

	// Public relays
	// Relays take every method; the handlers reject non-POST with a 500 body.
	r.HandleFunc("/chat", relayHandler.Chat)
	r.HandleFunc("/ocr-extract", relayHandler.ExtractDocument)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Authenticate(deps.Verifier, logger))
	api.Use(middleware.RateLimit(deps.RateLimitRPS, deps.RateLimitBurst))

	api.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)

	// Conversation
	api.HandleFunc("/chat/session", chatHandler.StartSession).Methods(http.MethodPost)
	api.HandleFunc("/chat/session", chatHandler.GetSession).Methods(http.MethodGet)
	api.HandleFunc("/chat/session", chatHandler.EndSession).Methods(http.MethodDelete)
	api.HandleFunc("/chat/messages", chatHandler.SubmitMessage).Methods(http.MethodPost)

	// Document intake
	api.HandleFunc("/documents", docHandler.Upload).Methods(http.MethodPost)
	api.HandleFunc("/documents", docHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/documents/status", docHandler.Statuses).Methods(http.MethodGet)

	// Review panel
	review := api.PathPrefix("/review").Subrouter()
	review.HandleFunc("/requests", reviewHandler.ListRequests).Methods(http.MethodGet)
	review.HandleFunc("/requests/{id}", reviewHandler.GetRequest).Methods(http.MethodGet)
	review.HandleFunc("/requests/{id}/decision", reviewHandler.Decide).Methods(http.MethodPost)
	review.HandleFunc("/requests/{id}/documents/{analysisID}/original", reviewHandler.DownloadOriginal).Methods(http.MethodGet)
	review.HandleFunc("/analytics", reviewHandler.Analytics).Methods(http.MethodGet)

	// Protocols
	api.HandleFunc("/protocols/simulate", protocolHandler.Simulate).Methods(http.MethodPost)
	api.HandleFunc("/protocols/{protocol}", protocolHandler.Lookup).Methods(http.MethodGet)

	return middleware.CORS()(r)
}
