package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/formdesk/channel-relay/internal/config"
	"github.com/formdesk/channel-relay/internal/repository"
	"github.com/formdesk/channel-relay/internal/signature"
	"github.com/formdesk/channel-relay/internal/slackapi"
	"github.com/formdesk/channel-relay/internal/workflow"
)

// ChannelWorkflow runs the persisted channel-creation workflow
type ChannelWorkflow interface {
	Execute(ctx context.Context, input workflow.ChannelRequestInput) (*repository.ChannelRequest, error)
}

// SlackGateway is the remote capability surface the front door calls
// directly, bypassing the workflow
type SlackGateway interface {
	CreateChannel(ctx context.Context, name string, isPrivate bool) (string, error)
	LookupUserByEmail(ctx context.Context, email string) (string, error)
	InviteUsers(ctx context.Context, channelID string, userIDs []string) error
	TokenIdentity(ctx context.Context) (*slackapi.TokenIdentity, error)
	OpenModal(ctx context.Context, triggerID string, view slack.ModalViewRequest) error
	PostDelayedResponse(ctx context.Context, responseURL, text, responseType string)
}

// RequestReader reads persisted channel requests
type RequestReader interface {
	GetByID(ctx context.Context, id int) (*repository.ChannelRequest, error)
}

// Server is the HTTP front door: form webhook, slash command, modal
// interaction, plus health and debug endpoints
type Server struct {
	config     *config.Config
	logger     *zap.Logger
	workflow   ChannelWorkflow
	slack      SlackGateway
	requests   RequestReader
	verifier   *signature.Verifier
	httpServer *http.Server
}

func NewServer(cfg *config.Config, logger *zap.Logger, wf ChannelWorkflow, slackClient SlackGateway, requests RequestReader) *Server {
	return &Server{
		config:   cfg,
		logger:   logger,
		workflow: wf,
		slack:    slackClient,
		requests: requests,
		verifier: signature.NewVerifier(cfg.SlackSigningSecret, logger),
	}
}

// Router builds the route table. Exposed separately so tests can drive it
// through httptest without binding a port.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestLogging)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)

	r.HandleFunc("/forms/webhook", s.handleFormsWebhook).Methods(http.MethodPost)
	r.HandleFunc("/forms/requests/{id:[0-9]+}", s.handleGetRequest).Methods(http.MethodGet)

	r.HandleFunc("/create-channel", s.handleCreateChannel).Methods(http.MethodPost)
	r.HandleFunc("/debug/token-info", s.handleTokenInfo).Methods(http.MethodGet)

	// Slack-originated routes carry a request signature
	slackRoutes := r.PathPrefix("/slack").Subrouter()
	slackRoutes.Use(s.verifySignature)
	slackRoutes.HandleFunc("/commands/create-channel", s.handleSlashCommand).Methods(http.MethodPost)
	slackRoutes.HandleFunc("/interactions", s.handleInteraction).Methods(http.MethodPost)

	return r
}

// Start runs the HTTP server until it is shut down
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.ServerHost, s.config.ServerPort),
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.httpServer.Addr),
		zap.Bool("signature_verification", s.config.SignatureVerificationEnabled()))

	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// requestLogging tags every request with a correlation id and logs its
// outcome
func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.Debug("Request handled",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

// verifySignature authenticates Slack-originated requests. The body is
// read here and restored so handlers can parse it again.
func (s *Server) verifySignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.config.SignatureVerificationEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.logger.Error("Failed to read request body", zap.Error(err))
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		timestamp := r.Header.Get("X-Slack-Request-Timestamp")
		providedSignature := r.Header.Get("X-Slack-Signature")

		if !s.verifier.Verify(timestamp, body, providedSignature) {
			s.logger.Warn("Invalid Slack signature",
				zap.String("path", r.URL.Path),
				zap.String("timestamp", timestamp))
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
