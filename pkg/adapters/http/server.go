package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MaxDocumentSize bounds graph documents posted for validation.
const MaxDocumentSize = 4 << 20

// MaxRequestSize bounds the JSON bodies of start and resume requests.
const MaxRequestSize = 1 << 20

// Engine defines what the HTTP channel needs from the chatflow engine.
type Engine interface {
	Start(ctx context.Context, templateID string, vars map[string]any) (*chatflow.Result, error)
	Resume(ctx context.Context, sessionID string, in domain.Inbound) (*chatflow.Result, error)
	Session(ctx context.Context, id string) (*domain.Session, error)
	Validate(doc []byte) error
}

// Server exposes an Engine over HTTP.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics mounts h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewServer creates a Server for engine.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		Engine: engine,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)
	return s
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	return NewServer(engine, opts...).Routes()
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Post("/templates/{templateID}/sessions", s.StartSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", s.GetSession)
		r.Post("/resume", s.ResumeSession)
		r.Get("/events", s.SubscribeEvents)
	})
	r.Post("/graphs/validate", s.ValidateGraph)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StartRequest is the body of POST /templates/{templateID}/sessions.
type StartRequest struct {
	Variables map[string]any `json:"variables,omitempty"`
}

// ResultResponse is returned by start and resume.
type ResultResponse struct {
	SessionID string                `json:"session_id"`
	Status    domain.SessionStatus  `json:"status"`
	Items     []domain.DeliveryItem `json:"items"`
	Failure   *FailureBody          `json:"failure,omitempty"`
}

// FailureBody describes a pass that did not advance normally.
type FailureBody struct {
	Kind    string `json:"kind"`
	NodeID  string `json:"node_id,omitempty"`
	Message string `json:"message"`
}

// ErrorBody is the payload of every non-2xx response.
type ErrorBody struct {
	Error      string             `json:"error"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

// StartSession handles POST /templates/{templateID}/sessions.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "templateID")

	var body StartRequest
	if err := decodeBody(w, r, &body, true); err != nil {
		s.writeError(w, bodyStatus(err), fmt.Errorf("invalid request body: %w", err))
		return
	}

	res, err := s.Engine.Start(r.Context(), templateID, body.Variables)
	if err != nil {
		s.fail(w, r, "start", err)
		return
	}
	s.broadcast(res)
	s.writeJSON(w, http.StatusCreated, toResponse(res))
}

// ResumeSession handles POST /sessions/{sessionID}/resume.
func (s *Server) ResumeSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var in domain.Inbound
	if err := decodeBody(w, r, &in, false); err != nil {
		s.writeError(w, bodyStatus(err), fmt.Errorf("invalid request body: %w", err))
		return
	}

	res, err := s.Engine.Resume(r.Context(), sessionID, in)
	if err != nil {
		s.fail(w, r, "resume", err)
		return
	}
	s.broadcast(res)
	s.writeJSON(w, http.StatusOK, toResponse(res))
}

// GetSession handles GET /sessions/{sessionID}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Engine.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.fail(w, r, "get session", err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

// ValidateGraph handles POST /graphs/validate. The body is the graph document.
func (s *Server) ValidateGraph(w http.ResponseWriter, r *http.Request) {
	doc, err := io.ReadAll(io.LimitReader(r.Body, MaxDocumentSize+1))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(doc) > MaxDocumentSize {
		s.writeError(w, http.StatusRequestEntityTooLarge, errors.New("document too large"))
		return
	}

	if err := s.Engine.Validate(doc); err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			// Undecodable document.
			code = http.StatusBadRequest
		}
		s.writeError(w, code, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "chatflow-http",
		"version": strings.TrimSpace(chatflow.Version),
	})
}

// SubscribeEvents handles GET /sessions/{sessionID}/events (SSE).
// The optional watch query parameter filters diffs by field:
// variables, history, status, items.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	var watchList []string
	if watch := r.URL.Query().Get("watch"); watch != "" {
		watchList = strings.Split(watch, ",")
	}

	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	s.logger.Info("SSE: Subscribing to session updates", "session_id", sessionID)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE client disconnected", "session_id", sessionID)
			return
		case diff, ok := <-ch:
			if !ok {
				return
			}
			if !watches(diff, watchList) {
				continue
			}
			data, err := json.Marshal(diff)
			if err != nil {
				s.logger.Error("SSE: diff encode failed", "session_id", sessionID, "err", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func watches(diff *domain.SessionDiff, fields []string) bool {
	if len(fields) == 0 {
		return true
	}
	for _, field := range fields {
		switch strings.TrimSpace(field) {
		case "variables":
			if len(diff.Variables) > 0 {
				return true
			}
		case "history":
			if diff.History != nil {
				return true
			}
		case "status":
			if diff.Status != nil {
				return true
			}
		case "items":
			if len(diff.Items) > 0 {
				return true
			}
		}
	}
	return false
}

func (s *Server) broadcast(res *chatflow.Result) {
	if res.Diff == nil {
		s.logger.Debug("no diff to broadcast", "session_id", res.SessionID)
		return
	}
	s.Streams.Broadcast(res.SessionID, res.Diff)
}

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *domain.SessionDiff]struct{} // SessionID -> Set of Channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan *domain.SessionDiff]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a listener for sessionID. The returned func unsubscribes.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan *domain.SessionDiff, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan *domain.SessionDiff, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan *domain.SessionDiff]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

// Broadcast sends diff to every subscriber of sessionID without blocking.
func (sm *StreamManager) Broadcast(sessionID string, diff *domain.SessionDiff) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- diff:
		default:
			// Slow client.
			sm.logger.Warn("SSE: Client buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// -- Helpers --

func toResponse(res *chatflow.Result) ResultResponse {
	out := ResultResponse{
		SessionID: res.SessionID,
		Status:    res.Status,
		Items:     res.Items,
	}
	if res.Failure == nil {
		return out
	}

	var (
		rejected *domain.InputValidationError
		failed   *domain.NodeExecutionError
	)
	switch {
	case errors.As(res.Failure, &rejected):
		out.Failure = &FailureBody{Kind: "input", NodeID: rejected.NodeID, Message: rejected.Reason}
	case errors.As(res.Failure, &failed):
		out.Failure = &FailureBody{Kind: "node", NodeID: failed.NodeID, Message: failed.Err.Error()}
	default:
		out.Failure = &FailureBody{Kind: "unknown", Message: res.Failure.Error()}
	}
	return out
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	var (
		invalid      *domain.GraphValidationError
		notResumable *domain.SessionNotResumableError
	)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrTemplateNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTemplateNotPublished), errors.As(err, &notResumable):
		return http.StatusConflict
	case errors.As(err, &invalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, chatflow.ErrInputTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, chatflow.ErrInvalidUTF8):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err, "request_id", middleware.GetReqID(r.Context()))
	} else {
		s.logger.Warn(op+" rejected", "err", err, "status", code)
	}
	s.writeError(w, code, err)
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	body := ErrorBody{Error: err.Error()}
	var invalid *domain.GraphValidationError
	if errors.As(err, &invalid) {
		body.Violations = invalid.Violations
	}
	s.writeJSON(w, code, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

// decodeBody reads at most MaxRequestSize bytes of JSON into v. An empty body
// is accepted when optional is set.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestSize)
	err := json.NewDecoder(r.Body).Decode(v)
	if optional && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func bodyStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
