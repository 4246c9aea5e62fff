package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ConversationResponse is the structured result of the conversation tools.
type ConversationResponse struct {
	SessionID string                `json:"session_id" jsonschema_description:"Identifier to pass to resume_conversation"`
	Status    domain.SessionStatus  `json:"status" jsonschema_description:"running, waiting_for_input, completed or error"`
	Items     []domain.DeliveryItem `json:"items" jsonschema_description:"Messages and audio to deliver to the user, in order"`
	Failure   string                `json:"failure,omitempty" jsonschema_description:"Why the input was rejected or the session failed"`
}

// Engine defines what the MCP server needs from the chatflow engine.
type Engine interface {
	Start(ctx context.Context, templateID string, vars map[string]any) (*chatflow.Result, error)
	Resume(ctx context.Context, sessionID string, in domain.Inbound) (*chatflow.Result, error)
	Session(ctx context.Context, id string) (*domain.Session, error)
	Validate(doc []byte) error
}

// Server wraps the chatflow Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("chatflow-mcp", strings.TrimSpace(chatflow.Version)),
		logger:    logger,
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	startTool := mcp.NewTool("start_conversation",
		mcp.WithDescription("Start a conversation on a published chatbot template. Returns the first messages and whether the bot waits for an answer."),
		mcp.WithString("template_id", mcp.Required(), mcp.Description("Published template to run")),
		mcp.WithString("variables", mcp.Description("JSON object of initial variables (optional)")),
		mcp.WithOutputSchema[ConversationResponse](),
	)
	s.mcpServer.AddTool(startTool, mcp.NewStructuredToolHandler(s.handleStart))

	resumeTool := mcp.NewTool("resume_conversation",
		mcp.WithDescription("Answer a conversation that is waiting for input."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session returned by start_conversation")),
		mcp.WithString("text", mcp.Description("Text answer")),
		mcp.WithString("audio_url", mcp.Description("URL of an audio answer, for speech-to-text nodes")),
		mcp.WithOutputSchema[ConversationResponse](),
	)
	s.mcpServer.AddTool(resumeTool, mcp.NewStructuredToolHandler(s.handleResume))

	s.mcpServer.AddTool(mcp.NewTool("validate_graph",
		mcp.WithDescription("Validate a chatbot graph document and list every violation."),
		mcp.WithString("document", mcp.Required(), mcp.Description("The JSON graph document")),
	), s.handleValidate)

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get the stored snapshot of a conversation."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
	), s.handleGetSession)
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ConversationResponse, error) {
	templateID, _ := args["template_id"].(string)
	if templateID == "" {
		return ConversationResponse{}, errors.New("template_id is required")
	}

	vars := map[string]any{}
	if raw, ok := args["variables"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &vars); err != nil {
			return ConversationResponse{}, fmt.Errorf("variables must be a JSON object: %w", err)
		}
	}

	res, err := s.engine.Start(ctx, templateID, vars)
	if err != nil {
		s.logger.Warn("MCP start_conversation failed", "template_id", templateID, "err", err)
		return ConversationResponse{}, err
	}
	return toResponse(res), nil
}

func (s *Server) handleResume(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ConversationResponse, error) {
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return ConversationResponse{}, errors.New("session_id is required")
	}

	in := domain.Inbound{}
	in.Text, _ = args["text"].(string)
	if url, ok := args["audio_url"].(string); ok && url != "" {
		in.Audio = &domain.AudioRef{URL: url}
	}

	res, err := s.engine.Resume(ctx, sessionID, in)
	if err != nil {
		s.logger.Warn("MCP resume_conversation failed", "session_id", sessionID, "err", err)
		return ConversationResponse{}, err
	}
	return toResponse(res), nil
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, _ := argument(request, "document")
	if err := s.engine.Validate([]byte(doc)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("valid"), nil
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, _ := argument(request, "session_id")
	sess, err := s.engine.Session(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	jsonBytes, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func argument(request mcp.CallToolRequest, name string) (string, bool) {
	v, ok := request.GetArguments()[name].(string)
	return v, ok
}

func toResponse(res *chatflow.Result) ConversationResponse {
	out := ConversationResponse{
		SessionID: res.SessionID,
		Status:    res.Status,
		Items:     res.Items,
	}
	if res.Failure != nil {
		out.Failure = res.Failure.Error()
	}
	return out
}
