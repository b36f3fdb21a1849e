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

	"github.com/aretw0/tally"
	"github.com/aretw0/tally/internal/logging"
	"github.com/aretw0/tally/pkg/domain"
	"github.com/aretw0/tally/pkg/ports"
	"github.com/aretw0/tally/pkg/runner"
	"github.com/aretw0/tally/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// sessionURIPrefix addresses session resources: tally://sessions/{id}.
const sessionURIPrefix = "tally://sessions/"

// EvaluateResponse is the result of the stateless evaluate tool.
type EvaluateResponse struct {
	Expression string         `json:"expression" jsonschema_description:"The sanitized expression"`
	Outcome    domain.Outcome `json:"outcome" jsonschema_description:"Value and canonical text, or the error kind"`
}

// PressResponse is the session state after a press.
type PressResponse struct {
	State   *domain.State   `json:"state" jsonschema_description:"Session state after the keys"`
	Outcome *domain.Outcome `json:"outcome,omitempty" jsonschema_description:"Present when the keys evaluated the expression"`
	Ignored string          `json:"ignored,omitempty" jsonschema_description:"Characters that map to no key"`
}

// HistoryResponse lists past evaluations, newest first.
type HistoryResponse struct {
	SessionID string                `json:"session_id"`
	History   []domain.HistoryEntry `json:"history"`
}

// Server exposes calculator sessions as MCP tools.
type Server struct {
	manager   *session.Manager
	engine    ports.Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(manager *session.Manager, engine ports.Engine, opts ...Option) *Server {
	s := &Server{
		manager:   manager,
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("tally-mcp", tally.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
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
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("evaluate",
		mcp.WithDescription("Evaluate an arithmetic expression (+ - * / parentheses) without touching any session."),
		mcp.WithString("expression", mcp.Required(), mcp.Description("Expression such as (2+3)*4")),
		mcp.WithOutputSchema[EvaluateResponse](),
	), mcp.NewStructuredToolHandler(s.handleEvaluate))

	s.mcpServer.AddTool(mcp.NewTool("press",
		mcp.WithDescription("Type keys into a calculator session. Each character is a key; "+
			"'=' evaluates. A whole line that does not end in '=' is evaluated too. "+
			"The words clear, back and clear-history run that command."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Session ID; created on first use")),
		mcp.WithString("keys", mcp.Required(), mcp.Description("Keys to type, e.g. 12+3=")),
		mcp.WithOutputSchema[PressResponse](),
	), mcp.NewStructuredToolHandler(s.handlePress))

	s.mcpServer.AddTool(mcp.NewTool("history",
		mcp.WithDescription("List the evaluations of a session, newest first."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithBoolean("clear", mcp.Description("Clear the history after reading it")),
		mcp.WithOutputSchema[HistoryResponse](),
	), mcp.NewStructuredToolHandler(s.handleHistory))
}

func (s *Server) handleEvaluate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (EvaluateResponse, error) {
	expr, _ := args["expression"].(string)
	clean, err := runner.SanitizeInput(expr)
	if err != nil {
		s.logger.Warn("MCP evaluate: input rejected", "err", err, "size", len(expr))
		return EvaluateResponse{}, fmt.Errorf("input rejected: %w", err)
	}
	return EvaluateResponse{Expression: clean, Outcome: tally.Evaluate(clean)}, nil
}

func (s *Server) handlePress(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (PressResponse, error) {
	sessionID, _ := args["session"].(string)
	keys, _ := args["keys"].(string)
	if sessionID == "" {
		return PressResponse{}, errors.New("session is required")
	}

	clean, err := runner.SanitizeInput(keys)
	if err != nil {
		s.logger.Warn("MCP press: input rejected", "err", err, "size", len(keys))
		return PressResponse{}, fmt.Errorf("input rejected: %w", err)
	}

	req := runner.ParseLine(clean)
	res, err := s.manager.Apply(ctx, s.engine, sessionID, req.Commands...)
	if err != nil {
		return PressResponse{}, fmt.Errorf("press failed: %w", err)
	}
	return PressResponse{State: res.After, Outcome: res.Outcome, Ignored: req.Ignored}, nil
}

func (s *Server) handleHistory(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (HistoryResponse, error) {
	sessionID, _ := args["session"].(string)
	clearAfter, _ := args["clear"].(bool)

	if !clearAfter {
		state, err := s.manager.Load(ctx, sessionID)
		if err != nil {
			return HistoryResponse{}, fmt.Errorf("history failed: %w", err)
		}
		return HistoryResponse{SessionID: sessionID, History: state.History}, nil
	}

	// Read and clear under one lock so no evaluation lands in between.
	resp := HistoryResponse{SessionID: sessionID}
	store := s.manager.Store()
	err := s.manager.WithLock(ctx, sessionID, func(ctx context.Context) error {
		state, err := store.Load(ctx, sessionID)
		if err != nil {
			return err
		}
		resp.History = state.History
		next, _, err := s.engine.Dispatch(ctx, state, domain.ClearHistory())
		if err != nil {
			return err
		}
		return store.Save(ctx, sessionID, next)
	})
	if err != nil {
		return HistoryResponse{}, fmt.Errorf("clear history failed: %w", err)
	}
	return resp, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(sessionURIPrefix+"{id}", "Calculator session",
		mcp.WithTemplateDescription("Current expression, display and history of a session"),
		mcp.WithTemplateMIMEType("application/json"),
	), s.readSession)
}

func (s *Server) readSession(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	sessionID, ok := strings.CutPrefix(uri, sessionURIPrefix)
	if !ok || sessionID == "" {
		return nil, fmt.Errorf("unknown resource %q", uri)
	}
	state, err := s.manager.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
