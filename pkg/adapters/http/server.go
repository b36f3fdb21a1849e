package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/tally"
	"github.com/aretw0/tally/internal/logging"
	"github.com/aretw0/tally/pkg/domain"
	"github.com/aretw0/tally/pkg/ports"
	"github.com/aretw0/tally/pkg/runner"
	"github.com/aretw0/tally/pkg/session"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// maxBodySize caps request bodies before they reach the sanitizer.
const maxBodySize = 64 << 10

var errBadRequest = errors.New("bad request")

// Server exposes calculator sessions over HTTP.
type Server struct {
	manager *session.Manager
	engine  ports.Engine
	streams *StreamManager
	// publishMu orders snapshots against publishes: apply holds it shared
	// from save to broadcast, subscribe holds it exclusively.
	publishMu sync.RWMutex
	doc     *openapi3.T
	schemas schemaValidator
	logger  *slog.Logger
	metrics http.Handler
	router  chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler mounts h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewServer builds the router. It fails only if the embedded API document is invalid.
func NewServer(manager *session.Manager, engine ports.Engine, opts ...Option) (*Server, error) {
	doc, err := loadSpec()
	if err != nil {
		return nil, err
	}

	s := &Server{
		manager: manager,
		engine:  engine,
		doc:     doc,
		schemas: schemaValidator{doc: doc},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams = NewStreamManager(s.logger)
	s.router = s.routes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)
	r.Use(s.logRequests)

	r.Get("/health", s.getHealth)
	r.Get("/info", s.getInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Post("/evaluate", s.postEvaluate)
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Post("/", s.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Post("/commands", s.postCommand)
			r.Post("/lines", s.postLine)
			r.Get("/history", s.getHistory)
			r.Delete("/history", s.clearHistory)
			r.Get("/events", s.subscribeEvents)
			r.Get("/ws", s.serveWebSocket)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
		)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Tally API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

type evaluateRequest struct {
	Expression string `mapstructure:"expression"`
}

type evaluateResponse struct {
	Expression string         `json:"expression"`
	Outcome    domain.Outcome `json:"outcome"`
}

type commandBody struct {
	Kind  string `mapstructure:"kind"`
	Token string `mapstructure:"token"`
	Key   string `mapstructure:"key"`
}

// command resolves a body into a domain command. key wins over kind.
func (b commandBody) command() (domain.Command, error) {
	if b.Key != "" {
		key, err := runner.SanitizeInput(b.Key)
		if err != nil {
			return domain.Command{}, err
		}
		cmd, ok := domain.CommandFromKey(key)
		if !ok {
			return domain.Command{}, fmt.Errorf("%w: unmapped key %q", domain.ErrInvalidCommand, key)
		}
		return cmd, nil
	}
	if b.Kind == "" {
		return domain.Command{}, fmt.Errorf("%w: kind or key is required", domain.ErrInvalidCommand)
	}
	token, err := runner.SanitizeInput(b.Token)
	if err != nil {
		return domain.Command{}, err
	}
	return domain.Command{Kind: domain.CommandKind(b.Kind), Token: token}, nil
}

type lineBody struct {
	Line string `mapstructure:"line"`
}

type commandResponse struct {
	State   *domain.State   `json:"state"`
	Outcome *domain.Outcome `json:"outcome,omitempty"`
	Ignored string          `json:"ignored,omitempty"`
}

// decode parses data, validates it against the named schema and decodes it into out.
func (s *Server) decode(data []byte, schema string, out any) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := s.schemas.validate(schema, raw); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := mapstructure.Decode(raw, out); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) decodeCommand(data []byte) (domain.Command, error) {
	var body commandBody
	if err := s.decode(data, "Command", &body); err != nil {
		return domain.Command{}, err
	}
	return body.command()
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return data, nil
}

// apply runs cmds against a session and broadcasts the diff.
func (s *Server) apply(ctx context.Context, sessionID string, cmds []domain.Command) (session.Result, error) {
	s.publishMu.RLock()
	defer s.publishMu.RUnlock()
	res, err := s.manager.Apply(ctx, s.engine, sessionID, cmds...)
	if err != nil {
		return res, err
	}
	s.publish(sessionID, res.Diff())
	return res, nil
}

// subscribe registers a stream listener and loads the state it starts from.
// Every diff published after the snapshot reaches the channel, and none that
// the snapshot already holds does. With create set, a missing session is started.
func (s *Server) subscribe(ctx context.Context, sessionID string, create bool) (<-chan []byte, func(), *domain.State, error) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	ch, cancel := s.streams.Subscribe(sessionID)
	load := s.manager.Load
	if create {
		load = s.manager.LoadOrStart
	}
	state, err := load(ctx, sessionID)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return ch, cancel, state, nil
}

func (s *Server) publish(sessionID string, diff *domain.StateDiff) {
	if diff == nil {
		return
	}
	data, err := json.Marshal(diff)
	if err != nil {
		s.logger.Error("failed to encode diff", "session_id", sessionID, "err", err)
		return
	}
	s.streams.Broadcast(sessionID, data)
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.doc.Info != nil {
		apiVersion = s.doc.Info.Version
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "tally-http",
		"version":     tally.Version,
		"api_version": apiVersion,
	})
}

func (s *Server) postEvaluate(w http.ResponseWriter, r *http.Request) {
	data, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var body evaluateRequest
	if err := s.decode(data, "EvaluateRequest", &body); err != nil {
		s.writeError(w, err)
		return
	}
	expr, err := runner.SanitizeInput(body.Expression)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, evaluateResponse{Expression: expr, Outcome: tally.Evaluate(expr)})
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.manager.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.manager.LoadOrStart(r.Context(), uuid.NewString())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("session started", "session_id", state.SessionID)
	s.writeJSON(w, http.StatusCreated, state)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.manager.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) postCommand(w http.ResponseWriter, r *http.Request) {
	data, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	cmd, err := s.decodeCommand(data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.apply(r.Context(), chi.URLParam(r, "id"), []domain.Command{cmd})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, commandResponse{State: res.After, Outcome: res.Outcome})
}

func (s *Server) postLine(w http.ResponseWriter, r *http.Request) {
	data, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var body lineBody
	if err := s.decode(data, "Line", &body); err != nil {
		s.writeError(w, err)
		return
	}
	line, err := runner.SanitizeInput(body.Line)
	if err != nil {
		s.writeError(w, err)
		return
	}
	req := runner.ParseLine(line)
	res, err := s.apply(r.Context(), chi.URLParam(r, "id"), req.Commands)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, commandResponse{State: res.After, Outcome: res.Outcome, Ignored: req.Ignored})
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	state, err := s.manager.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]domain.HistoryEntry{"history": state.History})
}

func (s *Server) clearHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.manager.Load(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.apply(r.Context(), id, []domain.Command{domain.ClearHistory()})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res.After)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	} else {
		s.logger.Warn("request rejected", "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidCommand),
		errors.Is(err, errBadRequest),
		errors.Is(err, runner.ErrInputTooLarge),
		errors.Is(err, runner.ErrInvalidUTF8):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
