package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/m-mizutani/floorbot/pkg/catalog"
	"github.com/m-mizutani/floorbot/pkg/index"
	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/floorbot/pkg/usecase/chat"
	"github.com/m-mizutani/floorbot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	serviceName    = "floorbot"
	serviceVersion = "0.1.0"

	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// ChatUseCase is the part of the chat usecase served over HTTP
type ChatUseCase interface {
	Chat(ctx context.Context, input *chat.ChatInput) (*model.ChatResponse, error)
	CleanupSessions(ctx context.Context) (int, error)
}

type Server struct {
	echo      *echo.Echo
	chat      ChatUseCase
	index     index.Index
	lexical   *index.Lexical
	catalog   *catalog.Catalog
	storeKind string
	mcp       http.Handler
	metrics   *metrics
}

type Option func(*Server)

// WithLexical enables GET /fragments/search
func WithLexical(l *index.Lexical) Option {
	return func(s *Server) {
		s.lexical = l
	}
}

// WithStoreKind sets the session store name reported by /health
func WithStoreKind(kind string) Option {
	return func(s *Server) {
		s.storeKind = kind
	}
}

// WithMCP mounts an MCP streamable HTTP handler at /mcp
func WithMCP(h http.Handler) Option {
	return func(s *Server) {
		s.mcp = h
	}
}

func WithCatalog(cat *catalog.Catalog) Option {
	return func(s *Server) {
		s.catalog = cat
	}
}

func New(uc ChatUseCase, idx index.Index, opts ...Option) *Server {
	s := &Server{
		echo:      echo.New(),
		chat:      uc,
		index:     idx,
		catalog:   catalog.Default(),
		storeKind: "memory",
		metrics:   newMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))
	e.Use(requestLogger)

	e.GET("/", s.handleRoot)
	e.GET("/health", s.handleHealth)
	e.POST("/chat", s.handleChat)
	e.POST("/admin/cleanup-sessions", s.handleCleanup)
	e.GET("/fragments/search", s.handleSearch)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))
	if s.mcp != nil {
		e.Any("/mcp", echo.WrapHandler(s.mcp))
	}

	return s
}

// ServeHTTP lets the server be used directly as an http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		logging.From(ctx).Info("starting HTTP server", "addr", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- goerr.Wrap(err, "failed to start HTTP server", goerr.V("addr", addr))
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return goerr.Wrap(err, "failed to shutdown HTTP server")
	}
	return nil
}

func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		req := c.Request()
		logging.From(req.Context()).Debug("http request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", c.Response().Status,
			"duration", time.Since(start),
		)
		return err
	}
}

// statusOf maps domain errors onto HTTP status codes
func statusOf(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, model.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, model.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(code int, err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			return msg
		}
		return http.StatusText(code)
	}

	switch code {
	case http.StatusBadRequest:
		return err.Error()
	case http.StatusServiceUnavailable:
		return "Service not ready. Please ensure data ingestion has been completed."
	case http.StatusBadGateway:
		return "Language model is temporarily unavailable. Please try again."
	default:
		return "Failed to process your message. Please try again."
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	code := statusOf(err)
	req := c.Request()
	logger := logging.From(req.Context())
	if code >= http.StatusInternalServerError {
		logger.Error("request failed", "method", req.Method, "path", req.URL.Path, "status", code, "error", err)
	} else {
		logger.Warn("request rejected", "method", req.Method, "path", req.URL.Path, "status", code, "error", err)
	}

	if c.Response().Committed {
		return
	}
	if err := c.JSON(code, map[string]string{"error": errorMessage(code, err)}); err != nil {
		logger.Error("failed to write error response", "error", err)
	}
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"name":    serviceName,
		"project": s.catalog.Project,
		"version": serviceVersion,
		"status":  "running",
		"endpoints": map[string]string{
			"chat":    "/chat",
			"health":  "/health",
			"search":  "/fragments/search",
			"metrics": "/metrics",
		},
	})
}

type healthResponse struct {
	Status       string `json:"status"`
	IndexLoaded  bool   `json:"index_loaded"`
	Fragments    int    `json:"fragments"`
	SessionStore string `json:"session_store"`
}

func (s *Server) handleHealth(c echo.Context) error {
	fragments, err := s.index.Fragments(c.Request().Context())
	if err != nil {
		return goerr.Wrap(err, "failed to count fragments")
	}

	return c.JSON(http.StatusOK, &healthResponse{
		Status:       "healthy",
		IndexLoaded:  len(fragments) > 0,
		Fragments:    len(fragments),
		SessionStore: s.storeKind,
	})
}

func (s *Server) handleChat(c echo.Context) error {
	start := time.Now()

	var input chat.ChatInput
	if err := c.Bind(&input); err != nil {
		s.metrics.failures.WithLabelValues(strconv.Itoa(http.StatusBadRequest)).Inc()
		return goerr.Wrap(model.ErrInvalidRequest, "malformed request body", goerr.V("cause", err))
	}

	resp, err := s.chat.Chat(c.Request().Context(), &input)
	if err != nil {
		s.metrics.failures.WithLabelValues(strconv.Itoa(statusOf(err))).Inc()
		return err
	}

	s.metrics.latency.Observe(time.Since(start).Seconds())
	s.metrics.turns.WithLabelValues(string(resp.LeadSignals.Intent)).Inc()
	s.metrics.actions.WithLabelValues(string(resp.LeadSignals.RecommendedAction)).Inc()

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCleanup(c echo.Context) error {
	n, err := s.chat.CleanupSessions(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"cleaned_up": n,
		"message":    "Cleaned up " + strconv.Itoa(n) + " expired sessions",
	})
}

type searchHit struct {
	ID    model.FragmentID   `json:"id"`
	Kind  model.FragmentKind `json:"kind"`
	Page  int                `json:"page,omitempty"`
	Score float64            `json:"score"`
	Text  string             `json:"text"`
}

func (s *Server) handleSearch(c echo.Context) error {
	if s.lexical == nil {
		return goerr.Wrap(model.ErrNotInitialized, "lexical index is not loaded")
	}

	q := c.QueryParam("q")
	if q == "" {
		return goerr.Wrap(model.ErrInvalidRequest, "q is required")
	}

	limit := defaultSearchLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return goerr.Wrap(model.ErrInvalidRequest, "limit must be a positive integer", goerr.V("limit", raw))
		}
		limit = min(n, maxSearchLimit)
	}

	hits, err := s.lexical.Search(q, limit)
	if err != nil {
		return err
	}

	results := make([]*searchHit, 0, len(hits))
	for _, h := range hits {
		results = append(results, &searchHit{
			ID:    h.Fragment.ID,
			Kind:  h.Fragment.Kind,
			Page:  h.Fragment.Page(),
			Score: h.Score,
			Text:  h.Fragment.Text,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"query":   q,
		"results": results,
	})
}
