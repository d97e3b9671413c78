// Package server публикует инструменты по HTTP: POST /tools/{name}, список инструментов,
// метрики Prometheus и проверку живости.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/cloud-ru/mcp-fintools-go/internal/calculations"
	"github.com/cloud-ru/mcp-fintools-go/internal/logging"
	"github.com/cloud-ru/mcp-fintools-go/internal/navsource"
	"github.com/cloud-ru/mcp-fintools-go/internal/tools"
	"github.com/cloud-ru/mcp-fintools-go/internal/tracing"
	"github.com/cloud-ru/mcp-fintools-go/internal/validators"
)

const maxBodyBytes = 1 << 20

// Options настройки HTTP-сервера
type Options struct {
	Tools      []tools.Tool
	Logger     zerolog.Logger
	RatePerSec float64
	Burst      int
}

// Server HTTP-транспорт инструментов
type Server struct {
	router  chi.Router
	tools   map[string]tools.Tool
	order   []tools.Tool
	logger  zerolog.Logger
	limiter *rate.Limiter
}

// APIResponse конверт ответа
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Field   string      `json:"field,omitempty"`
}

// New создает сервер и собирает маршруты
func New(opts Options) *Server {
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 30
	}

	s := &Server{
		tools:   make(map[string]tools.Tool, len(opts.Tools)),
		order:   opts.Tools,
		logger:  opts.Logger,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Burst),
	}
	for _, t := range opts.Tools {
		s.tools[t.Name] = t
	}
	s.router = s.buildRouter()
	return s
}

// Handler возвращает корневой обработчик
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe слушает addr до отмены ctx, затем корректно останавливается
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Str("version", tracing.Version).Msg("fintools server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.contextLogger)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/tools", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Get("/", s.handleListTools)
		r.Post("/{name}", s.handleCallTool)
	})
	return r
}

// contextLogger кладет в контекст логгер с идентификатором запроса
func (s *Server) contextLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := s.logger.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()

		next.ServeHTTP(ww, r.WithContext(logging.WithLogger(r.Context(), logger)))

		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(started)).
			Msg("request handled")
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			logger := logging.FromContext(r.Context())
			logger.Warn().Str("path", r.URL.Path).Msg("rate limit exceeded")
			writeError(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests), "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":  "ok",
			"version": tracing.Version,
			"tools":   len(s.order),
		},
	})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: s.order})
}

func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	tool, ok := s.tools[name]
	if !ok {
		writeError(w, http.StatusNotFound, "неизвестный инструмент: "+name, "")
		return
	}

	params := map[string]interface{}{}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "тело запроса слишком велико", "")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &params); err != nil {
			writeError(w, http.StatusBadRequest, "тело запроса должно быть JSON-объектом", "")
			return
		}
	}

	result, err := tool.Handler(r.Context(), params)
	if err != nil {
		status, field := statusFor(err)
		writeError(w, status, err.Error(), field)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: result})
}

// statusFor сопоставляет ошибку инструмента с HTTP-статусом
func statusFor(err error) (int, string) {
	var verr *validators.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Field
	case errors.Is(err, navsource.ErrSchemeNotFound):
		return http.StatusNotFound, ""
	case errors.Is(err, navsource.ErrUpstream):
		return http.StatusBadGateway, ""
	case errors.Is(err, calculations.ErrContributionBeforeStart),
		errors.Is(err, calculations.ErrContributionAfterMaturity),
		errors.Is(err, calculations.ErrBalanceCap):
		return http.StatusUnprocessableEntity, ""
	default:
		return http.StatusInternalServerError, ""
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, field string) {
	writeJSON(w, status, APIResponse{Success: false, Error: msg, Field: field})
}
