// Package api exposes a small local HTTP control surface for the daemon.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/genricoloni/reverie/internal/domain"
	"github.com/genricoloni/reverie/internal/provider"
	"github.com/genricoloni/reverie/internal/rotation"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const _requestTimeout = 30 * time.Second

// Controller is the part of the rotator the API drives
type Controller interface {
	Next(ctx context.Context) error
	Prev(ctx context.Context) error
	Reload(ctx context.Context) error
	Snapshot(ctx context.Context) (rotation.Snapshot, error)
}

// StatusResponse is returned by GET /status
type StatusResponse struct {
	Rotation rotation.Snapshot   `json:"rotation" yaml:"rotation"`
	Weather  *domain.WeatherData `json:"weather,omitempty" yaml:"weather,omitempty"`
}

// RepositoryInfoResponse is returned by GET /repository/info
type RepositoryInfoResponse struct {
	Descriptor string                    `json:"descriptor" yaml:"descriptor"`
	Info       provider.RepositoryInfo   `json:"info" yaml:"info"`
	Validation provider.ValidationResult `json:"validation" yaml:"validation"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error" yaml:"error"`
}

// Server serves the control API
type Server struct {
	logger     *zap.Logger
	addr       string
	controller Controller
	source     provider.DirectSource
	preloader  domain.Preloader
	weather    domain.WeatherSource
	gatherer   prometheus.Gatherer

	mu     sync.Mutex
	server *http.Server
	wg     sync.WaitGroup
}

// NewServer creates the API server. An empty addr disables listening; weather and gatherer may be nil.
func NewServer(
	logger *zap.Logger,
	addr string,
	controller Controller,
	source provider.DirectSource,
	preloader domain.Preloader,
	weather domain.WeatherSource,
	gatherer prometheus.Gatherer,
) *Server {
	return &Server{
		logger:     logger,
		addr:       addr,
		controller: controller,
		source:     source,
		preloader:  preloader,
		weather:    weather,
		gatherer:   gatherer,
	}
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Timeout(_requestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/status", s.status)
	r.Post("/next", s.command(s.controller.Next))
	r.Post("/prev", s.command(s.controller.Prev))
	r.Post("/reload", s.command(s.controller.Reload))

	r.Route("/repository", func(r chi.Router) {
		r.Get("/test", s.testRepository)
		r.Get("/info", s.repositoryInfo)
	})

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Start listens on addr in the background
func (s *Server) Start(_ context.Context) error {
	if s.addr == "" {
		s.logger.Info("Control API disabled")
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Control API stopped unexpectedly", zap.Error(err))
		}
	}()

	s.logger.Info("Control API listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Stop shuts the listener down and waits for in-flight requests
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	err := srv.Shutdown(ctx)
	s.wg.Wait()
	return err
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("requestId", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	s.write(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	snap, err := s.controller.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusServiceUnavailable, err.Error())
		return
	}

	resp := StatusResponse{Rotation: snap}
	if s.weather != nil {
		if report, ok := s.weather.Latest(); ok {
			resp.Weather = &report
		}
	}
	s.write(w, r, http.StatusOK, resp)
}

func (s *Server) command(fn func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r.Context()); err != nil {
			s.writeError(w, r, http.StatusServiceUnavailable, err.Error())
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func (s *Server) testRepository(w http.ResponseWriter, r *http.Request) {
	descriptor := strings.TrimSpace(r.URL.Query().Get("descriptor"))
	if descriptor == "" {
		s.writeError(w, r, http.StatusBadRequest, "descriptor is required")
		return
	}

	result := provider.TestRepository(r.Context(), s.source, s.preloader, descriptor)
	s.logger.Info("Repository tested",
		zap.String("descriptor", descriptor),
		zap.Bool("success", result.Success),
		zap.Int("images", result.ImageCount))
	s.write(w, r, http.StatusOK, result)
}

func (s *Server) repositoryInfo(w http.ResponseWriter, r *http.Request) {
	descriptor := strings.TrimSpace(r.URL.Query().Get("descriptor"))
	s.write(w, r, http.StatusOK, RepositoryInfoResponse{
		Descriptor: descriptor,
		Info:       provider.Describe(descriptor),
		Validation: provider.Validate(descriptor),
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.write(w, r, status, ErrorResponse{Error: msg})
}

// write encodes body as JSON, or YAML when ?format=yaml
func (s *Server) write(w http.ResponseWriter, r *http.Request, status int, body any) {
	if strings.EqualFold(r.URL.Query().Get("format"), "yaml") {
		data, err := yaml.Marshal(body)
		if err != nil {
			s.logger.Error("Failed to encode YAML response", zap.Error(err))
			http.Error(w, "encoding error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(status)
		_, _ = w.Write(data)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}
