package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/shopexplore/internal/logging"
	"github.com/vbonduro/shopexplore/internal/service"
)

// tokenVerifier resolves a bearer token to the user it was issued for.
type tokenVerifier interface {
	Verify(token string) (int64, error)
}

type Server struct {
	shops         *service.ShopService
	auth          *service.AuthService
	tokens        tokenVerifier
	allowedOrigin string
	mux           *http.ServeMux
	logger        *slog.Logger
}

// NewServer builds the API handler. allowedOrigin is the frontend origin sent
// in CORS responses; empty disables CORS headers.
func NewServer(shops *service.ShopService, auth *service.AuthService, tokens tokenVerifier, allowedOrigin string, logger *slog.Logger) *Server {
	s := &Server{
		shops:         shops,
		auth:          auth,
		tokens:        tokens,
		allowedOrigin: allowedOrigin,
		mux:           http.NewServeMux(),
		logger:        logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	s.mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.HandleFunc("GET /api/auth/me", s.requireAuth(s.handleMe))

	s.mux.HandleFunc("GET /api/shops", s.handleListShops)
	s.mux.HandleFunc("GET /api/shops/nearby", s.handleNearbyShops)
	s.mux.HandleFunc("GET /api/shops/discover", s.handleDiscover)
	s.mux.HandleFunc("GET /api/shops/search", s.handleSearchShops)
	s.mux.HandleFunc("GET /api/shops/{id}", s.handleGetShop)
	s.mux.HandleFunc("POST /api/shops", s.requireAuth(s.handleCreateShop))
	s.mux.HandleFunc("PUT /api/shops/{id}", s.requireAuth(s.handleUpdateShop))
	s.mux.HandleFunc("DELETE /api/shops/{id}", s.requireAuth(s.handleDeleteShop))
	s.mux.HandleFunc("PUT /api/shops/{id}/poster", s.requireAuth(s.handleUploadPoster))
	s.mux.HandleFunc("GET /api/shops/{id}/poster", s.handleGetPoster)

	s.mux.HandleFunc("/", s.handleNotFound)
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// cors answers preflight requests and tags responses for the frontend origin.
func cors(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogger tags each request with an ID and logs it once it completes.
// Handlers log through the request-scoped logger stored in the context.
func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		reqLogger := logger.With("request_id", requestID)
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(logging.WithContext(r.Context(), reqLogger)))
		reqLogger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, cors(s.allowedOrigin, securityHeaders(s.mux))).ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests
// for at most shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server", "timeout", shutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) log(r *http.Request) *slog.Logger {
	return logging.FromContext(r.Context(), s.logger)
}
