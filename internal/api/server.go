// Package api serves saved scan results over HTTP.
//
// Routes:
//
//	GET /healthz
//	GET /scans                          saved results, newest first
//	GET /scans/{key}                    one result (?format=json|yaml|toml)
//	GET /scans/{key}/tables/{table}     columns and rows of one table
//	GET /scans/{key}/url                presigned download link (object store only)
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/blindsight/internal/logger"
	"github.com/koustreak/blindsight/internal/store"
)

// Presigner hands out time-limited download links. store.Object implements it.
type Presigner interface {
	URL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Server is the results browser.
type Server struct {
	loader    store.Loader
	presigner Presigner
	urlTTL    time.Duration
	log       *logger.Logger
}

// New returns a Server reading from loader.
func New(loader store.Loader, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Global()
	}
	return &Server{loader: loader, log: log.Component("api")}
}

// WithPresigner enables the /url route.
func (s *Server) WithPresigner(p Presigner, ttl time.Duration) *Server {
	s.presigner = p
	s.urlTTL = ttl
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Route("/scans", func(r chi.Router) {
		r.Get("/", s.listScans)
		r.Route("/{key}", func(r chi.Router) {
			r.Get("/", s.getScan)
			r.Get("/tables/{table}", s.getTable)
			r.Get("/url", s.getURL)
		})
	})
	return r
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("results browser listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down results browser")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.HTTPEvent().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
