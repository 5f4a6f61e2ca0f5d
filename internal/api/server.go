// Package api serves the quota report over HTTP for dashboard polling.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/bnema/limitwatch/internal/application"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// FetchFunc runs one full quota fetch. The server caches whatever it
// returns, so implementations fetch every account and leave the narrowing
// to the request filters.
type FetchFunc func(ctx context.Context) (application.Report, error)

type Server struct {
	fetch  FetchFunc
	cache  *Cache
	server *http.Server
}

func NewServer(fetch FetchFunc, addr string, cacheTTL time.Duration) *Server {
	s := &Server{
		fetch: fetch,
		cache: NewCache(cacheTTL),
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Get("/healthz", s.handleHealth)
	router.Get("/api/quotas", s.handleQuotas)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
