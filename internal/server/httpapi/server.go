// Package httpapi exposes the server over an authenticated JSON HTTP
// surface. It is a thin translation layer: request decoding, the bearer
// token check, and error-to-status mapping live here; every rule about
// ownership, grants and expiration lives in the services.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/filesafe/internal/logging"
	"github.com/dmitrijs2005/filesafe/internal/server/services"
	"github.com/dmitrijs2005/filesafe/internal/server/sharelink"
	"github.com/go-chi/chi/v5"
)

type HTTPServer struct {
	address           string
	users             *services.UserService
	objects           *services.ObjectService
	grants            *services.GrantService
	links             *sharelink.Issuer
	jwtSecret         []byte
	defaultGrantHours int
	logger            logging.Logger
}

func NewHTTPServer(address string, logger logging.Logger, us *services.UserService,
	objs *services.ObjectService, grs *services.GrantService, links *sharelink.Issuer,
	secretKey string, defaultGrantHours int) *HTTPServer {
	return &HTTPServer{
		address:           address,
		logger:            logger.With("module", "http_server"),
		users:             us,
		objects:           objs,
		grants:            grs,
		links:             links,
		jwtSecret:         []byte(secretKey),
		defaultGrantHours: defaultGrantHours,
	}
}

// Router assembles the route tree. Everything under /api/files requires a
// bearer token.
func (s *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/api/register", s.handleRegister)
	r.Post("/api/login", s.handleLogin)
	r.Post("/api/refresh", s.handleRefresh)

	r.Route("/api/files", func(r chi.Router) {
		r.Use(s.accessTokenMiddleware)
		r.Post("/", s.handleUpload)
		r.Get("/", s.handleListOwned)
		r.Get("/accessible", s.handleListAccessible)
		r.Get("/{ref}/view", s.handleView)
		r.Get("/{ref}/download", s.handleDownload)
		r.Post("/{ref}/share", s.handleShare)
		r.Get("/{ref}/shares", s.handleListShares)
		r.Post("/{ref}/permissions", s.handleUpdatePermission)
		r.Post("/{ref}/revoke", s.handleRevoke)
	})

	return r
}

func (s *HTTPServer) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}
