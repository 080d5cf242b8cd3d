// Package server initializes and runs the main application server.
// It wires storage backends, the service layer and the HTTP endpoint,
// and handles graceful shutdown on OS signals.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/filesafe/internal/logging"
	"github.com/dmitrijs2005/filesafe/internal/server/blobstore"
	"github.com/dmitrijs2005/filesafe/internal/server/config"
	"github.com/dmitrijs2005/filesafe/internal/server/httpapi"
	"github.com/dmitrijs2005/filesafe/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filesafe/internal/server/services"
	"github.com/dmitrijs2005/filesafe/internal/server/sharelink"
)

type App struct {
	config        *config.Config
	logger        logging.Logger
	userService   *services.UserService
	objectService *services.ObjectService
	grantService  *services.GrantService
	links         *sharelink.Issuer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	handler := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(handler)

	rm, err := repomanager.NewPostgresRepositoryManager(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	blobs, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
		RootUser:     c.S3RootUser,
		RootPassword: c.S3RootPassword,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	us := services.NewUserService(rm.Users(), rm.RefreshTokens(), []byte(c.SecretKey),
		c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration, logger)
	objs := services.NewObjectService(rm.Objects(), rm.Grants(), blobs, logger)
	grs := services.NewGrantService(rm.Objects(), rm.Grants(), rm.Users(), logger)

	return &App{
		config:        c,
		logger:        logger,
		userService:   us,
		objectService: objs,
		grantService:  grs,
		links:         sharelink.NewIssuer(c.ShareLinkSecret),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger,
		app.userService, app.objectService, app.grantService, app.links,
		app.config.SecretKey, app.config.DefaultGrantDurationHours)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

}
