// Package app assembles the portal: configuration, logging, the storage
// backend, the session layer, the background ownership syncer and the HTTP and
// gRPC servers. It owns their lifecycle, including graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/schoolproject/internal/auth"
	"github.com/patric-chuzhbe/schoolproject/internal/config"
	"github.com/patric-chuzhbe/schoolproject/internal/db/jsondb"
	"github.com/patric-chuzhbe/schoolproject/internal/db/memorystorage"
	"github.com/patric-chuzhbe/schoolproject/internal/db/mongodb"
	"github.com/patric-chuzhbe/schoolproject/internal/db/postgresdb"
	"github.com/patric-chuzhbe/schoolproject/internal/db/storage"
	"github.com/patric-chuzhbe/schoolproject/internal/grpcserver"
	"github.com/patric-chuzhbe/schoolproject/internal/ipchecker"
	"github.com/patric-chuzhbe/schoolproject/internal/logger"
	"github.com/patric-chuzhbe/schoolproject/internal/models"
	"github.com/patric-chuzhbe/schoolproject/internal/ownershipsync"
	"github.com/patric-chuzhbe/schoolproject/internal/password"
	"github.com/patric-chuzhbe/schoolproject/internal/router"
	"github.com/patric-chuzhbe/schoolproject/internal/service"
	"github.com/patric-chuzhbe/schoolproject/internal/view"
)

// ErrUnknownStorageType is returned by New when STORAGE names no known backend.
var ErrUnknownStorageType = errors.New("unknown storage type")

// App holds everything the running portal needs.
type App struct {
	cfg          *config.Config
	db           storage.Storage
	svc          *service.Service
	syncer       *ownershipsync.Syncer
	stopSyncer   context.CancelFunc
	httpHandler  http.Handler
	grpcServer   *grpc.Server
	grpcListener net.Listener
}

// New loads the configuration and builds every component. Nothing listens yet.
// When a step fails, the store and the syncer opened before it are released.
func New(optionsProto ...config.InitOption) (_ *App, err error) {
	app := &App{}
	defer func() {
		if err != nil {
			app.release()
		}
	}()

	app.cfg, err = config.New(optionsProto...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}
	logger.Log.Infoln("Успешное подключение к базе данных", zap.Int("storage", app.cfg.StorageType()))

	sessionKey, err := app.cfg.SessionKey()
	if err != nil {
		return nil, fmt.Errorf("in internal/app/app.go/New(): error while `app.cfg.SessionKey()` calling: %w", err)
	}
	theAuth := auth.New(app.cfg.SessionCookieName, sessionKey)
	if !theAuth.Signed() {
		logger.Log.Warnln("SESSION_SIGNING_KEY is empty, session cookies carry raw user ids")
	}

	renderer, err := view.New()
	if err != nil {
		return nil, err
	}

	checker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, err
	}

	app.syncer = ownershipsync.New(
		app.db,
		app.cfg.OwnershipQueueCapacity,
		app.cfg.OwnershipSyncInterval,
	)
	syncerRunCtx, stopSyncer := context.WithCancel(context.Background())
	app.stopSyncer = stopSyncer

	app.syncer.Run(syncerRunCtx)
	app.syncer.ListenErrors(func(err error) {
		logger.Log.Errorln("Error passed from the `app.syncer.ListenErrors()`:", zap.Error(err))
	})

	app.svc = service.New(app.db, password.New(app.cfg.PasswordHashCost), app.syncer)

	app.httpHandler = router.New(
		app.svc,
		theAuth,
		renderer,
		router.WithSubnetGuard(checker),
		router.WithStaticDir(app.cfg.StaticDir),
	)

	if app.cfg.GRPCAddr != "" {
		app.grpcServer, app.grpcListener, err = grpcserver.NewGRPCServer(
			app.cfg.GRPCAddr,
			grpcserver.NewCourseCatalogHandler(app.svc),
			theAuth,
			app.db,
		)
		if err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Handler returns the HTTP handler of the portal.
func (a *App) Handler() http.Handler {
	return a.httpHandler
}

// Seed inserts the starter course unless it is disabled. Failures are logged
// and never stop the startup.
func (a *App) Seed(ctx context.Context) {
	if a.cfg.SkipSeedCourse {
		return
	}

	created, err := a.svc.SeedCourse(ctx)
	switch {
	case err != nil:
		logger.Log.Errorln("Ошибка при создании и сохранении курса в базе данных", zap.Error(err))
	case !created:
		logger.Log.Warnln("Ошибка при создании и сохранении курса в базе данных: Курс с таким именем уже существует", zap.String("name", models.SeedCourseName))
	default:
		logger.Log.Infoln("Курс успешно создан и сохранен в базе данных", zap.String("name", models.SeedCourseName))
	}
}

// Run seeds the store and serves HTTP (and gRPC when configured) until
// SIGINT or SIGTERM, then shuts everything down.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Seed(ctx)

	logger.Log.Infoln("Сервер запущен", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:              a.cfg.RunAddr,
		Handler:           a.httpHandler,
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout,
	}

	serverErrCh := make(chan error, 2)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	if a.grpcServer != nil {
		logger.Log.Infoln("gRPC server running", "GRPCAddr", a.cfg.GRPCAddr)
		go func() {
			serverErrCh <- a.grpcServer.Serve(a.grpcListener)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Stopping servers...")
	case err := <-serverErrCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("server shutdown error: %w", err)
	}
	if a.grpcServer != nil {
		a.grpcServer.GracefulStop()
	}

	a.stopSyncer()
	select {
	case <-a.syncer.Done():
	case <-shutdownCtx.Done():
		logger.Log.Warnln("ownership syncer did not stop in time")
	}

	if err := a.db.Close(); err != nil && runErr == nil {
		runErr = err
	}

	return runErr
}

// release stops the syncer and closes the store, whichever of them exist.
func (a *App) release() {
	if a.stopSyncer != nil {
		a.stopSyncer()
		<-a.syncer.Done()
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Log.Errorln("error while closing the storage", zap.Error(err))
		}
	}
}

// Close flushes the logger.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	ctx := context.Background()

	switch cfg.StorageType() {
	case models.StorageTypeMongo:
		return mongodb.New(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.DBConnectionTimeout)

	case models.StorageTypePostgresql:
		return postgresdb.New(
			ctx,
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
			cfg.MigrationsDir,
			postgresdb.WithDriverName(cfg.DatabaseDriver),
		)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)

	case models.StorageTypeMemory:
		return memorystorage.New()
	}

	return nil, ErrUnknownStorageType
}
