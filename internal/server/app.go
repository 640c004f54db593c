// Package server wires the contacts backend together: storage, cache,
// avatar uploads, services and the HTTP and gRPC listeners. It also owns
// graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/contacts/internal/logging"
	"github.com/dmitrijs2005/contacts/internal/server/auth"
	"github.com/dmitrijs2005/contacts/internal/server/cache"
	"github.com/dmitrijs2005/contacts/internal/server/config"
	"github.com/dmitrijs2005/contacts/internal/server/mailer"
	"github.com/dmitrijs2005/contacts/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/contacts/internal/server/services"
	"github.com/dmitrijs2005/contacts/internal/server/shared/db"
	"github.com/dmitrijs2005/contacts/internal/server/storage"

	gs "github.com/dmitrijs2005/contacts/internal/server/grpc"
	hs "github.com/dmitrijs2005/contacts/internal/server/http"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	redis      *redis.Client
	httpServer *http.Server
	grpcServer *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel, c.LogFormat)

	sqlDB, err := db.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if c.RunMigrations {
		if err := rm.RunMigrations(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}

	rdb, err := cache.Connect(ctx, c.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("cache init error: %w", err)
	}

	closeAll := func() {
		_ = rdb.Close()
		_ = sqlDB.Close()
	}

	uploader, err := storage.NewS3AvatarUploader(ctx, c)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	tokens, err := auth.NewTokenManager([]byte(c.SecretKey), c.SigningAlgorithm, c.AccessTokenValidityDuration)
	if err != nil {
		closeAll()
		return nil, err
	}

	us := services.NewUserService(sqlDB, rm, c, services.UserDeps{
		Tokens:   tokens,
		Hasher:   auth.NewPasswordHasher(c.BcryptCost),
		Cache:    cache.NewRedisCache(rdb),
		Uploader: uploader,
		Mailer:   mailer.NewLogMailer(logger),
		Logger:   logger,
	})
	cs := services.NewContactService(sqlDB, rm, logger)

	api := hs.NewServer(us, cs, logger, c.CORSAllowedOrigins)

	return &App{
		config: c,
		logger: logger,
		db:     sqlDB,
		redis:  rdb,
		httpServer: &http.Server{
			Addr:              c.EndpointAddrHTTP,
			Handler:           api.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		grpcServer: gs.NewGRPCServer(c.EndpointAddrGRPC, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	app.logger.Info(ctx, "Starting HTTP server", "address", app.httpServer.Addr)

	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpcServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// shuts both listeners down and releases the pool and cache connections.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	<-ctx.Done()
	app.logger.Info(ctx, "Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "http shutdown", "error", err)
	}

	wg.Wait()

	if err := app.redis.Close(); err != nil {
		app.logger.Error(shutdownCtx, "redis close", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(shutdownCtx, "db close", "error", err)
	}
	app.logger.Info(shutdownCtx, "Stopped")
}
