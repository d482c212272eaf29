package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iliyamo/movie-review-api/internal/config"
	"github.com/iliyamo/movie-review-api/internal/database"
	"github.com/iliyamo/movie-review-api/internal/handler"
	"github.com/iliyamo/movie-review-api/internal/logger"
	"github.com/iliyamo/movie-review-api/internal/queue"
	"github.com/iliyamo/movie-review-api/internal/repository"
	"github.com/iliyamo/movie-review-api/internal/router"
	"github.com/iliyamo/movie-review-api/internal/service"
	"github.com/iliyamo/movie-review-api/internal/storage"
	"github.com/iliyamo/movie-review-api/internal/utils"
)

func main() {
	boot := logger.New("movie-review-api", "info", "json", nil)
	cfg, err := config.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logger.New("movie-review-api", cfg.LogLevel, cfg.LogFormat, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The server starts even when MySQL is down; requests then fail with 500.
	db, dbName, err := database.Open(cfg.DSN)
	if db == nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	if err != nil {
		log.Warn().Err(err).Str("db", dbName).Msg("database unreachable at startup")
	}
	go func() {
		err := database.EnsureSchema(ctx, db, 5*time.Second, func(err error) {
			log.Warn().Err(err).Msg("migrate schema, retrying")
		})
		if err == nil {
			log.Info().Str("db", dbName).Msg("schema ready")
		}
	}()

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn().Str("addr", cfg.Redis.Addr).Msg("redis unavailable, rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	var events service.ReviewEvents = service.NopEvents{}
	if cfg.AMQP.URL != "" {
		events = queue.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, log)
		consumer := queue.NewConsumer(cfg.AMQP.URL, cfg.AMQP.Queue, cfg.AMQP.LogDir, cfg.AMQP.Prefetch, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("review consumer stopped")
			}
		}()
	}

	users := repository.NewUserRepo(db)
	movies := repository.NewMovieRepo(db)
	reviews := repository.NewReviewRepo(db)
	contacts := repository.NewContactRepo(db)

	accounts := service.NewAccountService(users, utils.BcryptHasher{Cost: cfg.BcryptCost}, log)
	catalog := service.NewCatalogService(movies, storage.NewPosterStore(cfg.PostersDir), router.PostersRoute, log)
	reviewSvc := service.NewReviewService(reviews, events, log)
	admin := service.NewAdminService(service.AdminCredentials{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
		Token:    cfg.AdminToken,
	}, users, movies, reviews)

	e := router.New(cfg, router.Handlers{
		Users:   handler.NewUserHandler(accounts, cfg.RequestTimeout),
		Movies:  handler.NewMovieHandler(catalog, cfg.MoviesFile, cfg.RequestTimeout),
		Reviews: handler.NewReviewHandler(reviewSvc, cfg.RequestTimeout),
		Admin:   handler.NewAdminHandler(admin, cfg.RequestTimeout),
		Health:  handler.NewHealthHandler(db, dbName),
		Contact: handler.NewContactHandler(service.NewContactService(contacts, log), cfg.RequestTimeout),
	}, rdb, log)

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
