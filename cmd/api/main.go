package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/portfolio-api/internal/config"
	"github.com/noah-isme/portfolio-api/internal/database"
	"github.com/noah-isme/portfolio-api/internal/draft"
	"github.com/noah-isme/portfolio-api/internal/handler"
	"github.com/noah-isme/portfolio-api/internal/middleware"
	"github.com/noah-isme/portfolio-api/internal/repository"
	"github.com/noah-isme/portfolio-api/internal/router"
	"github.com/noah-isme/portfolio-api/internal/service"
	cloud "github.com/noah-isme/portfolio-api/pkg/cloudinary"
	"github.com/noah-isme/portfolio-api/pkg/mailer"
)

var errStorageNotConfigured = errors.New("artifact storage is not configured")

// unconfiguredStorage rejects uploads when no Cloudinary credentials are set.
type unconfiguredStorage struct{}

func (unconfiguredStorage) Upload(context.Context, string, io.Reader) (string, error) {
	return "", errStorageNotConfigured
}

func (unconfiguredStorage) Delete(context.Context, string) error {
	return errStorageNotConfigured
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if cfg.AppEnv == "development" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL, cfg.DBMaxConns, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
	}

	var redisClient *redis.Client
	var drafts draft.Store = draft.NewMemoryStore()
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		drafts = draft.NewRedisStore(redisClient, cfg.DraftTTL, logger)
		probes["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		logger.Warn().Msg("redis not configured; drafts are kept in memory and the portfolio cache is disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	var storage service.BlobStore = unconfiguredStorage{}
	if cfg.CloudinaryCloudName != "" {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		storage = uploader
	} else {
		logger.Warn().Msg("cloudinary not configured; uploads are disabled")
	}

	email := mailer.NewSendGrid(mailer.Config{
		APIKey:    cfg.SendGridAPIKey,
		AppName:   cfg.AppName,
		FromEmail: cfg.SendGridFromEmail,
	}, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())

	assignmentRepo := repository.NewAssignmentRepository(db)
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	uploadRepo := repository.NewUploadRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	notificationService := service.NewNotificationService(notificationRepo, userRepo, redisClient, cfg.ChannelBase, natsConn, email, logger)
	uploadService := service.NewUploadService(storage, uploadRepo, cfg.UploadMaxSizeMB, logger)
	portfolioService := service.NewPortfolioService(assignmentRepo, userRepo, redisClient, cfg.PortfolioCacheTTL, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, drafts, activityService, notificationService, uploadService, portfolioService, validate, logger)
	reviewService := service.NewReviewService(assignmentRepo, activityService, notificationService, portfolioService, validate, logger)
	draftService := service.NewDraftService(drafts, assignmentRepo, validate)
	ssoService := service.NewSSOService(service.SSOConfig{
		PartnerSecret: cfg.SSOSecret,
		SessionSecret: cfg.JWTSecret,
		RedirectURL:   cfg.SSORedirectURL,
		ErrorURL:      cfg.SSOErrorURL,
		SessionTTL:    cfg.SessionTTL,
	}, userRepo, logger)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notificationService.Start(rootCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxSizeMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: logger, AllowedOrigins: cfg.AllowedOrigins})
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler:   handler.NewAssignmentHandler(assignmentService, reviewService, logger),
		ReviewHandler:       handler.NewReviewHandler(reviewService, logger),
		DraftHandler:        handler.NewDraftHandler(draftService, logger),
		UploadHandler:       handler.NewUploadHandler(uploadService, logger),
		PortfolioHandler:    handler.NewPortfolioHandler(portfolioService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, 30*time.Second),
		SSOHandler:          handler.NewSSOHandler(ssoService, cfg.AppEnv != "development", logger),
		HealthProbes:        probes,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
		OptionalJWT:         middleware.OptionalJWT(cfg.JWTSecret),
	})

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Msg("starting http server")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, cancel)
}

func waitForShutdown(app *fiber.App, stopWorkers context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
