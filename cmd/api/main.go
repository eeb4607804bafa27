package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-portal-api/internal/config"
	"github.com/noah-isme/school-portal-api/internal/database"
	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/handler"
	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/repository"
	"github.com/noah-isme/school-portal-api/internal/router"
	"github.com/noah-isme/school-portal-api/internal/service"
	cloud "github.com/noah-isme/school-portal-api/pkg/cloudinary"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger = logger.With().Str("service", cfg.AppName).Str("env", cfg.AppEnv).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis not configured; sign-out revocation is limited to token expiry")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Drain()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := service.NewRealtimeHub(redisClient, natsConn, cfg.RealtimeChannel, logger)
	if err := hub.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start realtime hub")
	}

	var assets service.AssetHost
	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	switch {
	case errors.Is(err, cloud.ErrNotConfigured):
		logger.Warn().Msg("cloudinary not configured; photos fall back to unsaved previews")
	case err != nil:
		logger.Fatal().Err(err).Msg("failed to create cloudinary client")
	default:
		assets = uploader
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	identityRepo := repository.NewIdentityRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	profileDirectory := service.NewProfileDirectory(repository.NewUserProfileRepository(db), hub, logger)
	authService := service.NewAuthService(identityRepo, studentRepo, profileDirectory, redisClient, hub, service.AuthConfig{
		Secret:        cfg.JWTSecret,
		Issuer:        cfg.JWTIssuer,
		TTL:           cfg.JWTTTL,
		StudentDomain: cfg.StudentIdentityDomain,
	}, logger)
	uploadService := service.NewUploadService(assets, repository.NewUploadRepository(db), cfg.UploadMaxMB, logger)

	studentService := service.NewStudentService(studentRepo, authService, profileDirectory, uploadService, validate, activityService, logger)
	teacherService := service.NewTeacherService(repository.NewTeacherRepository(db), authService, profileDirectory, uploadService, validate, activityService, logger)
	dataEntryService := service.NewDataEntryService(repository.NewDataEntryRepository(db), authService, profileDirectory, validate, activityService, logger)
	notificationService := service.NewNotificationService(repository.NewNotificationRepository(db), hub, validate, activityService, logger)
	galleryService := service.NewGalleryService(repository.NewGalleryRepository(db), uploadService, validate, activityService, logger)
	feeService := service.NewFeeService(repository.NewFeeRepository(db), studentRepo, validate, activityService, logger)
	timetableService := service.NewTimetableService(repository.NewTimetableRepository(db), validate, activityService, cfg.TimetableClassesPage, logger)
	leaveService := service.NewLeaveService(repository.NewLeaveRepository(db), hub, validate, activityService, logger)
	analyticsService := service.NewAdminAnalyticsService(repository.NewAdminAnalyticsRepository(db), redisClient, cfg.DashboardCacheTTL, logger)
	dashboardService := service.NewStudentDashboardService(timetableService, feeService, leaveService, redisClient, cfg.DashboardCacheTTL, logger)
	seedService := service.NewSeedService(identityRepo, authService, profileDirectory, validate, cfg.SeedEnabled, cfg.SeedToken, logger)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		seeded, err := seedService.EnsureAdmin(ctx, dto.SeedAdminRequest{
			Email:    cfg.AdminEmail,
			Password: cfg.AdminPassword,
			Name:     cfg.AdminName,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to seed administrator")
		}
		logger.Info().Str("identity_id", seeded.ID).Bool("created", seeded.Created).Msg("administrator ready")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSAllowOrigins,
		AccessLog:    cfg.AccessLog,
	})
	router.Register(app, cfg, router.Dependencies{
		Verifier: authService,
		Guard: middleware.GuardConfig{
			Profiles:   profileDirectory,
			Timeout:    cfg.SessionProfileTimeout,
			RetryAfter: time.Second,
		},
		SignInLimiter: middleware.RateLimit("sign-in", cfg.SignInRateLimit, time.Minute),

		AuthHandler:         handler.NewAuthHandler(authService, profileDirectory, validate, cfg.SessionProfileTimeout, logger),
		NavigationHandler:   handler.NewNavigationHandler(authService, profileDirectory, cfg.SessionProfileTimeout, logger),
		StudentHandler:      handler.NewStudentHandler(studentService, cfg.DefaultPageSize, logger),
		TeacherHandler:      handler.NewTeacherHandler(teacherService, cfg.DefaultPageSize, logger),
		DataEntryHandler:    handler.NewDataEntryHandler(dataEntryService, cfg.DefaultPageSize, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, cfg.DefaultPageSize, logger),
		GalleryHandler:      handler.NewGalleryHandler(galleryService, cfg.DefaultPageSize, logger),
		FeeHandler:          handler.NewFeeHandler(feeService, cfg.DefaultPageSize, logger),
		TimetableHandler:    handler.NewTimetableHandler(timetableService, logger),
		LeaveHandler:        handler.NewLeaveHandler(leaveService, logger),
		ActivityHandler:     handler.NewActivityHandler(activityService, logger),
		AnalyticsHandler:    handler.NewAdminAnalyticsHandler(analyticsService, logger),
		DashboardHandler:    handler.NewStudentDashboardHandler(dashboardService, logger),
		UploadHandler:       handler.NewUploadHandler(uploadService, logger),
		StreamHandler:       handler.NewStreamHandler(hub, profileDirectory, cfg.SessionProfileTimeout, cfg.StreamKeepAlive, logger),
		SeedHandler:         handler.NewSeedHandler(seedService, logger),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
