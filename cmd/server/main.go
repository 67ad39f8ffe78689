package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forgo/shepherd/api/internal/ai"
	"github.com/forgo/shepherd/api/internal/config"
	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/email"
	"github.com/forgo/shepherd/api/internal/format"
	"github.com/forgo/shepherd/api/internal/insights"
	"github.com/forgo/shepherd/api/internal/jobs"
	"github.com/forgo/shepherd/api/internal/middleware"
	"github.com/forgo/shepherd/api/internal/payments"
	"github.com/forgo/shepherd/api/internal/repository"
	"github.com/forgo/shepherd/api/internal/service"
	"github.com/forgo/shepherd/api/internal/telemetry"
	"github.com/forgo/shepherd/api/pkg/jwt"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := telemetry.NewLogger(telemetry.LogConfig{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version,
		Environment: cfg.Server.Env,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown", slog.String("error", err.Error()))
		}
	}()

	// Initialize database connection
	db := database.NewSurrealDB(database.Config{
		Host:      cfg.Database.Host,
		Port:      cfg.Database.Port,
		User:      cfg.Database.User,
		Password:  cfg.Database.Password,
		Namespace: cfg.Database.Namespace,
		Database:  cfg.Database.Database,
	})
	if err := db.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	logger.Info("connected to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Database),
	)

	// Initialize JWT service
	jwtService, err := jwt.NewService(jwt.Config{
		PrivateKeyPath: cfg.JWT.PrivateKeyPath,
		PublicKeyPath:  cfg.JWT.PublicKeyPath,
		Issuer:         cfg.JWT.Issuer,
		ExpirationMins: cfg.JWT.ExpirationMins,
	})
	if err != nil {
		return err
	}

	// Outbound integrations; each falls back to a local stand-in when unconfigured
	var mailer email.Mailer = email.NewLogMailer(logger)
	if cfg.Email.IsConfigured() {
		mailer = email.NewResendMailer(cfg.Email.ResendAPIKey, cfg.Email.From, cfg.Email.ReplyTo)
	}

	var generator ai.Generator = ai.Unconfigured{}
	if cfg.AI.IsConfigured() {
		gemini, err := ai.NewGeminiClient(ctx, cfg.AI.GeminiAPIKey, cfg.AI.Model)
		if err != nil {
			return err
		}
		generator = gemini
	}

	var provider payments.Provider
	if cfg.Stripe.IsConfigured() {
		provider = payments.NewStripeProvider(payments.StripeConfig{
			SecretKey:     cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			SuccessURL:    cfg.Stripe.SuccessURL,
			CancelURL:     cfg.Stripe.CancelURL,
		})
	} else {
		logger.Info("online giving disabled: stripe is not configured")
	}

	insightsStore := insights.NewStore(nil)
	if path := cfg.Insights.ConfigPath; path != "" {
		insightsCfg, err := insights.LoadConfig(path)
		if err != nil {
			return err
		}
		insightsStore.Set(insightsCfg)
		if cfg.Insights.Watch {
			watcher, err := insights.NewWatcher(path, insightsStore, logger)
			if err != nil {
				return err
			}
			go watcher.Run(ctx)
			defer func() { _ = watcher.Close() }()
		}
	}

	formatter := format.New(cfg.Server.Locale)
	renderer := email.NewRenderer(cfg.Server.ChurchName, cfg.Server.BaseURL)
	transactional := email.NewTransactional(renderer, mailer, formatter)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	donationRepo := repository.NewDonationRepository(db)
	prayerRepo := repository.NewPrayerRepository(db)
	eventRepo := repository.NewEventRepository(db)
	rsvpRepo := repository.NewRSVPRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	readingPlanRepo := repository.NewReadingPlanRepository(db)
	volunteerRepo := repository.NewVolunteerRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	emailRepo := repository.NewEmailRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	// Initialize services
	hub := service.NewEventHub(service.DefaultHeartbeat)
	defer hub.Close()

	auditService := service.NewAuditService(service.AuditServiceConfig{
		Repo:   auditRepo,
		Filter: repository.AuditFilterSchema,
		Logger: logger,
	})

	tokenService := service.NewTokenService(service.TokenServiceConfig{
		JWTService:      jwtService,
		TokenRepo:       tokenRepo,
		RefreshDuration: cfg.JWT.RefreshTTL,
	})

	authService := service.NewAuthService(service.AuthServiceConfig{
		UserRepo:     userRepo,
		TokenService: tokenService,
		Welcome:      transactional,
		Logger:       logger,
	})

	memberService := service.NewMemberService(userRepo, auditService)

	notificationService := service.NewNotificationService(service.NotificationServiceConfig{
		Repo:   notificationRepo,
		Hub:    hub,
		Logger: logger,
	})

	achievementService := service.NewAchievementService(service.AchievementServiceConfig{
		Repo:     achievementRepo,
		Gifts:    donationRepo,
		Prayers:  prayerRepo,
		RSVPs:    rsvpRepo,
		Signups:  volunteerRepo,
		Plans:    readingPlanRepo,
		Notifier: notificationService,
		Users:    userRepo,
		Auditor:  auditService,
		Logger:   logger,
	})

	donationService := service.NewDonationService(service.DonationServiceConfig{
		Repo:         donationRepo,
		Provider:     provider,
		Users:        userRepo,
		Receipts:     transactional,
		Notifier:     notificationService,
		Achievements: achievementService,
		Auditor:      auditService,
		Filter:       repository.DonationFilterSchema,
		Formatter:    formatter,
		Currency:     cfg.Stripe.DefaultCurrency,
		Logger:       logger,
	})

	prayerService := service.NewPrayerService(service.PrayerServiceConfig{
		Repo:         prayerRepo,
		Partners:     userRepo,
		Generator:    generator,
		Notifier:     notificationService,
		Achievements: achievementService,
		Auditor:      auditService,
		Filter:       repository.PrayerFilterSchema,
		Logger:       logger,
	})

	eventService := service.NewEventService(service.EventServiceConfig{
		Repo:         eventRepo,
		RSVPs:        rsvpRepo,
		Achievements: achievementService,
		Auditor:      auditService,
	})

	readingPlanService := service.NewReadingPlanService(readingPlanRepo, achievementService, auditService)

	volunteerService := service.NewVolunteerService(service.VolunteerServiceConfig{
		Repo:         volunteerRepo,
		Achievements: achievementService,
		Auditor:      auditService,
	})

	leadService := service.NewLeadService(leadRepo, generator, auditService, repository.LeadFilterSchema)

	emailService := service.NewEmailService(service.EmailServiceConfig{
		Repo:      emailRepo,
		Audiences: userRepo,
		Renderer:  renderer,
		Mailer:    mailer,
		Auditor:   auditService,
		Logger:    logger,
	})

	insightsService := service.NewInsightsService(
		analyticsRepo,
		insights.NewEngine(insightsStore, formatter, cfg.Stripe.DefaultCurrency),
		nil,
	)

	dashboardService := service.NewDashboardService(service.DashboardServiceConfig{
		Users:         userRepo,
		Giving:        donationService,
		Events:        eventService,
		Prayers:       prayerRepo,
		Notifications: notificationService,
		Achievements:  achievementRepo,
		ReadingPlans:  readingPlanService,
		Volunteer:     volunteerService,
	})

	reminderService := service.NewReminderService(service.ReminderServiceConfig{
		RSVPs:     rsvpRepo,
		Signups:   volunteerRepo,
		Notifier:  notificationService,
		Lookahead: cfg.Jobs.ReminderLookahead,
		Formatter: formatter,
		Logger:    logger,
	})

	// Background jobs
	reminderProcessor := jobs.NewReminderProcessor(reminderService, cfg.Jobs.ReminderInterval, logger)
	reminderProcessor.Start()
	defer reminderProcessor.Stop()

	sessionSweeper := jobs.NewSessionSweeper(tokenService, cfg.Jobs.SessionSweep, logger)
	sessionSweeper.Start()
	defer sessionSweeper.Stop()

	if cfg.Insights.DigestInterval > 0 {
		digest := jobs.NewDigestProcessor(jobs.DigestConfig{
			Reporter:   insightsService,
			Sender:     transactional,
			Recipients: cfg.Insights.DigestRecipients,
			WindowDays: cfg.Insights.DigestWindowDays,
			Interval:   cfg.Insights.DigestInterval,
			Logger:     logger,
		})
		digest.Start()
		defer digest.Stop()
	}

	// Rate limiting and idempotency keep in-memory state with cleanup loops
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Rate:     cfg.RateLimit.Rate,
		Window:   cfg.RateLimit.Window,
		Burst:    cfg.RateLimit.Burst,
		FormRate: cfg.RateLimit.FormRate,
	})
	defer rateLimiter.Stop()

	idempotencyStore := middleware.NewIdempotencyStore(middleware.IdempotencyConfig{})
	defer idempotencyStore.Stop()

	mux := http.NewServeMux()
	registerRoutes(mux, routeDeps{
		db:            db,
		authService:   authService,
		users:         userRepo,
		hub:           hub,
		members:       memberService,
		dashboard:     dashboardService,
		donations:     donationService,
		prayers:       prayerService,
		events:        eventService,
		achievements:  achievementService,
		notifications: notificationService,
		readingPlans:  readingPlanService,
		volunteer:     volunteerService,
		audit:         auditService,
		leads:         leadService,
		insights:      insightsService,
		email:         emailService,
	})

	// Apply global middleware
	wrapped := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.OptionalAuth(authService), // before Tracing, Logger and RateLimit, which read the user id
		middleware.Tracing(telemetry.Tracer()),
		middleware.Logger(logger),
		middleware.Recovery,
		middleware.AuditContext,
		middleware.CORS(cfg.Server.AllowedOrigins),
		middleware.RateLimit(rateLimiter),
		middleware.Idempotency(idempotencyStore),
		middleware.Compress,
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      wrapped,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env),
			slog.String("version", version),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Graceful shutdown
	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	// Close open event streams first so Shutdown does not wait on them
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	logger.Info("server exited")
	return nil
}
