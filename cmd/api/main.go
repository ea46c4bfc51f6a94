package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadflow_backend/internal/automation/handler"
	"leadflow_backend/internal/bootstrap"
	"leadflow_backend/internal/contacts"
	"leadflow_backend/internal/email"
	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/http/router"
	"leadflow_backend/internal/notification"
	"leadflow_backend/internal/scheduler"
	"leadflow_backend/internal/tasks"
	"leadflow_backend/internal/team"
	"leadflow_backend/internal/webhook"
	"leadflow_backend/internal/whatsapp"
	"leadflow_backend/platform/clock"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/db"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.Migrate(ctx, cfg, log); err != nil {
		fatal(log, "failed to run database migrations", err)
	}

	pool, err := db.Connect(ctx, cfg, log)
	if err != nil {
		fatal(log, "failed to connect to database", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	redisClient := initRedis(cfg, log)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	webhookQueue, closeQueue := initWebhookQueue(cfg, log)
	if closeQueue != nil {
		defer closeQueue()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(pool, email.NewSender(cfg), cfg, log)
	notificationModule.RegisterHandlers(eventBus)
	if whatsappClient := whatsapp.NewClient(cfg, log); whatsappClient != nil {
		notificationModule.SetWhatsAppSender(whatsappClient)
	}

	outbound := webhook.NewPublisher(cfg.GetOutboundWebhookURLs(), webhook.NewHTTPDeliverer(cfg.GetOutboundWebhookTimeout()), log)
	if webhookQueue != nil {
		outbound.SetEnqueuer(webhookQueue)
	}
	outbound.RegisterHandlers(eventBus)

	deps := bootstrap.AutomationDeps{
		Pool:     pool,
		Notifier: notificationModule.InAppService(),
		Bus:      eventBus,
		Log:      log,
	}
	if redisClient != nil {
		deps.Redis = redisClient
	}
	stack, err := bootstrap.NewAutomation(ctx, cfg, deps)
	if err != nil {
		fatal(log, "failed to initialize automation", err)
	}
	notificationModule.SetMemberDirectory(stack.Team)

	teamModule := team.NewModule(pool, val, log)
	contactsModule := contacts.NewModule(stack.Engine, stack.Contacts, val)
	tasksModule := tasks.NewModule(stack.Tasks, val, clock.Real{})
	automationModule := handler.NewModule(stack.Engine, stack.Runs, val)
	webhookModule := webhook.NewModule(stack.Engine, cfg.GetLeadCaptureAPIKey(), log)
	if cfg.GetLeadCaptureAPIKey() == "" {
		log.Warn("LEAD_CAPTURE_API_KEY not configured; lead capture webhook rejects all requests")
	}

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{
			teamModule,
			contactsModule,
			tasksModule,
			automationModule,
			notificationModule,
			webhookModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		notificationModule.SSE().Close()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.GetScheduledCheckEnabled() {
		runner := scheduler.NewCheckRunner(stack.Engine, cfg.GetCheckInterval(), log)
		if redisClient != nil {
			runner.SetLease(scheduler.NewRedisLease(redisClient, "", 2*cfg.GetCheckInterval()))
		}
		g.Go(func() error {
			runner.Run(gctx)
			return nil
		})
	} else {
		log.Info("in-process scheduled check disabled")
	}

	if err := g.Wait(); err != nil {
		fatal(log, "server error", err)
	}
	log.Info("server stopped")
}

func initRedis(cfg config.SchedulerConfig, log *logger.Logger) *redis.Client {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; round-robin cursor kept in process")
		return nil
	}

	client, err := scheduler.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		return nil
	}
	return client
}

func initWebhookQueue(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; outbound webhooks delivered in process without retries")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize webhook queue client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

// fatal logs err and exits; deferred cleanups do not run.
func fatal(log *logger.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
