package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"leadflow_backend/internal/bootstrap"
	"leadflow_backend/internal/email"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/notification"
	"leadflow_backend/internal/scheduler"
	"leadflow_backend/internal/webhook"
	"leadflow_backend/internal/whatsapp"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/db"
	"leadflow_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg, log)
	if err != nil {
		fatal(log, "failed to connect to database", err)
	}
	defer pool.Close()

	redisClient, err := scheduler.NewRedisClient(cfg)
	if err != nil {
		fatal(log, "failed to initialize redis client", err)
	}
	defer func() { _ = redisClient.Close() }()

	queue, err := scheduler.NewClient(cfg)
	if err != nil {
		fatal(log, "failed to initialize webhook queue client", err)
	}
	defer func() { _ = queue.Close() }()

	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	notificationModule := notification.New(pool, email.NewSender(cfg), cfg, log)
	notificationModule.RegisterHandlers(eventBus)
	if whatsappClient := whatsapp.NewClient(cfg, log); whatsappClient != nil {
		notificationModule.SetWhatsAppSender(whatsappClient)
	}

	deliverer := webhook.NewHTTPDeliverer(cfg.GetOutboundWebhookTimeout())
	outbound := webhook.NewPublisher(cfg.GetOutboundWebhookURLs(), deliverer, log)
	outbound.SetEnqueuer(queue)
	outbound.RegisterHandlers(eventBus)

	stack, err := bootstrap.NewAutomation(ctx, cfg, bootstrap.AutomationDeps{
		Pool:     pool,
		Notifier: notificationModule.InAppService(),
		Bus:      eventBus,
		Redis:    redisClient,
		Log:      log,
	})
	if err != nil {
		fatal(log, "failed to initialize automation", err)
	}
	notificationModule.SetMemberDirectory(stack.Team)

	worker, err := scheduler.NewWorker(cfg, deliverer, log)
	if err != nil {
		fatal(log, "failed to initialize scheduler worker", err)
	}

	runner := scheduler.NewCheckRunner(stack.Engine, cfg.GetCheckInterval(), log)
	runner.SetLease(scheduler.NewRedisLease(redisClient, "", 2*cfg.GetCheckInterval()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		runner.Run(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error("scheduler exited with error", "error", err)
	}

	log.Info("scheduler stopped")
}

func fatal(log *logger.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
