// Package main provides the entry point for leadflowctl, the operator CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"leadflow_backend/internal/bootstrap"
	"leadflow_backend/internal/cli"
	"leadflow_backend/internal/email"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/notification"
	"leadflow_backend/internal/scheduler"
	"leadflow_backend/internal/whatsapp"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/db"
	"leadflow_backend/platform/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd(openEngine).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// openEngine assembles the same engine the API runs, logging to stderr so
// command output stays machine readable.
func openEngine(ctx context.Context) (cli.Engine, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := logger.NewWithWriter(cfg.Env, os.Stderr)

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	eventBus := events.NewInMemoryBus(log)
	notificationModule := notification.New(pool, email.NewSender(cfg), cfg, log)
	notificationModule.RegisterHandlers(eventBus)
	if whatsappClient := whatsapp.NewClient(cfg, log); whatsappClient != nil {
		notificationModule.SetWhatsAppSender(whatsappClient)
	}

	deps := bootstrap.AutomationDeps{
		Pool:     pool,
		Notifier: notificationModule.InAppService(),
		Bus:      eventBus,
		Log:      log,
	}
	closers := []func(){eventBus.Wait, pool.Close}
	if cfg.GetRedisURL() != "" {
		redisClient, err := scheduler.NewRedisClient(cfg)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		deps.Redis = redisClient
		closers = []func(){eventBus.Wait, func() { _ = redisClient.Close() }, pool.Close}
	}

	stack, err := bootstrap.NewAutomation(ctx, cfg, deps)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, nil, err
	}
	notificationModule.SetMemberDirectory(stack.Team)

	return stack.Engine, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}
