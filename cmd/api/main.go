package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voicedesk/callflow/internal/cache/redis"
	"github.com/voicedesk/callflow/internal/config"
	"github.com/voicedesk/callflow/internal/db/gormdb"
	"github.com/voicedesk/callflow/internal/handler"
	"github.com/voicedesk/callflow/internal/lock/redislock"
	"github.com/voicedesk/callflow/internal/mailer"
	"github.com/voicedesk/callflow/internal/orders"
	callRepo "github.com/voicedesk/callflow/internal/repository/gorm/call"
	convRepo "github.com/voicedesk/callflow/internal/repository/gorm/conversation"
	orderRepo "github.com/voicedesk/callflow/internal/repository/gorm/order"
	recRepo "github.com/voicedesk/callflow/internal/repository/gorm/recording"
	routes "github.com/voicedesk/callflow/internal/router"
	"github.com/voicedesk/callflow/internal/scheduler"
	"github.com/voicedesk/callflow/internal/server"
	"github.com/voicedesk/callflow/internal/service"
)

func main() {
	// Base context for the whole application lifetime.
	rootCtx := context.Background()

	// Load configuration from environment/.env.
	cfg := config.New()

	// Init cache and the per-call lock, both on Redis.
	cache := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := cache.Ping(rootCtx); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	locker := redislock.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	// Init DB.
	dsn := cfg.PostgresDSN()
	db, err := gormdb.New(dsn)
	if err != nil {
		log.Fatalf("failed to connect db: %v", err)
	}

	// Init external order system client.
	ordersClient := orders.NewAfterbuyClient(cfg.Orders.Endpoint, orders.Credentials{
		PartnerID:    cfg.Orders.PartnerID,
		PartnerToken: cfg.Orders.PartnerToken,
		AccountToken: cfg.Orders.AccountToken,
		UserID:       cfg.Orders.UserID,
		UserPassword: cfg.Orders.UserPassword,
	})
	if err := ordersClient.Health(rootCtx); err != nil {
		log.Printf("[Main] Order system not reachable at startup: %v", err)
	}

	// Init SMTP mailer for operator notifications.
	mail := mailer.NewSMTP(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From)

	// Init repositories and services.
	callRepository := callRepo.NewRepository(db)
	convRepository := convRepo.NewRepository(db)
	orderRepository := orderRepo.NewRepository(db)
	recRepository := recRepo.NewRepository(db)

	resolver := service.NewOrderResolver(ordersClient, cache, cfg.Orders.LookupTTL)

	notifier := service.NewNotificationService(
		recRepository,
		callRepository,
		orderRepository,
		mail,
		locker,
		cfg.SMTP.Operator,
		cfg.Worker.BatchSize,
		cfg.Worker.MaxWorkers,
		cfg.Worker.PerNotifyTimeout,
	)

	flow := service.NewCallFlow(
		callRepository,
		convRepository,
		orderRepository,
		recRepository,
		resolver,
		notifier,
		locker,
		service.FlowSettings{
			EnglishPrefixes:  cfg.Flow.EnglishPrefixes,
			ManagerNumber:    cfg.Flow.ManagerNumber,
			MaxInputRetries:  cfg.Flow.MaxInputRetries,
			Transcribe:       cfg.Flow.TranscribeVoice,
			MaxRecordSeconds: cfg.Flow.MaxRecordSeconds,
			LockTTL:          cfg.Flow.LockTTL,
		},
	)

	adminSvc := service.NewAdminService(callRepository, convRepository, orderRepository, recRepository)

	// Cron: retries operator notifications that failed or are still
	// waiting on a transcription.
	cron := scheduler.NewSchedulerService(
		notifier,
		cfg.Scheduler.Interval,
		cfg.Scheduler.BatchTimeout,
	)

	// HTTP dependencies & server wiring.
	homeHandler := handler.NewHomeHandler()
	webhookHandler := handler.NewWebhookHandler(flow, cfg.Flow.VoiceName, cfg.Flow.EnglishPrefixes)
	adminHandler := handler.NewAdminHandler(adminSvc, cron)

	deps := routes.AppDeps{
		Home:    homeHandler,
		Webhook: webhookHandler,
		Admin:   adminHandler,
	}

	// Init Server
	addr := fmt.Sprintf("%s:%s", cfg.API.Host, cfg.API.Port)
	srv := server.New(addr, deps)

	// Create a context that is cancelled on SIGINT/SIGTERM (Ctrl+C, docker stop etc.).
	ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start the HTTP server in a separate goroutine so we can listen for signals.
	go func() {
		log.Printf("HTTP server listening on %s", addr)

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Start the scheduler after everything is wired up.
	if err := cron.Start(); err != nil {
		log.Fatalf("Cron job service error: %v", err)
	}
	log.Println("[Main] Scheduler started.")

	// Block until we receive a shutdown signal.
	<-ctx.Done()
	log.Println("[Main] Shutdown signal received, starting graceful shutdown...")

	// Give components some time to shut down cleanly.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop the scheduler (waits for in-flight batch to finish or timeout).
	log.Println("[Main] Stopping scheduler...")
	if err := cron.Stop(); err != nil {
		log.Fatalf("Cron job could not stopped. error: %v", err)
	}
	log.Println("[Main] Scheduler stopped.")

	// Gracefully shut down the HTTP server.
	log.Println("[Main] Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Main] HTTP server graceful shutdown failed: %v", err)
	} else {
		log.Println("[Main] HTTP server stopped.")
	}

	log.Println("[Main] Shutdown complete.")
}
