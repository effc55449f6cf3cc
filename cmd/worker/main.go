package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/relaytide/campaign-platform/internal/clock"
	"github.com/relaytide/campaign-platform/internal/config"
	"github.com/relaytide/campaign-platform/internal/consent"
	"github.com/relaytide/campaign-platform/internal/db"
	"github.com/relaytide/campaign-platform/internal/metrics"
	"github.com/relaytide/campaign-platform/internal/orchestrator"
	"github.com/relaytide/campaign-platform/internal/provider"
	"github.com/relaytide/campaign-platform/internal/ratelimiter"
	"github.com/relaytide/campaign-platform/internal/scheduler"
	"github.com/relaytide/campaign-platform/internal/store"
	"github.com/relaytide/campaign-platform/internal/taskqueue"
)

// worker consumes message tasks from the queue and drives each through
// the compliance pipeline; it shares the orchestrator with cmd/server
// so retries and reschedules route through the same task-queue handoff.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg := config.Load()
	db.Init(cfg)
	s := store.New(db.DB)

	rl, err := buildRateLimiter(cfg)
	if err != nil {
		log.Fatalf("failed to init rate limiter: %v", err)
	}
	q, err := buildQueue(cfg)
	if err != nil {
		log.Fatalf("failed to init task queue: %v", err)
	}

	p := buildProvider(cfg)
	sched := scheduler.New()
	sched.Start()
	m := metrics.New()
	consentSvc := consent.New(s)

	orch := orchestrator.New(s, consentSvc, rl, sched, clock.Real{}, p, q, m)

	if err := q.ConsumeMessageTasks(func(task taskqueue.MessageTask) error {
		return orch.ProcessMessage(context.Background(), task.MessageID)
	}); err != nil {
		log.Fatalf("failed to register message task consumer: %v", err)
	}

	log.Println("🚀 Worker running, waiting for message tasks...")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("shutting down worker, draining in-flight tasks...")
	sched.Stop()
	time.Sleep(time.Duration(cfg.ShutdownGraceSeconds) * time.Second)

	if err := q.Close(); err != nil {
		log.Printf("⚠️ error closing queue: %v", err)
	}
}

func buildRateLimiter(cfg *config.Config) (ratelimiter.RateLimiter, error) {
	if cfg.RateLimiterBackend == "memory" {
		return ratelimiter.NewMemory(), nil
	}
	return ratelimiter.NewRedis(cfg.RedisURL)
}

func buildQueue(cfg *config.Config) (taskqueue.Queue, error) {
	if cfg.AMQPURL == "" {
		return taskqueue.NewInMemory(), nil
	}
	return taskqueue.NewAMQP(cfg.AMQPURL)
}

func buildProvider(cfg *config.Config) provider.Client {
	if cfg.ProviderAccountSid == "" || cfg.ProviderAuthToken == "" {
		log.Println("⚠️ no PROVIDER_ACCOUNT_SID/PROVIDER_AUTH_TOKEN set, using fake provider")
		return provider.NewFake()
	}
	return provider.NewTwilio(cfg.ProviderAccountSid, cfg.ProviderAuthToken, cfg.ProviderSenderID)
}
