package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-ecom-chatbot/internal/analytics"
	"github.com/ariefcatur/go-ecom-chatbot/internal/auth"
	"github.com/ariefcatur/go-ecom-chatbot/internal/catalog"
	"github.com/ariefcatur/go-ecom-chatbot/internal/chat"
	"github.com/ariefcatur/go-ecom-chatbot/internal/config"
	"github.com/ariefcatur/go-ecom-chatbot/internal/httpx"
	kafkax "github.com/ariefcatur/go-ecom-chatbot/internal/kafka"
	"github.com/ariefcatur/go-ecom-chatbot/internal/logger"
	"github.com/ariefcatur/go-ecom-chatbot/internal/mongox"
	"github.com/ariefcatur/go-ecom-chatbot/internal/orders"
	"github.com/ariefcatur/go-ecom-chatbot/internal/postgres"
	"github.com/ariefcatur/go-ecom-chatbot/internal/redisx"
	"github.com/ariefcatur/go-ecom-chatbot/internal/users"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log = log.With("service", cfg.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	pool, err := postgres.Connect(ctx, postgres.Options{
		DSN:      cfg.Postgres.ConnectionString(),
		MaxConns: cfg.Postgres.MaxConns,
		MinConns: cfg.Postgres.MinConns,
	})
	if err != nil {
		log.Fatal("db connect", "error", err)
	}
	defer pool.Close()
	if os.Getenv("AUTO_MIGRATE") == "true" {
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal("db migrate", "error", err)
		}
	}
	db := postgres.NewProvider(pool, cfg.Postgres.Timeout)

	// Redis
	rdb := redisx.New(cfg.RedisAddr, cfg.RedisPassword)
	defer rdb.Close()

	// Mongo is only probed here; the analytics consumer writes to it.
	mc, _, err := mongox.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.Warn("mongo unavailable, continuing without it", "error", err)
	} else {
		defer func() { _ = mc.Disconnect(context.Background()) }()
	}

	// Kafka producers
	placed := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024, log)
	cancelled := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCancelled, 1024, log)
	events := kafkax.NewProducer(cfg.KafkaBrokers, analytics.TopicEvents, 4096, log)
	for _, p := range []*kafkax.Producer{placed, cancelled, events} {
		p.Start()
	}

	checks := map[string]httpx.Check{
		"postgres": db.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}
	if mc != nil {
		checks["mongodb"] = func(ctx context.Context) error { return mc.Ping(ctx, nil) }
	}

	srv := &httpx.Server{
		Users:     users.NewRepo(db, log),
		Products:  catalog.NewRepo(db, log),
		Orders:    orders.NewRepo(db, log),
		Chat:      chat.NewRepo(db, log),
		Assistant: chat.EchoAssistant{},
		Auth:      auth.NewIssuer(cfg.JWTSecret, cfg.JWTExpires),
		Idem:      redisx.NewIdempotencyStore(rdb),
		Placed:    placed,
		Cancelled: cancelled,
		Tracker:   analytics.NewTracker(events, log),
		Checks:    checks,
		Log:       log,
		Service:   cfg.ServiceName,
	}
	limiter := redisx.NewRateLimiter(redisx.WindowCounter{RDB: rdb}, cfg.RateLimitPerMin, log)
	router := httpx.NewRouter(srv, httpx.RouterOptions{
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   limiter.Middleware,
	})

	// HTTP server
	hs := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("HTTP listening", "addr", cfg.HTTPAddr)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", "error", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	if err := hs.Shutdown(sctx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	// producers drain after the last handler has returned
	for _, p := range []*kafkax.Producer{placed, cancelled, events} {
		p.Close()
	}
}
