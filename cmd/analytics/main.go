package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-ecom-chatbot/internal/analytics"
	"github.com/ariefcatur/go-ecom-chatbot/internal/config"
	kafkax "github.com/ariefcatur/go-ecom-chatbot/internal/kafka"
	"github.com/ariefcatur/go-ecom-chatbot/internal/logger"
	"github.com/ariefcatur/go-ecom-chatbot/internal/mongox"
	"github.com/ariefcatur/go-ecom-chatbot/internal/orders"
	"github.com/ariefcatur/go-ecom-chatbot/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log = log.With("service", cfg.ServiceName+"-analytics")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Mongo
	mc, mdb, err := mongox.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatal("mongo connect", "error", err)
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()
	store, err := mongox.NewEventStore(ctx, mdb)
	if err != nil {
		log.Fatal("mongo indexes", "error", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr, cfg.RedisPassword)
	defer rdb.Close()

	svc := &analytics.Service{
		Store: store,
		Dedup: redisx.Deduper{RDB: rdb, Service: "analytics"},
		Log:   log,
	}

	workers := cfg.AnalyticsWorkers
	if workers <= 0 {
		workers = 1
	}
	events := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.AnalyticsGroup, []string{analytics.TopicEvents}, workers, log)
	orderEvents := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.AnalyticsGroup+"-orders",
		[]string{orders.TopicOrderPlaced, orders.TopicOrderCancelled}, workers, log)

	var wg sync.WaitGroup
	run := func(name string, c *kafkax.Consumer, h kafkax.Handler) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info("consumer started", "consumer", name, "group", cfg.AnalyticsGroup, "workers", workers)
			if err := c.Start(ctx, h); err != nil {
				log.Error("consumer exit", "consumer", name, "error", err)
				cancel()
			}
		}()
	}
	run("events", events, svc.HandleEvent)
	run("orders", orderEvents, svc.HandleOrderEvent)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumers")
	cancel()
	wg.Wait()
}
