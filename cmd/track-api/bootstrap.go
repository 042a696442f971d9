package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/ParcelView/config"
	trackerapi "github.com/BearBump/ParcelView/internal/api/tracker_api"
	"github.com/BearBump/ParcelView/internal/broker/kafka"
	"github.com/BearBump/ParcelView/internal/broker/messages"
	"github.com/BearBump/ParcelView/internal/cache/rediscache"
	"github.com/BearBump/ParcelView/internal/integrations/carrier/upstream"
	"github.com/BearBump/ParcelView/internal/services/history"
	"github.com/BearBump/ParcelView/internal/services/tracker"
	"github.com/BearBump/ParcelView/internal/storage/pglookups"
)

type trackAPIApp struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   trackAPIOpts
	api    *trackerapi.TrackerAPI

	closers []func()
}

func mustBootstrapTrackAPI() *trackAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	redisAddr := cfg.Redis.Addr()
	if redisAddr == "" {
		panic("redis.host is required")
	}

	app := &trackAPIApp{
		opts: trackAPIOpts{
			httpAddr:    cfg.ParcelView.HTTPAddr,
			swaggerPath: os.Getenv("swaggerPath"),
		},
	}

	kv := rediscache.New(redisAddr)
	app.closers = append(app.closers, func() { _ = kv.Close() })
	hist := history.New(kv)

	deps := tracker.Deps{
		History: hist,
		Topic:   cfg.Kafka.TrackingLookedUpTopicName,
	}
	if deps.Topic == "" {
		deps.Topic = messages.TopicTrackingLookedUp
	}

	rlPerMin := cfg.ParcelView.RateLimitPerMinute
	if rlPerMin <= 0 {
		rlPerMin = 30
	}
	deps.Limiter = rediscache.NewRateLimiterFromClient(kv.Client(), int64(rlPerMin), time.Minute)

	if connString := cfg.Database.ConnString(); connString != "" {
		st := mustOpenPostgresWithRetry(connString, 60*time.Second)
		app.closers = append(app.closers, st.Close)
		deps.Recent = st
	} else {
		slog.Warn("database is not configured, recent searches disabled")
	}

	if brokers := cfg.Kafka.Brokers(); len(brokers) > 0 {
		producer := kafka.NewProducer(brokers)
		app.closers = append(app.closers, func() { _ = producer.Close() })
		deps.Publisher = producer
	} else {
		slog.Warn("kafka is not configured, lookup events disabled")
	}

	svc := tracker.New(upstream.New(cfg.Upstream), deps)
	app.api = trackerapi.New(svc, hist)

	app.ctx, app.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return app
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pglookups.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pglookups.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *trackAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *trackAPIApp) Run() error {
	return runTrackAPI(a.ctx, a.opts, a.api)
}
