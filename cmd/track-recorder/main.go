package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/ParcelView/config"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	app, err := buildRecorder(cfg, defaultRecorderFactories())
	if err != nil {
		panic(err)
	}
	defer app.close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		err := runRecorderHTTPServer(ctx, recorderHTTPOpts{
			httpAddr: cfg.ParcelView.RecorderHTTPAddr,
			recorder: app.rec,
			cfg:      cfg,
			ready:    app.ready,
		})
		if err != nil && ctx.Err() == nil {
			slog.Error("recorder http server", "error", err.Error())
		}
	}()

	topic, group := consumerSettings(cfg)
	slog.Info("track-recorder started", "topic", topic, "group", group)
	if err := RunTrackRecorder(ctx, app.rec); err != nil && !errors.Is(err, context.Canceled) {
		panic(err)
	}
}
