package main

import (
	"context"
	"errors"
	"log/slog"
)

func main() {
	app := mustBootstrapTrackAPI()
	defer app.Close()

	slog.Info("track-api starting", "addr", app.opts.httpAddr)
	if err := app.Run(); err != nil && !errors.Is(err, context.Canceled) {
		panic(err)
	}
}
