package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BearBump/ParcelView/config"
	"github.com/BearBump/ParcelView/internal/services/recorder"
)

type recorderHTTPOpts struct {
	httpAddr string
	onListen func(httpAddr string)

	recorder *recorder.Recorder
	cfg      *config.Config
	ready    func(ctx context.Context) error
}

func newRecorderRouter(opts recorderHTTPOpts) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.ready != nil {
			if err := opts.ready(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "not ready", "error": err.Error()})
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.recorder == nil {
			_, _ = w.Write([]byte(`{"error":"recorder not wired"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(opts.recorder.Stats())
	})

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.cfg == nil {
			_, _ = w.Write([]byte(`{"error":"config not wired"}`))
			return
		}
		// без паролей и ключей
		topic, group := consumerSettings(opts.cfg)
		out := map[string]any{
			"topic":            topic,
			"consumerGroup":    group,
			"kafkaBrokers":     opts.cfg.Kafka.Brokers(),
			"databaseHost":     opts.cfg.Database.Host,
			"databaseName":     opts.cfg.Database.DBName,
			"retryDelayMillis": opts.cfg.ParcelView.RecorderRetryDelayMillis,
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	return r
}

func runRecorderHTTPServer(ctx context.Context, opts recorderHTTPOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8082"
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{Handler: newRecorderRouter(opts), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	return srv.Serve(lis)
}
