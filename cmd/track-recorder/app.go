package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/ParcelView/config"
	"github.com/BearBump/ParcelView/internal/broker/kafka"
	"github.com/BearBump/ParcelView/internal/broker/messages"
	"github.com/BearBump/ParcelView/internal/services/recorder"
	"github.com/BearBump/ParcelView/internal/storage/pglookups"
)

type recorderFactories struct {
	newStorage  func(cfg *config.Config) (repo recorder.Repository, closeFn func(), err error)
	newConsumer func(cfg *config.Config, topic, group string) (src recorder.Source, closeFn func())
}

func defaultRecorderFactories() recorderFactories {
	return recorderFactories{
		newStorage: func(cfg *config.Config) (recorder.Repository, func(), error) {
			connString := cfg.Database.ConnString()
			if connString == "" {
				return nil, nil, errors.New("database.host is required")
			}
			st, err := pglookups.New(connString)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newConsumer: func(cfg *config.Config, topic, group string) (recorder.Source, func()) {
			c := kafka.NewConsumer(cfg.Kafka.Brokers(), topic, group)
			return c, func() { _ = c.Close() }
		},
	}
}

func consumerSettings(cfg *config.Config) (topic, group string) {
	topic = cfg.Kafka.TrackingLookedUpTopicName
	if topic == "" {
		topic = messages.TopicTrackingLookedUp
	}
	group = cfg.ParcelView.KafkaConsumerGroup
	if group == "" {
		group = "track-recorder"
	}
	return topic, group
}

type recorderApp struct {
	rec   *recorder.Recorder
	ready func(ctx context.Context) error
	close func()
}

func buildRecorder(cfg *config.Config, f recorderFactories) (*recorderApp, error) {
	repo, closeDB, err := f.newStorage(cfg)
	if err != nil {
		return nil, err
	}
	topic, group := consumerSettings(cfg)
	src, closeConsumer := f.newConsumer(cfg, topic, group)

	closeAll := func() {
		if closeConsumer != nil {
			closeConsumer()
		}
		if closeDB != nil {
			closeDB()
		}
	}

	app := &recorderApp{
		rec: recorder.New(repo, src).
			WithRetryDelay(time.Duration(cfg.ParcelView.RecorderRetryDelayMillis) * time.Millisecond),
		close: closeAll,
	}
	if p, ok := repo.(interface{ Ping(ctx context.Context) error }); ok {
		app.ready = p.Ping
	}
	return app, nil
}

func RunTrackRecorder(ctx context.Context, rec *recorder.Recorder) error {
	return rec.Run(ctx)
}
