package upstream

import (
	"log/slog"
	"time"

	"github.com/BearBump/ParcelView/config"
	"github.com/BearBump/ParcelView/internal/integrations/carrier"
	"github.com/BearBump/ParcelView/internal/integrations/carrier/dtdc"
	"github.com/BearBump/ParcelView/internal/integrations/carrier/fake"
	"github.com/BearBump/ParcelView/internal/integrations/carrier/relay"
)

// New выбирает клиента перевозчика по upstream.mode. Неизвестный или пустой режим даёт fake.
func New(cfg config.UpstreamConfig) carrier.Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	switch cfg.Mode {
	case "dtdc":
		return dtdc.New(cfg.BaseURL, timeout)
	case "relay":
		return relay.New(cfg.BaseURL, cfg.APIKey, timeout)
	case "", "fake":
		return fake.New()
	default:
		slog.Warn("unknown upstream mode, using fake", "mode", cfg.Mode)
		return fake.New()
	}
}
