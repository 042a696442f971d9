package pglookups

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS tracking_history (
  id BIGSERIAL PRIMARY KEY,
  tracking_number TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT '',
  response_data JSONB NULL,
  tracked_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE INDEX IF NOT EXISTS idx_tracking_history_tracked_at ON tracking_history(tracked_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_tracking_history_number ON tracking_history(tracking_number)`,
		// повторная доставка одного события из kafka не должна давать дубль
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_tracking_history_number_tracked_at ON tracking_history(tracking_number, tracked_at)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
