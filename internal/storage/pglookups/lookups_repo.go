package pglookups

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/ParcelView/internal/models"
)

// InsertLookup пишет строку журнала. Повтор (тот же номер и tracked_at) игнорируется, тогда id = 0.
func (s *Storage) InsertLookup(ctx context.Context, l models.Lookup) (uint64, error) {
	if l.TrackingNumber == "" {
		return 0, errors.New("tracking number is required")
	}
	if l.TrackedAt.IsZero() {
		l.TrackedAt = time.Now().UTC()
	}
	var payload any
	if len(l.ResponseJSON) > 0 {
		payload = string(l.ResponseJSON)
	}

	var id uint64
	err := s.db.QueryRow(ctx, `
INSERT INTO tracking_history (tracking_number, status, response_data, tracked_at)
VALUES ($1, $2, $3::jsonb, $4)
ON CONFLICT (tracking_number, tracked_at) DO NOTHING
RETURNING id
`, l.TrackingNumber, l.Status, payload, l.TrackedAt).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "insert lookup")
	}
	return id, nil
}

// RecentTrackingNumbers — уникальные номера, свежие первыми.
func (s *Storage) RecentTrackingNumbers(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}

	rows, err := s.db.Query(ctx, `
SELECT tracking_number
FROM tracking_history
GROUP BY tracking_number
ORDER BY MAX(tracked_at) DESC, tracking_number
LIMIT $1
`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select recent")
	}
	defer rows.Close()

	out := make([]string, 0, limit)
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, errors.Wrap(err, "scan recent")
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows recent")
	}
	return out, nil
}

// ListLookups отдаёт журнал по одному номеру, свежие первыми.
func (s *Storage) ListLookups(ctx context.Context, trackingNumber string, limit int) ([]*models.Lookup, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(ctx, `
SELECT id, tracking_number, status, response_data, tracked_at
FROM tracking_history
WHERE tracking_number = $1
ORDER BY tracked_at DESC
LIMIT $2
`, trackingNumber, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select lookups")
	}
	defer rows.Close()

	out := make([]*models.Lookup, 0)
	for rows.Next() {
		var l models.Lookup
		var payload []byte
		if err := rows.Scan(&l.ID, &l.TrackingNumber, &l.Status, &payload, &l.TrackedAt); err != nil {
			return nil, errors.Wrap(err, "scan lookup")
		}
		l.ResponseJSON = payload
		l.TrackedAt = l.TrackedAt.UTC()
		out = append(out, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows lookups")
	}
	return out, nil
}
