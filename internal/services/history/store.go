package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/ParcelView/internal/cache"
	"github.com/BearBump/ParcelView/internal/models"
)

const (
	MaxItems   = 10
	HistoryTTL = 30 * 24 * time.Hour
	ConsentTTL = 365 * 24 * time.Hour
)

// Store хранит недавние поиски клиента. Без согласия клиента ничего не пишется и не читается.
type Store struct {
	kv  cache.KV
	now func() time.Time
}

func New(kv cache.KV) *Store {
	return &Store{kv: kv, now: func() time.Time { return time.Now().UTC() }}
}

func historyKey(clientID string) string { return "pv:history:" + clientID }
func consentKey(clientID string) string { return "pv:consent:" + clientID }

func (s *Store) HasConsent(ctx context.Context, clientID string) (bool, error) {
	b, ok, err := s.kv.Get(ctx, consentKey(clientID))
	if err != nil {
		return false, errors.Wrap(err, "get consent")
	}
	return ok && string(b) == "true", nil
}

// SetConsent: отзыв согласия удаляет и флаг, и историю.
func (s *Store) SetConsent(ctx context.Context, clientID string, consent bool) error {
	if consent {
		return errors.Wrap(s.kv.Set(ctx, consentKey(clientID), []byte("true"), ConsentTTL), "set consent")
	}
	if err := s.kv.Del(ctx, consentKey(clientID)); err != nil {
		return errors.Wrap(err, "revoke consent")
	}
	return s.Clear(ctx, clientID)
}

func (s *Store) List(ctx context.Context, clientID string) ([]models.HistoryEntry, error) {
	ok, err := s.HasConsent(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []models.HistoryEntry{}, nil
	}
	return s.load(ctx, clientID)
}

func (s *Store) load(ctx context.Context, clientID string) ([]models.HistoryEntry, error) {
	b, ok, err := s.kv.Get(ctx, historyKey(clientID))
	if err != nil {
		return nil, errors.Wrap(err, "get history")
	}
	if !ok {
		return []models.HistoryEntry{}, nil
	}
	var out []models.HistoryEntry
	if err := json.Unmarshal(b, &out); err != nil {
		// битые данные считаем пустой историей
		slog.Warn("history: corrupt entry", "client_id", clientID, "err", err)
		return []models.HistoryEntry{}, nil
	}
	if out == nil {
		out = []models.HistoryEntry{}
	}
	return out, nil
}

func (s *Store) save(ctx context.Context, clientID string, items []models.HistoryEntry) error {
	b, err := json.Marshal(items)
	if err != nil {
		return errors.Wrap(err, "marshal history")
	}
	return errors.Wrap(s.kv.Set(ctx, historyKey(clientID), b, HistoryTTL), "set history")
}

func without(items []models.HistoryEntry, number string) []models.HistoryEntry {
	out := make([]models.HistoryEntry, 0, len(items))
	for _, it := range items {
		if it.TrackingNumber != number {
			out = append(out, it)
		}
	}
	return out
}

// Add кладёт номер в начало списка, убирая прежнее вхождение; длина не больше MaxItems.
func (s *Store) Add(ctx context.Context, clientID, number string) error {
	ok, err := s.HasConsent(ctx, clientID)
	if err != nil || !ok {
		return err
	}
	items, err := s.load(ctx, clientID)
	if err != nil {
		return err
	}

	next := append([]models.HistoryEntry{{TrackingNumber: number, Timestamp: s.now()}}, without(items, number)...)
	if len(next) > MaxItems {
		next = next[:MaxItems]
	}
	return s.save(ctx, clientID, next)
}

func (s *Store) Remove(ctx context.Context, clientID, number string) error {
	ok, err := s.HasConsent(ctx, clientID)
	if err != nil || !ok {
		return err
	}
	items, err := s.load(ctx, clientID)
	if err != nil {
		return err
	}
	return s.save(ctx, clientID, without(items, number))
}

func (s *Store) Clear(ctx context.Context, clientID string) error {
	return errors.Wrap(s.kv.Del(ctx, historyKey(clientID)), "clear history")
}
