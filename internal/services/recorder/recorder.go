package recorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/ParcelView/internal/broker/messages"
	"github.com/BearBump/ParcelView/internal/models"
)

// ErrBadMessage — сообщение нельзя записать (битый JSON, нет номера или времени). Такие сообщения пропускаются.
var ErrBadMessage = errors.New("bad lookup message")

type Repository interface {
	InsertLookup(ctx context.Context, l models.Lookup) (uint64, error)
}

type Source interface {
	Consume(ctx context.Context, handler func(ctx context.Context, key, value []byte) error) error
}

type Recorder struct {
	repo Repository
	src  Source

	retryDelay time.Duration

	startedAtUnixNano   int64
	lastMessageUnixNano atomic.Int64
	totalReceived       atomic.Int64
	totalRecorded       atomic.Int64
	totalSkipped        atomic.Int64
	totalErrors         atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(repo Repository, src Source) *Recorder {
	return &Recorder{
		repo:              repo,
		src:               src,
		retryDelay:        time.Second,
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (r *Recorder) WithRetryDelay(d time.Duration) *Recorder {
	if d > 0 {
		r.retryDelay = d
	}
	return r
}

type Stats struct {
	StartedAt     time.Time  `json:"startedAt"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
	TotalReceived int64      `json:"totalReceived"`
	TotalRecorded int64      `json:"totalRecorded"`
	TotalSkipped  int64      `json:"totalSkipped"`
	TotalErrors   int64      `json:"totalErrors"`
	LastError     string     `json:"lastError,omitempty"`
}

func (r *Recorder) Stats() Stats {
	st := Stats{
		StartedAt:     time.Unix(0, r.startedAtUnixNano).UTC(),
		TotalReceived: r.totalReceived.Load(),
		TotalRecorded: r.totalRecorded.Load(),
		TotalSkipped:  r.totalSkipped.Load(),
		TotalErrors:   r.totalErrors.Load(),
	}
	if n := r.lastMessageUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastMessageAt = &t
	}
	r.lastErrorMu.Lock()
	st.LastError = r.lastError
	r.lastErrorMu.Unlock()
	return st
}

func (r *Recorder) setLastError(err error) {
	r.lastErrorMu.Lock()
	r.lastError = err.Error()
	r.lastErrorMu.Unlock()
}

// Handle декодирует событие и пишет строку журнала.
func (r *Recorder) Handle(ctx context.Context, key, value []byte) error {
	r.totalReceived.Add(1)
	r.lastMessageUnixNano.Store(time.Now().UTC().UnixNano())

	var m messages.TrackingLookedUp
	if err := json.Unmarshal(value, &m); err != nil {
		return errors.Wrap(ErrBadMessage, err.Error())
	}
	number := strings.TrimSpace(m.TrackingNumber)
	if number == "" {
		number = strings.TrimSpace(string(key))
	}
	if number == "" {
		return errors.Wrap(ErrBadMessage, "tracking_number is required")
	}
	// время события входит в ключ идемпотентности, подставлять своё нельзя
	if m.TrackedAt.IsZero() {
		return errors.Wrap(ErrBadMessage, "tracked_at is required")
	}

	var payload []byte
	if len(m.Response) > 0 && string(m.Response) != "null" {
		payload = m.Response
	}

	if _, err := r.repo.InsertLookup(ctx, models.Lookup{
		TrackingNumber: number,
		Status:         m.Status,
		ResponseJSON:   payload,
		TrackedAt:      m.TrackedAt.UTC(),
	}); err != nil {
		return errors.Wrap(err, "record lookup")
	}
	r.totalRecorded.Add(1)
	return nil
}

// handle — обёртка для консьюмера: битые сообщения коммитятся и пропускаются,
// ошибки БД останавливают чтение без коммита.
func (r *Recorder) handle(ctx context.Context, key, value []byte) error {
	err := r.Handle(ctx, key, value)
	if err == nil {
		return nil
	}
	r.totalErrors.Add(1)
	r.setLastError(err)
	if errors.Is(err, ErrBadMessage) {
		r.totalSkipped.Add(1)
		slog.Warn("recorder: skip message", "key", string(key), "error", err.Error())
		return nil
	}
	return err
}

// Run читает события, пока не отменят ctx. После ошибки чтения ждёт retryDelay и переподключается.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		err := r.src.Consume(ctx, r.handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			slog.Error("recorder: consume", "error", err.Error())
			r.setLastError(err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.retryDelay):
		}
	}
}
