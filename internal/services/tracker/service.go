package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/BearBump/ParcelView/internal/broker/messages"
	"github.com/BearBump/ParcelView/internal/integrations/carrier"
	"github.com/BearBump/ParcelView/internal/models"
	"github.com/BearBump/ParcelView/internal/normalize"
)

var (
	ErrInvalidTrackingNumber = errors.New("invalid tracking number")
	ErrMalformedResponse     = errors.New("malformed upstream response")
)

const (
	DefaultRecentLimit = 5
	MaxRecentLimit     = 50
)

type RateLimiter interface {
	Allow(ctx context.Context, callerKey string) (bool, int64, error)
}

type History interface {
	Add(ctx context.Context, clientID, number string) error
}

type RecentStore interface {
	RecentTrackingNumbers(ctx context.Context, limit int) ([]string, error)
}

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Необязательные зависимости, nil выключает соответствующий шаг.
type Deps struct {
	Limiter   RateLimiter
	History   History
	Recent    RecentStore
	Publisher Publisher
	Topic     string
}

type callerAddrKey struct{}

// WithCallerAddr кладёт в ctx адрес вызывающего. По нему лимитируются запросы без client id.
func WithCallerAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, callerAddrKey{}, addr)
}

// limiterKey: client id, иначе адрес вызывающего. Общее окно остаётся только
// для вызовов, где адреса нет (например, из CLI).
func limiterKey(ctx context.Context, clientID string) string {
	if clientID != "" {
		return "client:" + clientID
	}
	if addr, ok := ctx.Value(callerAddrKey{}).(string); ok && addr != "" {
		return "addr:" + addr
	}
	return "anonymous"
}

type Service struct {
	upstream carrier.Client
	deps     Deps
	validate *validator.Validate
	now      func() time.Time
}

func New(upstream carrier.Client, deps Deps) *Service {
	if deps.Topic == "" {
		deps.Topic = messages.TopicTrackingLookedUp
	}
	return &Service{
		upstream: upstream,
		deps:     deps,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type trackInput struct {
	TrackingNumber string `validate:"required,min=8,max=20,alphanum"`
}

// CleanTrackingNumber обрезает пробелы и проверяет формат номера.
func (s *Service) CleanTrackingNumber(raw string) (string, error) {
	in := trackInput{TrackingNumber: strings.TrimSpace(raw)}
	if err := s.validate.Struct(in); err != nil {
		return "", errors.Wrap(ErrInvalidTrackingNumber, validationMessage(err))
	}
	return in.TrackingNumber, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Tracking number is invalid"
	}
	switch verrs[0].Tag() {
	case "required":
		return "Tracking number is required"
	case "min", "max":
		return "Tracking number must be between 8 and 20 characters"
	case "alphanum":
		return "Tracking number can only contain letters and numbers"
	default:
		return "Tracking number is invalid"
	}
}

// Track — один запрос к перевозчику на вызов, без ретраев.
func (s *Service) Track(ctx context.Context, clientID, trackingNumber string) (*models.TrackingInfo, error) {
	number, err := s.CleanTrackingNumber(trackingNumber)
	if err != nil {
		return nil, err
	}

	if s.deps.Limiter != nil {
		key := limiterKey(ctx, clientID)
		ok, n, err := s.deps.Limiter.Allow(ctx, key)
		if err != nil {
			// лимитер недоступен: пропускаем запрос
			slog.Warn("tracker: rate limiter failed", "caller", key, "err", err)
		} else if !ok {
			return nil, errors.Wrapf(carrier.ErrRateLimited, "%s: %d requests in window", key, n)
		}
	}

	raw, err := s.upstream.Fetch(ctx, number)
	if err != nil {
		return nil, err
	}

	info := normalize.Normalize(raw, number)
	if info.Error != "" {
		return nil, errors.Wrap(ErrMalformedResponse, info.Error)
	}

	s.record(ctx, clientID, &info, raw)
	return &info, nil
}

// record — побочные эффекты после успешного запроса; ошибки только логируем.
func (s *Service) record(ctx context.Context, clientID string, info *models.TrackingInfo, raw []byte) {
	if s.deps.History != nil && clientID != "" {
		if err := s.deps.History.Add(ctx, clientID, info.TrackingNumber); err != nil {
			slog.Warn("tracker: history add failed", "client_id", clientID, "tracking_number", info.TrackingNumber, "err", err)
		}
	}

	if s.deps.Publisher == nil {
		return
	}
	msg := messages.TrackingLookedUp{
		TrackingNumber: info.TrackingNumber,
		Status:         info.Status,
		IsDelivered:    info.IsDelivered,
		TrackedAt:      s.now(),
		Response:       json.RawMessage(raw),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		slog.Warn("tracker: marshal event failed", "tracking_number", info.TrackingNumber, "err", err)
		return
	}
	if err := s.deps.Publisher.Publish(ctx, s.deps.Topic, []byte(info.TrackingNumber), b); err != nil {
		slog.Warn("tracker: publish failed", "tracking_number", info.TrackingNumber, "err", err)
	}
}

// RecentSearches: limit <= 0 даёт DefaultRecentLimit, сверху режется до MaxRecentLimit.
func (s *Service) RecentSearches(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	if s.deps.Recent == nil {
		return []string{}, nil
	}
	out, err := s.deps.Recent.RecentTrackingNumbers(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, "recent searches")
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// UserMessage переводит ошибку в текст для пользователя.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidTrackingNumber):
		msg := err.Error()
		if i := strings.LastIndex(msg, ": "+ErrInvalidTrackingNumber.Error()); i > 0 {
			return msg[:i]
		}
		return "Tracking number is invalid"
	case errors.Is(err, carrier.ErrNotFound):
		return "Tracking number not found"
	case errors.Is(err, carrier.ErrUnauthorized):
		return "Invalid API credentials"
	case errors.Is(err, carrier.ErrRateLimited):
		return "Too many requests. Please try again later"
	case errors.Is(err, carrier.ErrNetwork):
		return "Network error. Please check your internet connection"
	case errors.Is(err, ErrMalformedResponse):
		return "Failed to parse response"
	case errors.Is(err, carrier.ErrUpstream):
		return fmt.Sprintf("API Error: %d", carrier.StatusCode(err))
	default:
		return "Failed to track shipment"
	}
}
