package carrier

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Ошибки транспорта/HTTP от перевозчика. Сравнивать через errors.Is.
var (
	ErrNotFound     = errors.New("tracking number not found")
	ErrUnauthorized = errors.New("invalid api credentials")
	ErrRateLimited  = errors.New("rate limited")
	ErrUpstream     = errors.New("upstream error")
	ErrNetwork      = errors.New("network error")
)

// Client делает ровно один запрос к перевозчику на вызов, без ретраев.
// Возвращает сырое тело ответа 2xx.
type Client interface {
	Fetch(ctx context.Context, trackNumber string) ([]byte, error)
}

// HTTPError — ответ перевозчика с кодом не из 2xx.
type HTTPError struct {
	StatusCode int
	Detail     string
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("carrier http %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("carrier http %d", e.StatusCode)
}

// Unwrap lets errors.Is match the sentinel for the status class.
func (e *HTTPError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return ErrUpstream
	}
}

// StatusCode достаёт код ответа из цепочки ошибок (0, если его нет).
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

// NetworkError оборачивает ошибку транспорта в ErrNetwork.
func NetworkError(err error) error {
	return errors.Wrap(ErrNetwork, err.Error())
}
