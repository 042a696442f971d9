package tracker_api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"

	"github.com/BearBump/ParcelView/internal/integrations/carrier"
	"github.com/BearBump/ParcelView/internal/models"
	"github.com/BearBump/ParcelView/internal/services/tracker"
)

const (
	ClientIDHeader = "X-Client-Id"
	maxBodyBytes   = 1 << 20
)

type Tracker interface {
	Track(ctx context.Context, clientID, trackingNumber string) (*models.TrackingInfo, error)
	RecentSearches(ctx context.Context, limit int) ([]string, error)
}

type HistoryStore interface {
	HasConsent(ctx context.Context, clientID string) (bool, error)
	SetConsent(ctx context.Context, clientID string, consent bool) error
	List(ctx context.Context, clientID string) ([]models.HistoryEntry, error)
	Remove(ctx context.Context, clientID, number string) error
	Clear(ctx context.Context, clientID string) error
}

type TrackerAPI struct {
	svc     Tracker
	history HistoryStore
}

func New(svc Tracker, history HistoryStore) *TrackerAPI {
	return &TrackerAPI{svc: svc, history: history}
}

type trackRequest struct {
	TrackingNumber string `json:"trackingNumber"`
}

type consentBody struct {
	Consent bool `json:"consent"`
}

type recentResponse struct {
	TrackingNumbers []string `json:"trackingNumbers"`
}

type historyResponse struct {
	History []models.HistoryEntry `json:"history"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Register вешает /v1/* на переданный роутер.
func (a *TrackerAPI) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/track", a.track)
		r.Get("/recent", a.recent)

		r.Group(func(r chi.Router) {
			r.Use(requireClientID)
			r.Get("/history", a.listHistory)
			r.Delete("/history", a.clearHistory)
			r.Delete("/history/{number}", a.removeHistory)
			r.Get("/consent", a.getConsent)
			r.Put("/consent", a.putConsent)
		})
	})
}

// Router — готовый роутер с /healthz и /v1/*.
func (a *TrackerAPI) Router() chi.Router {
	r := chi.NewRouter()
	// сервис стоит за прокси: адрес клиента берём из X-Real-IP / X-Forwarded-For
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	a.Register(r)
	return r
}

type clientIDKey struct{}

func requireClientID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(ClientIDHeader))
		if id == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: ClientIDHeader + " header is required"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientIDKey{}, id)))
	})
}

func clientID(r *http.Request) string {
	if id, ok := r.Context().Value(clientIDKey{}).(string); ok {
		return id
	}
	return strings.TrimSpace(r.Header.Get(ClientIDHeader))
}

func callerAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RealIP кладёт голый IP без порта
		return r.RemoteAddr
	}
	return host
}

func (a *TrackerAPI) track(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	// без X-Client-Id трек работает, но в историю не попадает
	ctx := tracker.WithCallerAddr(r.Context(), callerAddr(r))
	info, err := a.svc.Track(ctx, clientID(r), req.TrackingNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (a *TrackerAPI) recent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	out, err := a.svc.RecentSearches(r.Context(), limit)
	if err != nil {
		writeInternal(w, "recent searches", err)
		return
	}
	writeJSON(w, http.StatusOK, recentResponse{TrackingNumbers: out})
}

func (a *TrackerAPI) listHistory(w http.ResponseWriter, r *http.Request) {
	items, err := a.history.List(r.Context(), clientID(r))
	if err != nil {
		writeInternal(w, "list history", err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{History: items})
}

func (a *TrackerAPI) clearHistory(w http.ResponseWriter, r *http.Request) {
	if err := a.history.Clear(r.Context(), clientID(r)); err != nil {
		writeInternal(w, "clear history", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *TrackerAPI) removeHistory(w http.ResponseWriter, r *http.Request) {
	number := strings.TrimSpace(chi.URLParam(r, "number"))
	if err := a.history.Remove(r.Context(), clientID(r), number); err != nil {
		writeInternal(w, "remove history", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *TrackerAPI) getConsent(w http.ResponseWriter, r *http.Request) {
	ok, err := a.history.HasConsent(r.Context(), clientID(r))
	if err != nil {
		writeInternal(w, "get consent", err)
		return
	}
	writeJSON(w, http.StatusOK, consentBody{Consent: ok})
}

func (a *TrackerAPI) putConsent(w http.ResponseWriter, r *http.Request) {
	var body consentBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	if err := a.history.SetConsent(r.Context(), clientID(r), body.Consent); err != nil {
		writeInternal(w, "set consent", err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// StatusCode — HTTP-код ответа для ошибки трекинга.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, tracker.ErrInvalidTrackingNumber):
		return http.StatusBadRequest
	case errors.Is(err, carrier.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, carrier.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, carrier.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := StatusCode(err)
	if code >= http.StatusInternalServerError {
		slog.Error("track failed", "status", code, "error", err.Error())
	}
	writeJSON(w, code, errorResponse{Error: tracker.UserMessage(err)})
}

func writeInternal(w http.ResponseWriter, op string, err error) {
	slog.Error(op, "error", err.Error())
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
