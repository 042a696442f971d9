package dtdc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BearBump/ParcelView/internal/integrations/carrier"
)

func TestClient_Fetch_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/track", r.URL.Path)
		require.Equal(t, "https://www.dtdc.com", r.Header.Get("Origin"))
		require.NotEmpty(t, r.Header.Get("User-Agent"))

		var body trackReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "cnno", body.TrackType)
		require.Equal(t, "D12345678", body.TrackNumber)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"header":{"currentStatusDescription":"In Transit"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/track", time.Second)
	b, err := c.Fetch(context.Background(), "D12345678")
	require.NoError(t, err)
	require.JSONEq(t, `{"header":{"currentStatusDescription":"In Transit"}}`, string(b))
}

func TestClient_Fetch_StatusMapping(t *testing.T) {
	cases := []struct {
		code int
		want error
	}{
		{http.StatusNotFound, carrier.ErrNotFound},
		{http.StatusUnauthorized, carrier.ErrUnauthorized},
		{http.StatusTooManyRequests, carrier.ErrRateLimited},
		{http.StatusInternalServerError, carrier.ErrUpstream},
		{http.StatusForbidden, carrier.ErrUpstream},
	}
	for _, tc := range cases {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(tc.code)
		}))

		_, err := New(srv.URL, time.Second).Fetch(context.Background(), "D12345678")
		srv.Close()

		require.ErrorIs(t, err, tc.want)
		require.Equal(t, tc.code, carrier.StatusCode(err))
		// без ретраев
		require.Equal(t, int32(1), calls.Load())
	}
}

func TestClient_Fetch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).Fetch(context.Background(), "D12345678")
	require.ErrorIs(t, err, carrier.ErrNetwork)
}

func TestClient_Fetch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(srv.URL, time.Second).Fetch(ctx, "D12345678")
	require.True(t, errors.Is(err, context.Canceled))
}

func TestNew_Defaults(t *testing.T) {
	c := New("", 0)
	require.Equal(t, DefaultURL, c.url)
	require.Equal(t, defaultTimeout, c.httpc.GetClient().Timeout)
}
