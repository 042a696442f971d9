package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	trackerapi "github.com/BearBump/ParcelView/internal/api/tracker_api"
	"github.com/BearBump/ParcelView/internal/cache/rediscache"
	"github.com/BearBump/ParcelView/internal/integrations/carrier/fake"
	"github.com/BearBump/ParcelView/internal/services/history"
	"github.com/BearBump/ParcelView/internal/services/tracker"
)

func newTestAPI(t *testing.T) *trackerapi.TrackerAPI {
	t.Helper()
	mr := miniredis.RunT(t)
	kv := rediscache.New(mr.Addr())
	t.Cleanup(func() { _ = kv.Close() })

	hist := history.New(kv)
	svc := tracker.New(fake.New(), tracker.Deps{History: hist})
	return trackerapi.New(svc, hist)
}

func startAPI(t *testing.T, opts trackAPIOpts) (string, context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	addrCh := make(chan string, 1)
	opts.httpAddr = "127.0.0.1:0"
	opts.onListen = func(httpAddr string) { addrCh <- httpAddr }

	errCh := make(chan error, 1)
	go func() { errCh <- runTrackAPI(ctx, opts, newTestAPI(t)) }()

	select {
	case addr := <-addrCh:
		return addr, cancel, errCh
	case err := <-errCh:
		t.Fatalf("server failed to start: %v", err)
	}
	return "", cancel, errCh
}

func TestRunTrackAPI_TrackAndSwagger(t *testing.T) {
	dir := t.TempDir()
	sw := filepath.Join(dir, "swagger.json")
	require.NoError(t, os.WriteFile(sw, []byte(`{"swagger":"2.0"}`), 0o600))

	addr, cancel, errCh := startAPI(t, trackAPIOpts{swaggerPath: sw})

	resp, err := http.Get("http://" + addr + "/swagger.json")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"swagger"`)

	resp, err = http.Post("http://"+addr+"/v1/track", "application/json", strings.NewReader(`{"trackingNumber":"D12345678"}`))
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"trackingNumber":"D12345678"`)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
}

func TestRunTrackAPI_NoSwagger(t *testing.T) {
	addr, cancel, errCh := startAPI(t, trackAPIOpts{})

	resp, err := http.Get("http://" + addr + "/swagger.json")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	require.Error(t, <-errCh)
}

func TestRunTrackAPI_MissingSwaggerFile(t *testing.T) {
	err := runTrackAPI(context.Background(), trackAPIOpts{
		httpAddr:    "127.0.0.1:0",
		swaggerPath: filepath.Join(t.TempDir(), "nope.json"),
	}, newTestAPI(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "swagger file not found")
}
