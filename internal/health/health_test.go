package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func get(t *testing.T, h http.Handler, path string) (int, status) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var st status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	return rec.Code, st
}

func TestRouter(t *testing.T) {
	hb := NewHeartbeat(log.New(io.Discard, "", 0))

	code, st := get(t, Router(hb, nil), "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", st.Status)

	code, st = get(t, Router(hb, pingerFunc(func(context.Context) error { return nil })), "/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", st.Status)

	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })
	code, st = get(t, Router(hb, down), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unavailable", st.Status)
	assert.Equal(t, "connection refused", st.Error)
}

func TestHeartbeat_Run(t *testing.T) {
	hb := NewHeartbeat(log.New(io.Discard, "", 0))
	start := hb.LastBeat()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hb.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return hb.LastBeat().After(start)
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("heartbeat did not stop")
	}
}
