package httpmiddleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doFrom(h http.Handler, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_BurstThenReject(t *testing.T) {
	h := RateLimit(RateLimitConfig{Rate: 0.001, Burst: 2})(okHandler())

	for i := range 2 {
		w := doFrom(h, "10.0.0.1:9999")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	w := doFrom(h, "10.0.0.1:9999")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"code":429,"message":"rate limit exceeded"}`, w.Body.String())
}

func TestRateLimit_PerClient(t *testing.T) {
	h := RateLimit(RateLimitConfig{Rate: 0.001, Burst: 1})(okHandler())

	assert.Equal(t, http.StatusOK, doFrom(h, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doFrom(h, "10.0.0.1:2").Code)
	assert.Equal(t, http.StatusOK, doFrom(h, "10.0.0.2:1").Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	h := RateLimit(RateLimitConfig{})(okHandler())

	for range 50 {
		require.Equal(t, http.StatusOK, doFrom(h, "10.0.0.1:1").Code)
	}
}

func TestRateLimit_CustomKey(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		Rate:  0.001,
		Burst: 1,
		KeyFunc: func(r *http.Request) string {
			return r.Header.Get("X-Account")
		},
	})(okHandler())

	send := func(account string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-Account", account)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("A1"))
	assert.Equal(t, http.StatusTooManyRequests, send("A1"))
	assert.Equal(t, http.StatusOK, send("B2"))
}

func TestLimiterSet_CleanupEvictsIdleClients(t *testing.T) {
	// Burst 10 at 5/s refills in two seconds.
	set := newLimiterSet(normalize(RateLimitConfig{Rate: 5, Burst: 10}))
	require.Equal(t, 2*time.Second, set.idle)

	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	set.reserve("idle", start)
	set.reserve("busy", start)
	set.reserve("busy", start.Add(1500*time.Millisecond))

	set.cleanup(start.Add(time.Second))
	assert.Equal(t, 2, set.size())

	set.cleanup(start.Add(2 * time.Second))
	assert.Equal(t, 1, set.size())
	assert.Contains(t, set.entries, "busy")

	set.cleanup(start.Add(4 * time.Second))
	assert.Zero(t, set.size())
}

func TestLimiterSet_SpoofedKeysDoNotAccumulate(t *testing.T) {
	set := newLimiterSet(normalize(RateLimitConfig{Rate: 100, Burst: 1}))
	h := set.middleware()(okHandler())

	for i := range 500 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.1.%d.%d", i/256, i%256))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}
	require.Equal(t, 500, set.size())

	set.cleanup(time.Now().Add(set.idle))
	assert.Zero(t, set.size())
}

func TestLimiterSet_EvictedClientStartsFull(t *testing.T) {
	set := newLimiterSet(normalize(RateLimitConfig{Rate: 1, Burst: 1}))
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.Zero(t, set.reserve("c", start).DelayFrom(start))
	set.cleanup(start.Add(set.idle))
	next := start.Add(set.idle)
	assert.Zero(t, set.reserve("c", next).DelayFrom(next))
}

func TestRateLimitWithCleanup_StopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	h := RateLimitWithCleanup(ctx, RateLimitConfig{
		Rate:            0.001,
		Burst:           1,
		CleanupInterval: 10 * time.Millisecond,
	})(okHandler())

	assert.Equal(t, http.StatusOK, doFrom(h, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doFrom(h, "10.0.0.1:2").Code)
	cancel()
}

func TestRateLimitWithCleanup_Disabled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := RateLimitWithCleanup(context.Background(), RateLimitConfig{})(okHandler())
	assert.Equal(t, http.StatusOK, doFrom(h, "10.0.0.1:1").Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded list", headers: map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, remote: "9.9.9.9:1", want: "1.2.3.4"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "5.6.7.8"}, remote: "9.9.9.9:1", want: "5.6.7.8"},
		{name: "remote addr", remote: "9.9.9.9:1234", want: "9.9.9.9"},
		{name: "remote without port", remote: "pipe", want: "pipe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}
