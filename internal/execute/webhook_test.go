package execute

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workpile/internal/domain"
)

func TestWebhookDeliversPayload(t *testing.T) {
	var got webhookPayload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	wk := domain.NewWork("hello")
	hook := NewWebhook(ts.URL, time.Second)
	require.NoError(t, hook.Do(context.Background(), wk, 2))

	assert.Equal(t, wk.ID, got.ID)
	assert.Equal(t, "hello", got.Data)
	assert.Equal(t, 2, got.Attempt)
}

func TestWebhookFailsOnErrorStatus(t *testing.T) {
	var hits int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer ts.Close()

	hook := NewWebhook(ts.URL, time.Second)
	err := hook.Do(context.Background(), domain.NewWork("x"), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.EqualValues(t, 1, atomic.LoadInt64(&hits), "a single attempt, retries belong to the policy")
}

func TestWebhookFailsOnUnreachableEndpoint(t *testing.T) {
	hook := NewWebhook("http://127.0.0.1:1/none", 100*time.Millisecond)
	err := hook.Do(context.Background(), domain.NewWork("x"), 1)
	assert.Error(t, err)
}

func TestSleepHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Sleep(time.Minute)(ctx, domain.NewWork("x"), 1)
	assert.ErrorIs(t, err, context.Canceled)
}
