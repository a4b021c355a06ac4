package ingress

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-whale-copy/internal/domain"
)

func newWebhookUnderTest(sink chan domain.Candidate, source HealthSource) *WebhookIngress {
	w := NewWebhook(WebhookOptions{
		ChannelID:    "webhook",
		Port:         8081,
		HealthSource: source,
	})
	w.sink = sink
	return w
}

func postWebhook(t *testing.T, w *WebhookIngress, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	w.handleWebhook(rec, req)
	return rec
}

func TestWebhook_AcceptsEnrichedArray(t *testing.T) {
	sink := make(chan domain.Candidate, 10)
	w := newWebhookUnderTest(sink, nil)

	rec := postWebhook(t, w, `[
		{"signature":"sig1","type":"SWAP","feePayer":"whale1","timestamp":1700000000},
		{"signature":"sig2","type":"TRANSFER","feePayer":"whale2"}
	]`)
	assert.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, sink, 2)
	first := <-sink
	require.NotNil(t, first.Enriched)
	assert.Equal(t, "sig1", first.Enriched.Signature)
	assert.Equal(t, "whale1", first.Enriched.FeePayer)
	assert.Equal(t, "webhook", first.ChannelID)
	assert.Nil(t, first.Raw)

	second := <-sink
	assert.Equal(t, "sig2", second.Enriched.Signature)
}

func TestWebhook_AcceptsWrappedObject(t *testing.T) {
	sink := make(chan domain.Candidate, 10)
	w := newWebhookUnderTest(sink, nil)

	rec := postWebhook(t, w, `{"transactions":[{"signature":"sig1","feePayer":"whale1"}]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, sink, 1)
}

func TestWebhook_GarbageStillAnswers200(t *testing.T) {
	// The provider disables webhooks that answer non-200.
	sink := make(chan domain.Candidate, 10)
	w := newWebhookUnderTest(sink, nil)

	rec := postWebhook(t, w, `not json at all`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, sink)
}

func TestWebhook_SkipsEntriesWithoutSignature(t *testing.T) {
	sink := make(chan domain.Candidate, 10)
	w := newWebhookUnderTest(sink, nil)

	postWebhook(t, w, `[{"feePayer":"whale1"},{"signature":"sig1","feePayer":"whale1"}]`)
	require.Len(t, sink, 1)
	assert.Equal(t, "sig1", (<-sink).Enriched.Signature)
}

func TestWebhook_FullSinkDropsAndCounts(t *testing.T) {
	sink := make(chan domain.Candidate, 1)
	w := newWebhookUnderTest(sink, nil)

	rec := postWebhook(t, w, `[
		{"signature":"sig1"},{"signature":"sig2"},{"signature":"sig3"}
	]`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, sink, 1)

	health := w.Health()
	assert.Equal(t, int64(2), health.Dropped)
	assert.False(t, health.LastMessageAt.IsZero())
}

func TestWebhook_HealthEndpoint(t *testing.T) {
	w := newWebhookUnderTest(nil, func() interface{} {
		return map[string]int{"queue_depth": 7}
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	w.handleHealth(rec, req)

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 7, body["queue_depth"])
}

func TestWebhook_HealthEndpointWithoutSource(t *testing.T) {
	w := newWebhookUnderTest(nil, nil)

	rec := httptest.NewRecorder()
	w.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestWebhook_StartServesAndShutsDown(t *testing.T) {
	port := freePort(t)
	w := NewWebhook(WebhookOptions{ChannelID: "webhook", Port: port})

	ctx, cancel := context.WithCancel(context.Background())
	sink := make(chan domain.Candidate, 10)
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx, sink) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/webhook", port)
	var resp *http.Response
	require.Eventually(t, func() bool {
		var err error
		resp, err = http.Post(url, "application/json", strings.NewReader(`[{"signature":"sig1"}]`))
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	candidate := <-sink
	assert.Equal(t, "sig1", candidate.Enriched.Signature)
	assert.Equal(t, domain.ChannelActive, w.Health().State)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, domain.ChannelDisabled, w.Health().State)
}
