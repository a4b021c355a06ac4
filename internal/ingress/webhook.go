package ingress

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"solana-whale-copy/internal/domain"
)

// Webhook server limits.
const (
	webhookRequestTimeout = 10 * time.Second
	webhookShutdownGrace  = 15 * time.Second
	maxWebhookBody        = 4 << 20
)

// HealthSource produces the aggregated pipeline status served by
// GET /health.
type HealthSource func() interface{}

// WebhookIngress is the backup ingress variant: an HTTP server
// accepting pre-enriched transactions on POST /webhook. It always
// answers 200; surfacing validation failures as HTTP errors would get
// the webhook disabled by the provider. It also hosts /health and,
// when configured, /metrics.
type WebhookIngress struct {
	channelID    string
	port         int
	healthSource HealthSource
	metrics      http.Handler
	verbose      bool

	mu     sync.Mutex
	health domain.ChannelHealth
	sink   chan<- domain.Candidate
}

// WebhookOptions configures a WebhookIngress.
type WebhookOptions struct {
	ChannelID    string
	Port         int
	HealthSource HealthSource
	// Metrics, when non-nil, is mounted at /metrics.
	Metrics http.Handler
	Verbose bool
}

// NewWebhook creates a WebhookIngress.
func NewWebhook(opts WebhookOptions) *WebhookIngress {
	return &WebhookIngress{
		channelID:    opts.ChannelID,
		port:         opts.Port,
		healthSource: opts.HealthSource,
		metrics:      opts.Metrics,
		verbose:      opts.Verbose,
		health: domain.ChannelHealth{
			ChannelID: opts.ChannelID,
			State:     domain.ChannelConnecting,
		},
	}
}

// Start serves HTTP until ctx is cancelled.
func (w *WebhookIngress) Start(ctx context.Context, sink chan<- domain.Candidate) error {
	w.mu.Lock()
	w.sink = sink
	w.health.State = domain.ChannelActive
	w.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", w.handleWebhook)
	mux.HandleFunc("GET /health", w.handleHealth)
	if w.metrics != nil {
		mux.Handle("GET /metrics", w.metrics)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", w.port),
		Handler:      mux,
		ReadTimeout:  webhookRequestTimeout,
		WriteTimeout: webhookRequestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	log.Printf("[webhook:%s] listening on :%d", w.channelID, w.port)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), webhookShutdownGrace)
		defer cancel()
		w.setState(domain.ChannelDisabled)
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		w.setState(domain.ChannelDisabled)
		return fmt.Errorf("webhook server: %w", err)
	}
}

// handleWebhook accepts a JSON array of enriched transactions and
// enqueues each entry. The response is 200 no matter what.
func (w *WebhookIngress) handleWebhook(rw http.ResponseWriter, req *http.Request) {
	defer rw.WriteHeader(http.StatusOK)

	body, err := io.ReadAll(io.LimitReader(req.Body, maxWebhookBody))
	if err != nil {
		log.Printf("[webhook:%s] read body: %v", w.channelID, err)
		return
	}

	var txs []domain.EnrichedTx
	if err := json.Unmarshal(body, &txs); err != nil {
		// Some providers wrap the array in an object.
		var wrapper struct {
			Transactions []domain.EnrichedTx `json:"transactions"`
		}
		if err2 := json.Unmarshal(body, &wrapper); err2 != nil || len(wrapper.Transactions) == 0 {
			log.Printf("[webhook:%s] unparseable payload (%d bytes): %v", w.channelID, len(body), err)
			return
		}
		txs = wrapper.Transactions
	}

	now := time.Now()
	var accepted, dropped int
	for i := range txs {
		tx := txs[i]
		if tx.Signature == "" {
			continue
		}
		if offer(w.sink, domain.Candidate{
			Enriched:  &tx,
			ArrivedAt: now,
			ChannelID: w.channelID,
		}) {
			accepted++
		} else {
			dropped++
		}
	}

	w.mu.Lock()
	w.health.LastMessageAt = now
	w.health.Dropped += int64(dropped)
	w.mu.Unlock()

	if w.verbose {
		log.Printf("[webhook:%s] accepted %d, dropped %d of %d", w.channelID, accepted, dropped, len(txs))
	}
}

// handleHealth serves the aggregated pipeline snapshot.
func (w *WebhookIngress) handleHealth(rw http.ResponseWriter, req *http.Request) {
	rw.Header().Set("Content-Type", "application/json")

	var snapshot interface{} = map[string]string{"status": "ok"}
	if w.healthSource != nil {
		snapshot = w.healthSource()
	}
	if err := json.NewEncoder(rw).Encode(snapshot); err != nil {
		log.Printf("[webhook:%s] encode health: %v", w.channelID, err)
	}
}

// Health returns the channel's health record.
func (w *WebhookIngress) Health() domain.ChannelHealth {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.health
}

func (w *WebhookIngress) setState(state domain.ChannelState) {
	w.mu.Lock()
	w.health.State = state
	w.mu.Unlock()
}
