package solana

import "context"

// StreamConn is one live transaction-stream connection. Reconnect
// policy lives in the ingress layer; a StreamConn represents exactly
// one dialed connection and dies with it.
type StreamConn interface {
	// SubscribeTransactions subscribes to transactions mentioning any of
	// the given accounts and returns the subscription ID.
	SubscribeTransactions(ctx context.Context, mentions []string) (int64, error)

	// Next blocks until the next transaction notification arrives and
	// returns its raw result payload. Returns an error when the
	// connection is gone; the caller decides how to reconnect.
	Next(ctx context.Context) ([]byte, error)

	// Close tears the connection down.
	Close() error
}

// StreamDialer opens StreamConns. The ingress depends on this so tests
// can substitute an in-memory implementation.
type StreamDialer interface {
	Dial(ctx context.Context, url string) (StreamConn, error)
}
