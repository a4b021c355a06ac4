package solana

import (
	"context"
	"errors"
)

// RPCClient defines the JSON-RPC 2.0 interface against one endpoint.
// Retry and backoff policy live in the endpoint pool, not here; a
// client performs exactly one attempt per Call.
type RPCClient interface {
	// Call performs a single JSON-RPC request and unmarshals the result.
	Call(ctx context.Context, method string, params []interface{}, result interface{}) error
}

// ErrRateLimited is returned when the endpoint answers HTTP 429.
var ErrRateLimited = errors.New("rate limited (429)")

// Transaction is the getTransaction response consumed by the replay
// tool's signature hydration path.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime *int64
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	LogMessages       []string
	PreBalances       []uint64
	PostBalances      []uint64
	PreTokenBalances  []TokenBalanceEntry
	PostTokenBalances []TokenBalanceEntry
}

// TokenBalanceEntry is one entry of meta.postTokenBalances.
type TokenBalanceEntry struct {
	Owner    string
	Mint     string
	UIAmount float64
}

// TransactionMessage contains the parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}
