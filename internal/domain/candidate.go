package domain

import "time"

// NativeTransfer is a SOL movement inside an enriched transaction.
type NativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          int64  `json:"amount"` // lamports
}

// TokenTransfer is a token movement inside an enriched transaction.
type TokenTransfer struct {
	FromUserAccount string  `json:"fromUserAccount,omitempty"`
	ToUserAccount   string  `json:"toUserAccount"`
	Mint            string  `json:"mint"`
	TokenAmount     float64 `json:"tokenAmount"`
}

// EnrichedTx is the pre-parsed transaction shape delivered by the
// webhook provider. It skips the local decoder entirely.
type EnrichedTx struct {
	Signature       string           `json:"signature"`
	Timestamp       int64            `json:"timestamp"` // unix seconds
	Type            string           `json:"type"`
	FeePayer        string           `json:"feePayer"`
	NativeTransfers []NativeTransfer `json:"nativeTransfers"`
	TokenTransfers  []TokenTransfer  `json:"tokenTransfers"`
	Events          map[string]any   `json:"events,omitempty"`
}

// Candidate is the unit that flows from an ingress channel to the
// supervisor. Exactly one of Raw or Enriched is set: stream channels
// deliver raw provider payloads, the webhook delivers enriched ones.
type Candidate struct {
	Raw       []byte
	Enriched  *EnrichedTx
	ArrivedAt time.Time
	ChannelID string
}
