package decode

import "encoding/json"

// txEnvelope is the transaction notification payload delivered by the
// stream provider with "json" encoding. Fields the decoder does not
// consume are left out; unknown fields are ignored by encoding/json.
type txEnvelope struct {
	Signature   string       `json:"signature"`
	Slot        int64        `json:"slot"`
	BlockTime   *int64       `json:"blockTime"`
	Transaction *txContainer `json:"transaction"`
}

// txContainer nests the signed transaction next to its meta. Some
// providers flatten this one level; unmarshalTx tries both shapes.
type txContainer struct {
	Transaction *txSigned `json:"transaction"`
	Meta        *txMeta   `json:"meta"`
}

type txSigned struct {
	Signatures []string   `json:"signatures"`
	Message    *txMessage `json:"message"`
}

type txMessage struct {
	AccountKeys     []string        `json:"accountKeys"`
	Instructions    []txInstruction `json:"instructions"`
	AddressTableLookups []json.RawMessage `json:"addressTableLookups"`
}

type txInstruction struct {
	ProgramIDIndex int    `json:"programIdIndex"`
	Accounts       []int  `json:"accounts"`
	Data           string `json:"data"` // base58
}

type txMeta struct {
	Err               interface{}          `json:"err"`
	PreBalances       []uint64             `json:"preBalances"`
	PostBalances      []uint64             `json:"postBalances"`
	PreTokenBalances  []txTokenBalance     `json:"preTokenBalances"`
	PostTokenBalances []txTokenBalance     `json:"postTokenBalances"`
	LogMessages       []string             `json:"logMessages"`
	InnerInstructions []txInnerInstruction `json:"innerInstructions"`
	LoadedAddresses   *txLoadedAddresses   `json:"loadedAddresses"`
}

type txTokenBalance struct {
	AccountIndex  int            `json:"accountIndex"`
	Mint          string         `json:"mint"`
	Owner         string         `json:"owner"`
	UITokenAmount *txTokenAmount `json:"uiTokenAmount"`
}

type txTokenAmount struct {
	UIAmount *float64 `json:"uiAmount"`
}

type txInnerInstruction struct {
	Index        int             `json:"index"`
	Instructions []txInstruction `json:"instructions"`
}

// txLoadedAddresses carries the address-lookup-table expansion. The
// full key list is static keys, then writable, then readonly; any other
// order shifts balance indices and misattributes ownership.
type txLoadedAddresses struct {
	Writable []string `json:"writable"`
	Readonly []string `json:"readonly"`
}

// unmarshalTx parses a raw notification payload, accepting both the
// nested {transaction:{transaction,meta}} shape and a flattened
// {transaction,meta} one.
func unmarshalTx(raw []byte) (*txEnvelope, error) {
	var env txEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if env.Transaction != nil && env.Transaction.Transaction != nil {
		return &env, nil
	}

	// Flattened shape: transaction is the signed tx itself and meta sits
	// at the top level.
	var flat struct {
		Signature   string    `json:"signature"`
		Slot        int64     `json:"slot"`
		BlockTime   *int64    `json:"blockTime"`
		Transaction *txSigned `json:"transaction"`
		Meta        *txMeta   `json:"meta"`
	}
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, err
	}
	return &txEnvelope{
		Signature: flat.Signature,
		Slot:      flat.Slot,
		BlockTime: flat.BlockTime,
		Transaction: &txContainer{
			Transaction: flat.Transaction,
			Meta:        flat.Meta,
		},
	}, nil
}
