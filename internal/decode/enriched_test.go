package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-whale-copy/internal/domain"
)

func enrichedSwap() *domain.EnrichedTx {
	return &domain.EnrichedTx{
		Signature: testSig,
		Timestamp: 1_700_000_000,
		Type:      "SWAP",
		FeePayer:  testFeePayer,
		NativeTransfers: []domain.NativeTransfer{
			{FromUserAccount: testFeePayer, ToUserAccount: "Pool", Amount: 2_500_000_000},
		},
		TokenTransfers: []domain.TokenTransfer{
			{FromUserAccount: "Pool", ToUserAccount: testFeePayer, Mint: testMint, TokenAmount: 12345},
		},
	}
}

func TestFromEnriched_Swap(t *testing.T) {
	parsed, err := FromEnriched(enrichedSwap(), nil)
	require.NoError(t, err)

	assert.Equal(t, testSig, parsed.Signature)
	assert.Equal(t, testFeePayer, parsed.FeePayer)
	assert.Equal(t, testMint, parsed.ReceivedMint)
	assert.InDelta(t, 2.5, parsed.AmountSOL, 1e-9)
	assert.True(t, parsed.IsBuy)
	require.NotNil(t, parsed.BlockTime)
	assert.Equal(t, int64(1_700_000_000), *parsed.BlockTime)
}

func TestFromEnriched_SumsOutgoingTransfers(t *testing.T) {
	tx := enrichedSwap()
	tx.NativeTransfers = append(tx.NativeTransfers,
		domain.NativeTransfer{FromUserAccount: testFeePayer, ToUserAccount: "Fee", Amount: 100_000_000},
		domain.NativeTransfer{FromUserAccount: "Other", ToUserAccount: testFeePayer, Amount: 999_000_000},
	)

	parsed, err := FromEnriched(tx, nil)
	require.NoError(t, err)
	assert.InDelta(t, 2.6, parsed.AmountSOL, 1e-9)
}

func TestFromEnriched_MissingFields(t *testing.T) {
	noSig := enrichedSwap()
	noSig.Signature = ""
	_, err := FromEnriched(noSig, nil)
	require.ErrorIs(t, err, ErrMalformedTx)

	noPayer := enrichedSwap()
	noPayer.FeePayer = ""
	_, err = FromEnriched(noPayer, nil)
	require.ErrorIs(t, err, ErrMalformedTx)
}

func TestFromEnriched_Blacklist(t *testing.T) {
	_, err := FromEnriched(enrichedSwap(), map[string]struct{}{testMint: {}})
	require.ErrorIs(t, err, ErrUninteresting)
}

func TestFromEnriched_TransferIsNotABuy(t *testing.T) {
	tx := enrichedSwap()
	tx.Type = "TRANSFER"
	tx.TokenTransfers = nil

	parsed, err := FromEnriched(tx, nil)
	require.NoError(t, err)
	assert.False(t, parsed.IsBuy)
	assert.Empty(t, parsed.ReceivedMint)
	assert.Empty(t, parsed.LogMessages)
}

func TestFromEnriched_SourceHintMapsToProgram(t *testing.T) {
	tx := enrichedSwap()
	tx.Events = map[string]interface{}{"source": "PUMP_FUN"}

	parsed, err := FromEnriched(tx, nil)
	require.NoError(t, err)
	assert.True(t, parsed.InvokedProgram(domain.ProgramPumpFun))

	tx.Events["source"] = "RAYDIUM"
	parsed, err = FromEnriched(tx, nil)
	require.NoError(t, err)
	assert.True(t, parsed.InvokedProgram(domain.ProgramRaydiumAMM))
}

func TestFromEnriched_MissingTimestampLeavesBlockTimeNil(t *testing.T) {
	tx := enrichedSwap()
	tx.Timestamp = 0

	parsed, err := FromEnriched(tx, nil)
	require.NoError(t, err)
	assert.Nil(t, parsed.BlockTime)
}
