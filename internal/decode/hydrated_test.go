package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-whale-copy/internal/domain"
	"solana-whale-copy/internal/solana"
)

func hydratedBuy() *solana.Transaction {
	bt := int64(1_700_000_000)
	return &solana.Transaction{
		Signature: testSig,
		BlockTime: &bt,
		Meta: &solana.TransactionMeta{
			LogMessages: []string{
				"Program " + domain.ProgramPumpFun + " invoke [1]",
				"Program log: Instruction: Buy",
			},
			PreBalances:  []uint64{5_000_000_000, 0},
			PostBalances: []uint64{2_499_995_000, 2_500_000_000},
			PostTokenBalances: []solana.TokenBalanceEntry{
				{Owner: testFeePayer, Mint: testMint, UIAmount: 1000},
			},
		},
		Message: &solana.TransactionMessage{AccountKeys: []string{testFeePayer, "Pool"}},
	}
}

func TestFromTransaction_Buy(t *testing.T) {
	parsed, err := FromTransaction(hydratedBuy(), nil)
	require.NoError(t, err)

	assert.Equal(t, testSig, parsed.Signature)
	assert.Equal(t, testFeePayer, parsed.FeePayer)
	assert.Equal(t, testMint, parsed.ReceivedMint)
	assert.InDelta(t, 2.500005, parsed.AmountSOL, 1e-9)
	assert.True(t, parsed.Succeeded)
	require.NotNil(t, parsed.BlockTime)
	assert.Equal(t, int64(1_700_000_000), *parsed.BlockTime)
	assert.True(t, parsed.InvokedProgram(domain.ProgramPumpFun))
}

func TestFromTransaction_PreexistingBalanceIsNotAReceive(t *testing.T) {
	tx := hydratedBuy()
	tx.Meta.PreTokenBalances = []solana.TokenBalanceEntry{
		{Owner: testFeePayer, Mint: testMint, UIAmount: 500},
	}

	parsed, err := FromTransaction(tx, nil)
	require.NoError(t, err)
	assert.Empty(t, parsed.ReceivedMint)
}

func TestFromTransaction_BlacklistedMint(t *testing.T) {
	_, err := FromTransaction(hydratedBuy(), map[string]struct{}{testMint: {}})
	require.ErrorIs(t, err, ErrUninteresting)
}

func TestFromTransaction_FailedTx(t *testing.T) {
	tx := hydratedBuy()
	tx.Meta.Err = map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}

	_, err := FromTransaction(tx, nil)
	require.ErrorIs(t, err, ErrFailedTx)
}

func TestFromTransaction_Malformed(t *testing.T) {
	_, err := FromTransaction(nil, nil)
	require.ErrorIs(t, err, ErrMalformedTx)

	tx := hydratedBuy()
	tx.Meta.PreBalances = tx.Meta.PreBalances[:1]
	_, err = FromTransaction(tx, nil)
	require.ErrorIs(t, err, ErrMalformedTx)

	tx = hydratedBuy()
	tx.Message = nil
	_, err = FromTransaction(tx, nil)
	require.ErrorIs(t, err, ErrMalformedTx)
}
