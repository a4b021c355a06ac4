package dedup

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_ReserveAndDuplicate(t *testing.T) {
	m := NewMemory(100)

	require.True(t, m.TryReserve("sig1", "mintA"))
	assert.False(t, m.TryReserve("sig1", "mintA"))

	// Same signature, different mint is a distinct fingerprint.
	assert.True(t, m.TryReserve("sig1", "mintB"))
	// Same mint, different signature too.
	assert.True(t, m.TryReserve("sig2", "mintA"))

	stats := m.Stats()
	assert.Equal(t, int64(3), stats.Reserved)
	assert.Equal(t, int64(1), stats.Duplicates)
	assert.Equal(t, 3, m.ProcessedCount())
}

func TestMemory_EvictsOldestHalf(t *testing.T) {
	m := NewMemory(10)

	for i := 0; i < 11; i++ {
		require.True(t, m.TryReserve(fmt.Sprintf("sig%d", i), "mint"))
	}

	// Crossing capacity dropped the oldest half; early fingerprints are
	// reservable again, recent ones still are not.
	assert.True(t, m.TryReserve("sig0", "mint"))
	assert.False(t, m.TryReserve("sig10", "mint"))
	assert.Equal(t, int64(5), m.Stats().Evictions)
}

func TestMemory_DefaultCapacity(t *testing.T) {
	m := NewMemory(0)
	assert.Equal(t, DefaultSignatureCapacity, m.capacity)
}

func TestMemory_ConcurrentReserveGrantsOnce(t *testing.T) {
	m := NewMemory(1000)

	const workers = 16
	granted := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		go func() {
			granted <- m.TryReserve("contended-sig", "contended-mint")
		}()
	}

	var wins int
	for i := 0; i < workers; i++ {
		if <-granted {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}
