package idgen

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnowflakeRejectsBadNode(t *testing.T) {
	_, err := NewSnowflake(-1)
	assert.Error(t, err)
	_, err = NewSnowflake(maxNodeID + 1)
	assert.Error(t, err)
}

func TestGenerateUniqueAcrossGoroutines(t *testing.T) {
	sf, err := NewSnowflake(3)
	require.NoError(t, err)

	const workers, perWorker = 8, 500
	ids := make(chan int64, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				ids <- sf.Generate()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]struct{}, workers*perWorker)
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %d", id)
		seen[id] = struct{}{}
	}
}

func TestSequenceRollsIntoNextMillisecond(t *testing.T) {
	sf, err := NewSnowflake(1)
	require.NoError(t, err)

	clock := epoch + 1000
	calls := 0
	sf.now = func() int64 {
		calls++
		// 序列号耗尽后时钟前进
		if calls > maxSequence+2 {
			return clock + 1
		}
		return clock
	}

	var last int64
	for i := 0; i <= maxSequence+1; i++ {
		id := sf.Generate()
		assert.Greater(t, id, last)
		last = id
	}
	assert.Equal(t, clock+1, sf.timestamp)
}

func TestReceiptNoPrefix(t *testing.T) {
	no := GenerateReceiptNo(PrefixIncome)
	assert.True(t, strings.HasPrefix(no, PrefixIncome))
	assert.NotEqual(t, no, GenerateReceiptNo(PrefixIncome))
	assert.True(t, strings.HasPrefix(GenerateEventKey(), PrefixEvent))
}
