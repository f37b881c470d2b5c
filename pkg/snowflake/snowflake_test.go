package snowflake

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDGenerator(t *testing.T) {
	gen, err := NewIDGenerator(1)
	assert.NoError(t, err)
	assert.NotNil(t, gen)

	gen, err = NewIDGenerator(-1)
	assert.Error(t, err)
	assert.Nil(t, gen)

	gen, err = NewIDGenerator(nodeMask + 1)
	assert.Error(t, err)
	assert.Nil(t, gen)

	gen, err = NewIDGenerator(0)
	assert.NoError(t, err)
	assert.NotNil(t, gen)
}

func TestNextID_Unique(t *testing.T) {
	gen, err := NewIDGenerator(1)
	require.NoError(t, err)

	seen := make(map[int64]bool)
	for i := 0; i < 1000; i++ {
		id := gen.NextID()
		assert.Positive(t, id)
		assert.False(t, seen[id], "Duplicate ID generated: %d", id)
		seen[id] = true
	}
}

func TestNextID_Concurrent(t *testing.T) {
	gen, err := NewIDGenerator(1)
	require.NoError(t, err)

	const goroutines = 10
	const perGoroutine = 100

	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				id := gen.NextID()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perGoroutine)
}

func TestParseID(t *testing.T) {
	gen, err := NewIDGenerator(42)
	require.NoError(t, err)

	id := gen.NextID()
	timestamp, nodeID, step := ParseID(id)

	assert.Equal(t, int64(42), nodeID)
	assert.GreaterOrEqual(t, step, int64(0))
	assert.Greater(t, timestamp, Epoch)
}
