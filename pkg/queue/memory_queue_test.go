package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collector() (MessageHandler, func() [][]byte) {
	var mu sync.Mutex
	var got [][]byte

	handler := func(_ context.Context, _ string, message []byte) error {
		mu.Lock()
		got = append(got, message)
		mu.Unlock()
		return nil
	}
	return handler, func() [][]byte {
		mu.Lock()
		defer mu.Unlock()
		out := make([][]byte, len(got))
		copy(out, got)
		return out
	}
}

func TestMemoryQueue_PublishSubscribe(t *testing.T) {
	mq, err := NewMemoryQueue(nil)
	require.NoError(t, err)
	defer mq.Close()

	handler, messages := collector()
	cancel, err := mq.Subscribe(context.Background(), "test-topic", handler)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, mq.Publish(context.Background(), "test-topic", []byte("hello")))

	require.Eventually(t, func() bool {
		return len(messages()) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, []byte("hello"), messages()[0])
}

func TestMemoryQueue_BroadcastToAllSubscribers(t *testing.T) {
	mq, err := NewMemoryQueue(nil)
	require.NoError(t, err)
	defer mq.Close()

	h1, m1 := collector()
	h2, m2 := collector()

	cancel1, err := mq.Subscribe(context.Background(), "broadcast", h1)
	require.NoError(t, err)
	defer cancel1()

	cancel2, err := mq.Subscribe(context.Background(), "broadcast", h2)
	require.NoError(t, err)
	defer cancel2()

	require.NoError(t, mq.Publish(context.Background(), "broadcast", []byte("fan-out")))

	require.Eventually(t, func() bool {
		return len(m1()) == 1 && len(m2()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryQueue_CancelStopsDelivery(t *testing.T) {
	mq, err := NewMemoryQueue(nil)
	require.NoError(t, err)
	defer mq.Close()

	handler, messages := collector()
	cancel, err := mq.Subscribe(context.Background(), "cancellable", handler)
	require.NoError(t, err)

	cancel()
	// Second cancel is a no-op.
	cancel()

	require.NoError(t, mq.Publish(context.Background(), "cancellable", []byte("dropped")))

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, messages())
}

func TestMemoryQueue_PreservesOrderPerSubscriber(t *testing.T) {
	mq, err := NewMemoryQueue(nil)
	require.NoError(t, err)
	defer mq.Close()

	handler, messages := collector()
	cancel, err := mq.Subscribe(context.Background(), "ordered", handler)
	require.NoError(t, err)
	defer cancel()

	payloads := [][]byte{[]byte("1"), []byte("2"), []byte("3")}
	for _, p := range payloads {
		require.NoError(t, mq.Publish(context.Background(), "ordered", p))
	}

	require.Eventually(t, func() bool {
		return len(messages()) == len(payloads)
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, payloads, messages())
}

func TestMemoryQueue_Close(t *testing.T) {
	mq, err := NewMemoryQueue(nil)
	require.NoError(t, err)

	require.NoError(t, mq.Close())
	// Close is idempotent.
	require.NoError(t, mq.Close())

	err = mq.Publish(context.Background(), "closed", []byte("late"))
	assert.ErrorIs(t, err, ErrQueueClosed)

	_, err = mq.Subscribe(context.Background(), "closed", func(context.Context, string, []byte) error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)

	assert.ErrorIs(t, mq.Health(), ErrQueueClosed)
}

func TestMemoryQueue_Health(t *testing.T) {
	mq, err := NewMemoryQueue(&MemoryQueueConfig{BufferSize: 8, Timeout: time.Second})
	require.NoError(t, err)
	defer mq.Close()

	assert.NoError(t, mq.Health())
}
