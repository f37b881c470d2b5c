package feed

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/pkg/queue"
)

func newTestSource(t *testing.T) (*MemorySource, *queue.MemoryQueue) {
	mq, err := queue.NewMemoryQueue(nil)
	require.NoError(t, err)
	t.Cleanup(func() { mq.Close() })
	return NewMemorySource(mq), mq
}

type changeRecorder struct {
	mu      sync.Mutex
	changes []RawChange
	tables  []TableKind
}

func (r *changeRecorder) handler() ChangeHandler {
	return func(table TableKind, change RawChange) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.tables = append(r.tables, table)
		r.changes = append(r.changes, change)
	}
}

func (r *changeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

func TestMemorySource_PublishReachesSubscriber(t *testing.T) {
	source, _ := newTestSource(t)

	rec := &changeRecorder{}
	ch, err := source.Subscribe(context.Background(), []TableKind{TableMovements}, rec.handler())
	require.NoError(t, err)
	defer ch.Close()

	assert.Equal(t, StatusJoined, ch.Status())

	change := RawChange{Kind: EventInsert, New: json.RawMessage(`{"product_id":"p1"}`)}
	require.NoError(t, source.Publish(context.Background(), TableMovements, change))

	require.Eventually(t, func() bool {
		return rec.count() == 1
	}, time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, TableMovements, rec.tables[0])
	assert.Equal(t, EventInsert, rec.changes[0].Kind)
}

func TestMemorySource_MultipleTablesOneChannel(t *testing.T) {
	source, _ := newTestSource(t)

	rec := &changeRecorder{}
	ch, err := source.Subscribe(context.Background(),
		[]TableKind{TableMovements, TableUnits}, rec.handler())
	require.NoError(t, err)
	defer ch.Close()

	require.NoError(t, source.Publish(context.Background(), TableMovements,
		RawChange{Kind: EventInsert, New: json.RawMessage(`{}`)}))
	require.NoError(t, source.Publish(context.Background(), TableUnits,
		RawChange{Kind: EventUpdate, New: json.RawMessage(`{}`)}))

	require.Eventually(t, func() bool {
		return rec.count() == 2
	}, time.Second, 10*time.Millisecond)
}

func TestMemorySource_UnwatchedTableIgnored(t *testing.T) {
	source, _ := newTestSource(t)

	rec := &changeRecorder{}
	ch, err := source.Subscribe(context.Background(), []TableKind{TableMovements}, rec.handler())
	require.NoError(t, err)
	defer ch.Close()

	require.NoError(t, source.Publish(context.Background(), TableUnits,
		RawChange{Kind: EventInsert, New: json.RawMessage(`{}`)}))

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, rec.count())
}

func TestMemorySource_CloseStopsDelivery(t *testing.T) {
	source, _ := newTestSource(t)

	rec := &changeRecorder{}
	ch, err := source.Subscribe(context.Background(), []TableKind{TableMovements}, rec.handler())
	require.NoError(t, err)

	require.NoError(t, ch.Close())
	assert.Equal(t, StatusClosed, ch.Status())
	// Close is idempotent.
	require.NoError(t, ch.Close())

	require.NoError(t, source.Publish(context.Background(), TableMovements,
		RawChange{Kind: EventInsert, New: json.RawMessage(`{}`)}))

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, rec.count())
}

func TestMemorySource_MalformedPayloadDropped(t *testing.T) {
	source, mq := newTestSource(t)

	rec := &changeRecorder{}
	ch, err := source.Subscribe(context.Background(), []TableKind{TableMovements}, rec.handler())
	require.NoError(t, err)
	defer ch.Close()

	// Bypass Publish to inject garbage on the wire.
	require.NoError(t, mq.Publish(context.Background(), "changefeed.stock_movements", []byte("{broken")))

	good := RawChange{Kind: EventInsert, New: json.RawMessage(`{}`)}
	require.NoError(t, source.Publish(context.Background(), TableMovements, good))

	require.Eventually(t, func() bool {
		return rec.count() == 1
	}, time.Second, 10*time.Millisecond)
}
