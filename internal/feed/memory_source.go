package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"stockwatch/pkg/log"
	"stockwatch/pkg/queue"
)

const topicPrefix = "changefeed."

// MemorySource change feed source backed by the in-process message
// queue. Used for local runs and as the adapter shape for real
// transports: one queue topic per watched table.
type MemorySource struct {
	mq queue.MessageQueue
}

// NewMemorySource creates a memory-backed change feed source
func NewMemorySource(mq queue.MessageQueue) *MemorySource {
	return &MemorySource{mq: mq}
}

// Publish emits a raw change for a table. Producers (tests, the local
// store shim) use this to drive the feed.
func (s *MemorySource) Publish(ctx context.Context, table TableKind, change RawChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}
	return s.mq.Publish(ctx, topicPrefix+string(table), payload)
}

// Subscribe implements Source. All table topics funnel into a single
// delivery loop so the handler sees changes serially per channel.
func (s *MemorySource) Subscribe(ctx context.Context, tables []TableKind, handler ChangeHandler) (Channel, error) {
	ch := &memoryChannel{
		deliveries: make(chan delivery, 256),
		stop:       make(chan struct{}),
	}
	ch.status.Store(string(StatusConnecting))

	for _, table := range tables {
		table := table
		cancel, err := s.mq.Subscribe(ctx, topicPrefix+string(table), func(_ context.Context, _ string, message []byte) error {
			var change RawChange
			if err := json.Unmarshal(message, &change); err != nil {
				log.WithFields(map[string]interface{}{
					"table": table,
					"error": err.Error(),
				}).Warn("Dropping malformed change payload")
				return nil
			}
			select {
			case ch.deliveries <- delivery{table: table, change: change}:
			case <-ch.stop:
			}
			return nil
		})
		if err != nil {
			// No partial subscriptions: release what was bound so far.
			ch.closeCancels()
			ch.status.Store(string(StatusError))
			return nil, fmt.Errorf("failed to subscribe table %s: %w", table, err)
		}
		ch.cancels = append(ch.cancels, cancel)
	}

	go ch.pump(handler)
	ch.status.Store(string(StatusJoined))

	return ch, nil
}

type delivery struct {
	table  TableKind
	change RawChange
}

type memoryChannel struct {
	status     atomic.Value
	deliveries chan delivery
	cancels    []func()
	stop       chan struct{}
	closeOnce  sync.Once
}

func (c *memoryChannel) pump(handler ChangeHandler) {
	for {
		select {
		case d := <-c.deliveries:
			handler(d.table, d.change)
		case <-c.stop:
			return
		}
	}
}

// Status implements Channel
func (c *memoryChannel) Status() ConnStatus {
	return ConnStatus(c.status.Load().(string))
}

// Close implements Channel
func (c *memoryChannel) Close() error {
	c.closeOnce.Do(func() {
		c.closeCancels()
		close(c.stop)
		c.status.Store(string(StatusClosed))
	})
	return nil
}

func (c *memoryChannel) closeCancels() {
	for _, cancel := range c.cancels {
		cancel()
	}
	c.cancels = nil
}
