package queue

import (
	"context"
	"sync"
	"time"
)

// MemoryQueue memory-based broadcast queue implementation. Each
// subscriber owns a buffered channel; publishing copies the message to
// every subscriber of the topic so independent consumers never compete
// for messages.
type MemoryQueue struct {
	topics map[string]*topic
	config *MemoryQueueConfig
	mu     sync.RWMutex
	closed bool
}

type topic struct {
	name   string
	mu     sync.RWMutex
	subs   map[int64]*subscriber
	nextID int64
}

type subscriber struct {
	messages chan []byte
	done     chan struct{}
	once     sync.Once
}

// MemoryQueueConfig memory queue configuration
type MemoryQueueConfig struct {
	BufferSize int           `json:"buffer_size"`
	Timeout    time.Duration `json:"timeout"`
}

// NewMemoryQueue creates a new memory queue instance
func NewMemoryQueue(config *MemoryQueueConfig) (*MemoryQueue, error) {
	if config == nil {
		config = &MemoryQueueConfig{
			BufferSize: 256,
			Timeout:    30 * time.Second,
		}
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 256
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &MemoryQueue{
		topics: make(map[string]*topic),
		config: config,
	}, nil
}

// Publish publishes a message to every subscriber of the topic
func (mq *MemoryQueue) Publish(ctx context.Context, topicName string, message []byte) error {
	mq.mu.Lock()
	if mq.closed {
		mq.mu.Unlock()
		return ErrQueueClosed
	}
	t := mq.getOrCreateTopic(topicName)
	mq.mu.Unlock()

	t.mu.RLock()
	subs := make([]*subscriber, 0, len(t.subs))
	for _, s := range t.subs {
		subs = append(subs, s)
	}
	t.mu.RUnlock()

	timer := time.NewTimer(mq.config.Timeout)
	defer timer.Stop()

	for _, s := range subs {
		select {
		case s.messages <- message:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return ErrPublishTimeout
		}
	}
	return nil
}

// Subscribe registers a handler for the topic and starts a consuming
// goroutine. Handler errors are swallowed so one bad message does not
// stop the subscription.
func (mq *MemoryQueue) Subscribe(ctx context.Context, topicName string, handler MessageHandler) (func(), error) {
	mq.mu.Lock()
	if mq.closed {
		mq.mu.Unlock()
		return nil, ErrQueueClosed
	}
	t := mq.getOrCreateTopic(topicName)
	mq.mu.Unlock()

	sub := &subscriber{
		messages: make(chan []byte, mq.config.BufferSize),
		done:     make(chan struct{}),
	}

	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = sub
	t.mu.Unlock()

	cancel := func() {
		sub.once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
			close(sub.done)
		})
	}

	go func() {
		for {
			select {
			case message := <-sub.messages:
				// Errors are the handler's problem; keep consuming.
				_ = handler(ctx, topicName, message)
			case <-sub.done:
				return
			case <-ctx.Done():
				cancel()
				return
			}
		}
	}()

	return cancel, nil
}

// Close closes the queue and detaches all subscribers
func (mq *MemoryQueue) Close() error {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	if mq.closed {
		return nil
	}
	mq.closed = true

	for _, t := range mq.topics {
		t.mu.Lock()
		for id, s := range t.subs {
			delete(t.subs, id)
			s.once.Do(func() { close(s.done) })
		}
		t.mu.Unlock()
	}
	mq.topics = make(map[string]*topic)
	return nil
}

// Health checks the health of the queue
func (mq *MemoryQueue) Health() error {
	mq.mu.RLock()
	defer mq.mu.RUnlock()

	if mq.closed {
		return ErrQueueClosed
	}
	return nil
}

// caller must hold mq.mu
func (mq *MemoryQueue) getOrCreateTopic(name string) *topic {
	t, exists := mq.topics[name]
	if !exists {
		t = &topic{
			name: name,
			subs: make(map[int64]*subscriber),
		}
		mq.topics[name] = t
	}
	return t
}
