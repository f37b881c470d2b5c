package watch

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"stockwatch/internal/model"
	"stockwatch/pkg/log"
)

// SessionState connection state of a consumer session
type SessionState string

const (
	SessionDisconnected SessionState = "disconnected"
	SessionConnecting   SessionState = "connecting"
	SessionConnected    SessionState = "connected"
	SessionError        SessionState = "error"
)

// DefaultRecentUpdates capacity of the recent-updates ring buffer
const DefaultRecentUpdates = 50

// Notifier surfaces alerts and session failures to whatever the
// embedding application uses for display. No feedback flows back
// through it.
type Notifier interface {
	Notify(title, body string, severity model.AlertSeverity)
}

// SessionConfig per-consumer session configuration
type SessionConfig struct {
	// SubscriptionID the registry subscription this session attaches to
	SubscriptionID string

	// Filter routing filter for the subscription
	Filter Filter

	// AutoConnect connect on creation; callers then only need Close
	AutoConnect bool

	// MuteWarnings suppress warning-severity alert notifications;
	// critical alerts are always surfaced
	MuteWarnings bool

	// BufferSize recent-updates capacity, DefaultRecentUpdates if zero
	BufferSize int

	// Notifier optional notification sink
	Notifier Notifier
}

// Session per-consumer projection of the event stream: a bounded
// recent-events buffer, running counters, the active-alerts set, and
// typed handler registration. Sessions communicate with the rest of
// the system only through the registry's callback contract.
type Session struct {
	registry *Registry
	cfg      SessionConfig

	mu          sync.Mutex
	state       SessionState
	unsubscribe func()

	recent      []model.ChangeEvent
	updateCount uint64
	lastUpdate  time.Time
	alerts      []model.Alert

	nextHandlerID    int64
	snapshotHandlers map[int64]func(model.SnapshotChanged)
	movementHandlers map[int64]func(model.MovementLogged)
	unitHandlers     map[int64]func(model.UnitUpdated)
	alertHandlers    map[int64]func(model.AlertTriggered)
}

// NewSession creates a consumer session. With AutoConnect set the
// session connects immediately; a failed auto-connect leaves the
// session in the error state rather than failing construction.
func NewSession(registry *Registry, cfg SessionConfig) *Session {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultRecentUpdates
	}

	s := &Session{
		registry:         registry,
		cfg:              cfg,
		state:            SessionDisconnected,
		snapshotHandlers: make(map[int64]func(model.SnapshotChanged)),
		movementHandlers: make(map[int64]func(model.MovementLogged)),
		unitHandlers:     make(map[int64]func(model.UnitUpdated)),
		alertHandlers:    make(map[int64]func(model.AlertTriggered)),
	}

	if cfg.AutoConnect {
		if err := s.Connect(context.Background()); err != nil {
			log.WithFields(map[string]interface{}{
				"subscription": cfg.SubscriptionID,
				"error":        err.Error(),
			}).Error("Session auto-connect failed")
		}
	}

	return s
}

// Connect attaches the session to its registry subscription. Calling
// Connect on an already connected session is a no-op.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state == SessionConnected || s.state == SessionConnecting {
		s.mu.Unlock()
		return nil
	}
	s.state = SessionConnecting
	s.mu.Unlock()

	unsubscribe, err := s.registry.Subscribe(ctx, s.cfg.SubscriptionID, s.cfg.Filter, s.handleEvent)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.state = SessionError
		if s.cfg.Notifier != nil {
			s.cfg.Notifier.Notify("Stock watch connection failed", err.Error(), model.SeverityCritical)
		}
		return err
	}

	s.unsubscribe = unsubscribe
	s.state = SessionConnected
	return nil
}

// Disconnect releases the underlying subscription callback and moves
// the session to disconnected from any state.
func (s *Session) Disconnect() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.state = SessionDisconnected
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Close tears the session down; the counterpart of AutoConnect
func (s *Session) Close() {
	s.Disconnect()
}

// State returns the current session state
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RecentUpdates returns a copy of the bounded recent-events buffer
func (s *Session) RecentUpdates() []model.ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	updates := make([]model.ChangeEvent, len(s.recent))
	copy(updates, s.recent)
	return updates
}

// UpdateCount returns the running total of delivered events. Unlike
// the buffer it is never truncated.
func (s *Session) UpdateCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateCount
}

// LastUpdate returns the delivery time of the most recent event
func (s *Session) LastUpdate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUpdate
}

// ActiveAlerts returns a copy of the active-alerts set
func (s *Session) ActiveAlerts() []model.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	alerts := make([]model.Alert, len(s.alerts))
	copy(alerts, s.alerts)
	return alerts
}

// MarkAlertAsRead flips the read flag on a local alert. This is local
// state only; nothing is sent back to the alert engine. Returns false
// for unknown alert ids.
func (s *Session) MarkAlertAsRead(alertID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.alerts {
		if s.alerts[i].ID == alertID {
			s.alerts[i].IsRead = true
			return true
		}
	}
	return false
}

// OnStockLevelChange registers a handler for snapshot changes and
// returns its unregister function
func (s *Session) OnStockLevelChange(fn func(model.SnapshotChanged)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextHandlerID
	s.nextHandlerID++
	s.snapshotHandlers[id] = fn
	return s.unregister(func() { delete(s.snapshotHandlers, id) })
}

// OnMovementLogged registers a handler for movement events and returns
// its unregister function
func (s *Session) OnMovementLogged(fn func(model.MovementLogged)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextHandlerID
	s.nextHandlerID++
	s.movementHandlers[id] = fn
	return s.unregister(func() { delete(s.movementHandlers, id) })
}

// OnUnitUpdate registers a handler for unit updates and returns its
// unregister function
func (s *Session) OnUnitUpdate(fn func(model.UnitUpdated)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextHandlerID
	s.nextHandlerID++
	s.unitHandlers[id] = fn
	return s.unregister(func() { delete(s.unitHandlers, id) })
}

// OnAlertTriggered registers a handler for alert events and returns
// its unregister function
func (s *Session) OnAlertTriggered(fn func(model.AlertTriggered)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextHandlerID
	s.nextHandlerID++
	s.alertHandlers[id] = fn
	return s.unregister(func() { delete(s.alertHandlers, id) })
}

func (s *Session) unregister(remove func()) func() {
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		remove()
	}
}

// handleEvent is the session's registry callback: project the event
// into local state, then fan out to typed handlers with the same
// per-handler isolation the registry gives callbacks.
func (s *Session) handleEvent(event model.ChangeEvent) {
	s.mu.Lock()

	s.recent = append(s.recent, event)
	if len(s.recent) > s.cfg.BufferSize {
		s.recent = s.recent[len(s.recent)-s.cfg.BufferSize:]
	}
	s.updateCount++
	s.lastUpdate = time.Now()

	var notify *model.Alert
	if triggered, ok := event.(model.AlertTriggered); ok {
		s.upsertAlertLocked(triggered.Alert)
		if triggered.Alert.Severity == model.SeverityCritical || !s.cfg.MuteWarnings {
			a := triggered.Alert
			notify = &a
		}
	}

	snapshotHandlers := copyHandlers(s.snapshotHandlers)
	movementHandlers := copyHandlers(s.movementHandlers)
	unitHandlers := copyHandlers(s.unitHandlers)
	alertHandlers := copyHandlers(s.alertHandlers)
	notifier := s.cfg.Notifier
	s.mu.Unlock()

	if notify != nil && notifier != nil {
		notifier.Notify(alertTitle(notify.Type), notify.Message, notify.Severity)
	}

	switch e := event.(type) {
	case model.SnapshotChanged:
		for _, fn := range snapshotHandlers {
			s.safeHandle(func() { fn(e) })
		}
	case model.MovementLogged:
		for _, fn := range movementHandlers {
			s.safeHandle(func() { fn(e) })
		}
	case model.UnitUpdated:
		for _, fn := range unitHandlers {
			s.safeHandle(func() { fn(e) })
		}
	case model.AlertTriggered:
		for _, fn := range alertHandlers {
			s.safeHandle(func() { fn(e) })
		}
	}
}

// upsertAlertLocked replaces the alert sharing the same (product,
// warehouse, type) key, read and resolved flags included. Read state
// on the replaced alert is intentionally not carried over.
func (s *Session) upsertAlertLocked(a model.Alert) {
	key := a.Key()
	for i := range s.alerts {
		if s.alerts[i].Key() == key {
			s.alerts[i] = a
			return
		}
	}
	s.alerts = append(s.alerts, a)
}

func (s *Session) safeHandle(fn func()) {
	defer func() {
		if recovered := recover(); recovered != nil {
			log.WithFields(map[string]interface{}{
				"subscription": s.cfg.SubscriptionID,
				"error":        recovered,
				"stack":        string(debug.Stack()),
			}).Error("Session event handler panicked")
		}
	}()
	fn()
}

func copyHandlers[T any](handlers map[int64]T) []T {
	out := make([]T, 0, len(handlers))
	for _, fn := range handlers {
		out = append(out, fn)
	}
	return out
}

func alertTitle(t model.AlertType) string {
	switch t {
	case model.AlertTypeOutOfStock:
		return "Out of stock"
	case model.AlertTypeLowStock:
		return "Low stock"
	default:
		return "Stock alert"
	}
}
