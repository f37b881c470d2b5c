package watch

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"stockwatch/internal/feed"
	"stockwatch/internal/model"
	"stockwatch/internal/monitor"
	"stockwatch/internal/service/alert"
	"stockwatch/internal/service/stock"
	"stockwatch/pkg/breaker"
	"stockwatch/pkg/log"
	"stockwatch/pkg/snowflake"

	oteltrace "go.opentelemetry.io/otel/trace"
)

// Callback receives classified change events for a subscription
type Callback func(event model.ChangeEvent)

// Filter routing filter bound to a subscription. Category flags select
// which table categories the underlying channel listens to; the
// optional IDs narrow delivery to one warehouse or product.
type Filter struct {
	WarehouseID          string `json:"warehouse_id,omitempty"`
	ProductID            string `json:"product_id,omitempty"`
	IncludeMovements     bool   `json:"include_movements"`
	IncludeSerialNumbers bool   `json:"include_serial_numbers"`
	IncludeAlerts        bool   `json:"include_alerts"`
}

// Tables returns the table categories the filter listens to
func (f Filter) Tables() []feed.TableKind {
	var tables []feed.TableKind
	if f.IncludeMovements {
		tables = append(tables, feed.TableMovements, feed.TableReceiveLog, feed.TableTransfers)
	}
	if f.IncludeSerialNumbers {
		tables = append(tables, feed.TableUnits)
	}
	if f.IncludeAlerts {
		tables = append(tables, feed.TableSnapshots)
	}
	return tables
}

// Matches reports whether an event passes the category toggles and
// the routing predicate. Directly injected and derived events never
// went through table selection, so the category check happens here.
func (f Filter) Matches(event model.ChangeEvent) bool {
	switch event.(type) {
	case model.MovementLogged:
		if !f.IncludeMovements {
			return false
		}
	case model.UnitUpdated:
		if !f.IncludeSerialNumbers {
			return false
		}
	case model.SnapshotChanged, model.AlertTriggered:
		if !f.IncludeAlerts {
			return false
		}
	}

	warehouseID, productID := event.RoutingKey()
	if f.WarehouseID != "" && warehouseID != "" && warehouseID != f.WarehouseID {
		return false
	}
	if f.ProductID != "" && productID != "" && productID != f.ProductID {
		return false
	}
	return true
}

type callbackEntry struct {
	id int64
	fn Callback
}

type subscription struct {
	id        string
	filter    Filter
	channel   feed.Channel
	callbacks []*callbackEntry
}

// Registry owns the mapping from subscription id to feed channel and
// callbacks. It is an explicitly constructed instance: whoever
// bootstraps the application creates one and hands it to consumers.
// All map mutation is serialized behind the mutex; dispatch runs
// outside the lock on a copied callback list.
type Registry struct {
	source      feed.Source
	query       stock.QueryService
	settings    *alert.Settings
	ids         *snowflake.IDGenerator
	lookupGuard *breaker.CircuitBreaker
	metrics     *monitor.Metrics
	tracer      *monitor.Tracer

	checkTimeout time.Duration

	mu          sync.Mutex
	subs        map[string]*subscription
	classifiers map[feed.TableKind]*feed.Classifier
	nextEntryID int64
}

// Option configures the registry
type Option func(*Registry)

// WithMetrics attaches prometheus collectors to the registry
func WithMetrics(m *monitor.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithTracer attaches spans to feed deliveries and alert checks
func WithTracer(t *monitor.Tracer) Option {
	return func(r *Registry) { r.tracer = t }
}

// WithCheckTimeout overrides the snapshot lookup timeout used during
// async alert checks
func WithCheckTimeout(d time.Duration) Option {
	return func(r *Registry) { r.checkTimeout = d }
}

// NewRegistry creates a subscription registry
func NewRegistry(source feed.Source, query stock.QueryService, settings *alert.Settings, ids *snowflake.IDGenerator, opts ...Option) *Registry {
	r := &Registry{
		source:       source,
		query:        query,
		settings:     settings,
		ids:          ids,
		checkTimeout: 5 * time.Second,
		subs:         make(map[string]*subscription),
		classifiers:  make(map[feed.TableKind]*feed.Classifier),
		lookupGuard: breaker.NewCircuitBreaker("stock-query", breaker.Config{
			MaxRequests: 3,
			Interval:    time.Minute,
			Timeout:     15 * time.Second,
		}),
	}

	for _, table := range []feed.TableKind{
		feed.TableMovements, feed.TableUnits, feed.TableSnapshots,
		feed.TableReceiveLog, feed.TableTransfers,
	} {
		r.classifiers[table] = feed.NewClassifier(table, ids)
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe attaches a callback under the given subscription id,
// creating the underlying feed channel on first use. Subsequent calls
// with the same id reuse the channel and only append the callback.
// The returned unsubscribe function removes just this callback and is
// safe to call more than once; when the last callback is removed the
// channel is destroyed.
func (r *Registry) Subscribe(ctx context.Context, id string, filter Filter, callback Callback) (func(), error) {
	r.mu.Lock()

	sub, exists := r.subs[id]
	if !exists {
		// Channel creation happens outside the callback path but under
		// the lock so concurrent Subscribe calls for the same id cannot
		// race into two channels.
		channel, err := r.source.Subscribe(ctx, filter.Tables(), func(table feed.TableKind, change feed.RawChange) {
			r.handleChange(id, table, change)
		})
		if err != nil {
			// No partial state: nothing was stored yet.
			r.mu.Unlock()
			return nil, err
		}

		sub = &subscription{
			id:      id,
			filter:  filter,
			channel: channel,
		}
		r.subs[id] = sub

		log.WithFields(map[string]interface{}{
			"subscription": id,
			"tables":       filter.Tables(),
		}).Info("Subscription channel created")
	}

	entry := &callbackEntry{id: r.nextEntryID, fn: callback}
	r.nextEntryID++
	sub.callbacks = append(sub.callbacks, entry)
	count := len(r.subs)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.SetActiveSubscriptions(count)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			r.removeCallback(id, entry.id)
		})
	}, nil
}

// Unsubscribe destroys the whole subscription: all callbacks are
// dropped and the channel is released. Unknown ids are a no-op.
func (r *Registry) Unsubscribe(id string) {
	r.mu.Lock()
	sub, exists := r.subs[id]
	if exists {
		delete(r.subs, id)
	}
	count := len(r.subs)
	r.mu.Unlock()

	if !exists {
		return
	}

	r.closeChannel(sub)
	if r.metrics != nil {
		r.metrics.SetActiveSubscriptions(count)
	}
}

// ConnectionStatus reports each channel's connection state
func (r *Registry) ConnectionStatus() map[string]feed.ConnStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := make(map[string]feed.ConnStatus, len(r.subs))
	for id, sub := range r.subs {
		status[id] = sub.channel.Status()
	}
	return status
}

// Cleanup destroys every subscription. Safe to call repeatedly; used
// at shutdown to release all channel resources.
func (r *Registry) Cleanup() {
	r.mu.Lock()
	subs := make([]*subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	r.subs = make(map[string]*subscription)
	r.mu.Unlock()

	for _, sub := range subs {
		r.closeChannel(sub)
	}

	if r.metrics != nil {
		r.metrics.SetActiveSubscriptions(0)
	}

	if len(subs) > 0 {
		log.WithFields(map[string]interface{}{
			"count": len(subs),
		}).Info("All subscriptions cleaned up")
	}
}

// AlertThresholds returns the current alert thresholds
func (r *Registry) AlertThresholds() alert.Thresholds {
	return r.settings.Thresholds()
}

// UpdateAlertThresholds applies a partial threshold update. Existing
// alerts are not re-evaluated.
func (r *Registry) UpdateAlertThresholds(patch alert.ThresholdPatch) alert.Thresholds {
	t := r.settings.Update(patch)
	log.WithFields(map[string]interface{}{
		"low_stock":    t.LowStock,
		"out_of_stock": t.OutOfStock,
		"overstock":    t.Overstock,
	}).Info("Alert thresholds updated")
	return t
}

// ProcessTransaction re-broadcasts a locally-known stock movement as a
// MovementLogged event and triggers its alert check. Producers that
// write to the store directly (bypassing the change feed) call this
// after completing their write so subscribers still see the change.
func (r *Registry) ProcessTransaction(ctx context.Context, movement *model.StockMovement) {
	event := model.MovementLogged{
		EventMeta: model.EventMeta{
			EventID:     r.ids.NextID(),
			Timestamp:   time.Now(),
			WarehouseID: movement.WarehouseID,
			ProductID:   movement.ProductID,
		},
		MovementType: movement.MovementType,
		Quantity:     movement.Quantity,
		Reference:    movement.Reference,
		Notes:        movement.Notes,
	}

	ids := r.subscriptionIDs()
	for _, id := range ids {
		r.dispatch(id, event)
	}

	go r.alertCheck(ids, movement.ProductID, movement.WarehouseID)
}

// handleChange is the per-channel feed callback: classify, fan out,
// and chain the async follow-ups. Nothing here may propagate an error
// or panic back into the transport.
func (r *Registry) handleChange(id string, table feed.TableKind, change feed.RawChange) {
	var span oteltrace.Span
	if r.tracer != nil {
		_, span = r.tracer.StartFeedSpan(context.Background(), string(table), string(change.Kind))
		defer span.End()
	}

	if r.metrics != nil {
		r.metrics.RecordFeedChange(string(table), string(change.Kind))
	}

	r.mu.Lock()
	classifier := r.classifiers[table]
	r.mu.Unlock()

	event, err := classifier.Classify(change)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"subscription": id,
			"table":        table,
			"error":        err.Error(),
		}).Warn("Failed to classify change")
		if r.tracer != nil {
			r.tracer.RecordError(span, err)
		}
		if r.metrics != nil {
			r.metrics.RecordClassifyFailure(string(table))
		}
		return
	}

	// Primary dispatch happens immediately; derived events arrive out
	// of band once the snapshot lookup resolves.
	r.dispatch(id, event)

	switch event.(type) {
	case model.MovementLogged, model.SnapshotChanged:
		warehouseID, productID := event.RoutingKey()
		if productID != "" && warehouseID != "" {
			go r.alertCheck([]string{id}, productID, warehouseID)
		}
	}
}

// dispatch invokes every callback of a subscription, synchronously and
// in registration order. Events that fail the routing filter are
// skipped. Each invocation is isolated: a panicking callback is logged
// and the remaining callbacks still run.
func (r *Registry) dispatch(id string, event model.ChangeEvent) {
	r.mu.Lock()
	sub, exists := r.subs[id]
	if !exists {
		r.mu.Unlock()
		return
	}
	filter := sub.filter
	callbacks := make([]*callbackEntry, len(sub.callbacks))
	copy(callbacks, sub.callbacks)
	r.mu.Unlock()

	if !filter.Matches(event) {
		return
	}

	for _, entry := range callbacks {
		r.safeInvoke(id, entry, event)
	}
}

func (r *Registry) safeInvoke(id string, entry *callbackEntry, event model.ChangeEvent) {
	defer func() {
		if recovered := recover(); recovered != nil {
			log.WithFields(map[string]interface{}{
				"subscription": id,
				"event_type":   event.EventType(),
				"error":        recovered,
				"stack":        string(debug.Stack()),
			}).Error("Subscription callback panicked")
			if r.metrics != nil {
				r.metrics.RecordCallbackFailure(id)
			}
		}
	}()

	entry.fn(event)
	if r.metrics != nil {
		r.metrics.RecordDispatch(id, string(event.EventType()))
	}
}

// alertCheck fetches a fresh snapshot, re-broadcasts it as a
// recalculation notice, and raises threshold alerts. Lookup failures
// are logged and swallowed: a stale alert is preferable to crashing
// the feed path.
func (r *Registry) alertCheck(ids []string, productID, warehouseID string) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), r.checkTimeout)
	defer cancel()

	var span oteltrace.Span
	if r.tracer != nil {
		ctx, span = r.tracer.StartAlertCheckSpan(ctx, productID, warehouseID)
		defer span.End()
	}

	if err := r.query.Invalidate(ctx, productID, warehouseID); err != nil {
		log.WithFields(map[string]interface{}{
			"product_id":   productID,
			"warehouse_id": warehouseID,
			"error":        err.Error(),
		}).Debug("Snapshot invalidation failed")
	}

	var snapshot *model.StockSnapshot
	err := r.lookupGuard.Execute(ctx, func() error {
		var lookupErr error
		snapshot, lookupErr = r.query.GetSnapshot(ctx, productID, warehouseID)
		return lookupErr
	})
	if err != nil {
		log.WithFields(map[string]interface{}{
			"product_id":   productID,
			"warehouse_id": warehouseID,
			"error":        err.Error(),
		}).Warn("Alert check snapshot lookup failed")
		if r.tracer != nil {
			r.tracer.RecordError(span, err)
		}
		if r.metrics != nil {
			r.metrics.ObserveAlertCheck(time.Since(start), "lookup_failed")
		}
		return
	}

	notice := model.SnapshotChanged{
		EventMeta: model.EventMeta{
			EventID:     r.ids.NextID(),
			Timestamp:   time.Now(),
			WarehouseID: warehouseID,
			ProductID:   productID,
		},
		Snapshot: *snapshot,
	}
	for _, id := range ids {
		r.dispatch(id, notice)
	}

	for _, a := range alert.Evaluate(snapshot, r.settings.Thresholds()) {
		if r.metrics != nil {
			r.metrics.RecordAlert(string(a.Type), string(a.Severity))
		}

		triggered := model.AlertTriggered{
			EventMeta: model.EventMeta{
				EventID:     r.ids.NextID(),
				Timestamp:   time.Now(),
				WarehouseID: warehouseID,
				ProductID:   productID,
			},
			Alert: a,
		}
		for _, id := range ids {
			r.dispatch(id, triggered)
		}
	}

	if r.metrics != nil {
		r.metrics.ObserveAlertCheck(time.Since(start), "ok")
	}
}

func (r *Registry) removeCallback(id string, entryID int64) {
	r.mu.Lock()
	sub, exists := r.subs[id]
	if !exists {
		r.mu.Unlock()
		return
	}

	for i, entry := range sub.callbacks {
		if entry.id == entryID {
			sub.callbacks = append(sub.callbacks[:i], sub.callbacks[i+1:]...)
			break
		}
	}

	var toClose *subscription
	if len(sub.callbacks) == 0 {
		delete(r.subs, id)
		toClose = sub
	}
	count := len(r.subs)
	r.mu.Unlock()

	if toClose != nil {
		r.closeChannel(toClose)
		if r.metrics != nil {
			r.metrics.SetActiveSubscriptions(count)
		}
	}
}

func (r *Registry) subscriptionIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) closeChannel(sub *subscription) {
	if err := sub.channel.Close(); err != nil {
		log.WithFields(map[string]interface{}{
			"subscription": sub.id,
			"error":        err.Error(),
		}).Warn("Failed to close feed channel")
	}
}
