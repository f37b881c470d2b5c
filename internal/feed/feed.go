package feed

import (
	"context"
	"encoding/json"
)

// TableKind watched table category. One classifier is bound per kind
// at subscription-setup time.
type TableKind string

const (
	TableMovements  TableKind = "stock_movements"
	TableUnits      TableKind = "stock_units"
	TableSnapshots  TableKind = "stock_snapshots"
	TableReceiveLog TableKind = "receive_log"
	TableTransfers  TableKind = "stock_transfers"
)

// EventKind low-level change kind reported by the store
type EventKind string

const (
	EventInsert EventKind = "insert"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
)

// RawChange raw change notification as delivered by the underlying
// store. The wire format of the records is opaque here; classification
// decodes them per table kind.
type RawChange struct {
	Kind EventKind       `json:"kind"`
	New  json.RawMessage `json:"new,omitempty"`
	Old  json.RawMessage `json:"old,omitempty"`
}

// ChangeHandler receives raw changes from a channel. The transport
// invokes it serially per channel.
type ChangeHandler func(table TableKind, change RawChange)

// ConnStatus connection state of a channel
type ConnStatus string

const (
	StatusConnecting ConnStatus = "connecting"
	StatusJoined     ConnStatus = "joined"
	StatusError      ConnStatus = "error"
	StatusClosed     ConnStatus = "closed"
)

// Source is the change feed the service consumes. Implementations
// adapt whatever transport the underlying store provides.
type Source interface {
	// Subscribe opens a channel delivering changes for the given
	// tables. Changes are delivered serially per channel; distinct
	// channels run independently.
	Subscribe(ctx context.Context, tables []TableKind, handler ChangeHandler) (Channel, error)
}

// Channel an active subscription to a set of table categories
type Channel interface {
	// Status reports the underlying connection state
	Status() ConnStatus

	// Close tears the channel down; safe to call repeatedly
	Close() error
}
