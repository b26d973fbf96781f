package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType classifies an audit event
type EventType string

const (
	EventRequestCreated      EventType = "request_created"
	EventRequestDispatched   EventType = "request_dispatched"
	EventRequestSettled      EventType = "request_settled"
	EventDuplicateCallback   EventType = "duplicate_callback"
	EventDispatchRolledBack  EventType = "dispatch_rolled_back"
	EventDispatchUncommitted EventType = "dispatch_uncommitted"
	EventConfigChanged       EventType = "config_changed"
	EventPaused              EventType = "paused"
	EventUnpaused            EventType = "unpaused"
	EventFeeRateChanged      EventType = "fee_rate_changed"
	EventEmergencyWithdrawal EventType = "emergency_withdrawal"
)

// PaymentEvent is one entry in the append-only audit trail. Every state
// transition lands here for off-process reconciliation.
type PaymentEvent struct {
	ID        uuid.UUID              `db:"id" json:"id"`
	RequestID *string                `db:"request_id" json:"request_id,omitempty"`
	EventType EventType              `db:"event_type" json:"event_type"`
	Actor     string                 `db:"actor" json:"actor"`
	Protocol  *BridgeProtocol        `db:"protocol" json:"protocol,omitempty"`
	Amount    *decimal.Decimal       `db:"amount" json:"amount,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}
