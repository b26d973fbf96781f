package entities

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// BridgeProtocol identifies the delivery path of a payment request
type BridgeProtocol string

const (
	// ProtocolDirect settles on the source chain, synchronously
	ProtocolDirect BridgeProtocol = "direct"
	// ProtocolStargate delivers through a Stargate-style swap transport
	ProtocolStargate BridgeProtocol = "stargate"
	// ProtocolSquid delivers through a Squid-style bridge-call transport
	ProtocolSquid BridgeProtocol = "squid"
)

// Valid reports whether the protocol is one of the known variants
func (p BridgeProtocol) Valid() bool {
	switch p {
	case ProtocolDirect, ProtocolStargate, ProtocolSquid:
		return true
	}
	return false
}

// DispatchOutcome is the result of routing a validated payment request
type DispatchOutcome string

const (
	// OutcomeSettledImmediately means the request settled within the
	// initiating call
	OutcomeSettledImmediately DispatchOutcome = "settled_immediately"
	// OutcomePendingCallback means an external transport will deliver a
	// settlement callback later
	OutcomePendingCallback DispatchOutcome = "pending_callback"
)

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9_:\-]{1,128}$`)

// PaymentRequest is the authoritative ledger record of one payment.
// Rows are append-only; only the processed flag ever changes, false to
// true, exactly once.
type PaymentRequest struct {
	RequestID     string          `db:"request_id" json:"request_id"`
	UserAddress   string          `db:"user_address" json:"user_address"`
	SourceToken   string          `db:"source_token" json:"source_token"`
	DestToken     string          `db:"dest_token" json:"dest_token"`
	SourceAmount  decimal.Decimal `db:"source_amount" json:"source_amount"`
	FeeAmount     decimal.Decimal `db:"fee_amount" json:"fee_amount"`
	NetAmount     decimal.Decimal `db:"net_amount" json:"net_amount"`
	DestMinAmount decimal.Decimal `db:"dest_min_amount" json:"dest_min_amount"`
	SourceChainID int64           `db:"source_chain_id" json:"source_chain_id"`
	DestChainID   int64           `db:"dest_chain_id" json:"dest_chain_id"`
	Protocol      BridgeProtocol  `db:"protocol" json:"protocol"`
	Processed     bool            `db:"processed" json:"processed"`
	ProcessedAt   *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// Validate checks the ledger invariants that hold for every stored request
func (r *PaymentRequest) Validate() error {
	if !requestIDPattern.MatchString(r.RequestID) {
		return fmt.Errorf("malformed request id %q", r.RequestID)
	}
	if r.UserAddress == "" {
		return fmt.Errorf("user address is required")
	}
	if !r.SourceAmount.IsPositive() {
		return fmt.Errorf("source amount must be positive, got %s", r.SourceAmount)
	}
	if !r.Protocol.Valid() {
		return fmt.Errorf("unknown protocol %q", r.Protocol)
	}
	if r.SourceChainID == r.DestChainID && r.Protocol != ProtocolDirect {
		return fmt.Errorf("same-chain request must use the direct protocol")
	}
	if r.SourceChainID != r.DestChainID && r.Protocol == ProtocolDirect {
		return fmt.Errorf("direct protocol cannot cross chains")
	}
	return nil
}

// PaymentIntent is a caller's request to initiate a payment
type PaymentIntent struct {
	RequestID     string          `json:"request_id" binding:"required"`
	UserAddress   string          `json:"user_address" binding:"required"`
	SourceToken   string          `json:"source_token" binding:"required"`
	DestToken     string          `json:"dest_token" binding:"required"`
	SourceAmount  decimal.Decimal `json:"source_amount"`
	DestMinAmount decimal.Decimal `json:"dest_min_amount"`
	SourceChainID int64           `json:"source_chain_id"`
	DestChainID   int64           `json:"dest_chain_id"`
	Protocol      BridgeProtocol  `json:"protocol"`
}

// CallbackPayload is the opaque payload carried across the bridge and
// echoed back by the transport on delivery.
type CallbackPayload struct {
	RequestID   string          `json:"request_id"`
	UserAddress string          `json:"user_address"`
	MinAmount   decimal.Decimal `json:"min_amount"`
}

// BridgeCallback is a settlement notification from a bridge transport
type BridgeCallback struct {
	Protocol      BridgeProtocol  `json:"protocol"`
	SourceChainID int64           `json:"source_chain_id"`
	SourceAddress string          `json:"source_address"`
	Nonce         uint64          `json:"nonce"`
	Token         string          `json:"token"`
	Amount        decimal.Decimal `json:"amount"`
	Payload       CallbackPayload `json:"payload"`
}
