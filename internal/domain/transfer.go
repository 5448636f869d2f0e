package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferType enumerates the supported transfer rails.
type TransferType string

const (
	TransferTypeInternal      TransferType = "internal"
	TransferTypeExternal      TransferType = "external"
	TransferTypeWire          TransferType = "wire"
	TransferTypeACH           TransferType = "ach"
	TransferTypeP2P           TransferType = "p2p"
	TransferTypeInternational TransferType = "international"
)

// TransferStatus enumerates the transfer state machine. pending is the only
// non-terminal persisted state; completed, failed and cancelled are final.
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusFailed    TransferStatus = "failed"
	TransferStatusCancelled TransferStatus = "cancelled"
)

// IsValidTransferType reports whether t is a member of the closed transfer type set.
func IsValidTransferType(t TransferType) bool {
	switch t {
	case TransferTypeInternal, TransferTypeExternal, TransferTypeWire,
		TransferTypeACH, TransferTypeP2P, TransferTypeInternational:
		return true
	}
	return false
}

// RequiresInternalDestination reports whether the transfer type moves money
// between two accounts held in this ledger. internal and p2p credit a
// destination account here; the remaining rails are debit-only from the
// engine's perspective and settle through an external network.
func (t TransferType) RequiresInternalDestination() bool {
	return t == TransferTypeInternal || t == TransferTypeP2P
}

// IsTerminal reports whether s allows no further transitions.
func (s TransferStatus) IsTerminal() bool {
	return s == TransferStatusCompleted || s == TransferStatusFailed || s == TransferStatusCancelled
}

// Transfer represents one funds movement instruction between accounts.
// TotalAmount is always Amount + Fee; the source is debited TotalAmount and,
// for transfers with an internal destination, the destination is credited
// Amount (the fee is not forwarded).
type Transfer struct {
	ID                     uuid.UUID       `json:"transfer_id"`
	ReferenceNumber        string          `json:"reference_number"`
	FromAccountID          uuid.UUID       `json:"from_account_id"`
	ToAccountID            *uuid.UUID      `json:"to_account_id,omitempty"`
	Type                   TransferType    `json:"transfer_type"`
	Amount                 decimal.Decimal `json:"amount"`
	Fee                    decimal.Decimal `json:"fee"`
	TotalAmount            decimal.Decimal `json:"total_amount"`
	Currency               string          `json:"currency"`
	Status                 TransferStatus  `json:"status"`
	FailureReason          *string         `json:"failure_reason,omitempty"`
	RecipientName          *string         `json:"recipient_name,omitempty"`
	RecipientAccountNumber *string         `json:"recipient_account_number,omitempty"`
	RecipientBankName      *string         `json:"recipient_bank_name,omitempty"`
	Description            string          `json:"description"`
	ScheduledDate          *time.Time      `json:"scheduled_date,omitempty"`
	CompletedAt            *time.Time      `json:"completed_at,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// TransferRequest is the DTO for initiating a transfer.
type TransferRequest struct {
	FromAccountID          uuid.UUID       `json:"from_account_id"`
	ToAccountID            *uuid.UUID      `json:"to_account_id,omitempty"`
	Amount                 decimal.Decimal `json:"amount"`
	Fee                    decimal.Decimal `json:"fee"`
	TransferType           TransferType    `json:"transfer_type"`
	Currency               string          `json:"currency,omitempty"`
	RecipientName          *string         `json:"recipient_name,omitempty"`
	RecipientAccountNumber *string         `json:"recipient_account_number,omitempty"`
	RecipientBankName      *string         `json:"recipient_bank_name,omitempty"`
	Description            string          `json:"description,omitempty"`
	ScheduledDate          *time.Time      `json:"scheduled_date,omitempty"`
}

// TransferEvent is the message payload published after a transfer reaches a
// terminal state. Consumed by reporting and notification services.
type TransferEvent struct {
	TransferID      uuid.UUID       `json:"transfer_id"`
	ReferenceNumber string          `json:"reference_number"`
	Status          TransferStatus  `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Fee             decimal.Decimal `json:"fee"`
	FailureReason   *string         `json:"failure_reason,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}
