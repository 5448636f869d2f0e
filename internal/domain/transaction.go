package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType enumerates the supported journal entry types.
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeTransfer   TransactionType = "transfer"
	TransactionTypePayment    TransactionType = "payment"
	TransactionTypeFee        TransactionType = "fee"
	TransactionTypeInterest   TransactionType = "interest"
	TransactionTypeRefund     TransactionType = "refund"
	TransactionTypeAdjustment TransactionType = "adjustment"
)

// TransactionStatus enumerates journal entry states. Once a transaction is
// completed, the record and its balance_after snapshot are immutable;
// corrections append a new adjustment entry rather than editing history.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
	TransactionStatusReversed  TransactionStatus = "reversed"
)

// Transaction is one immutable journal entry for a balance mutation.
// Amount is signed: negative for debits, positive for credits.
// RelatedAccountID links the counter-leg of a transfer, when one exists.
type Transaction struct {
	ID               uuid.UUID         `json:"transaction_id"`
	ReferenceNumber  string            `json:"reference_number"`
	AccountID        uuid.UUID         `json:"account_id"`
	RelatedAccountID *uuid.UUID        `json:"related_account_id,omitempty"`
	Type             TransactionType   `json:"type"`
	Amount           decimal.Decimal   `json:"amount"`
	Currency         string            `json:"currency"`
	BalanceAfter     decimal.Decimal   `json:"balance_after"`
	Status           TransactionStatus `json:"status"`
	Description      string            `json:"description"`
	CreatedAt        time.Time         `json:"created_at"`
}

// TransactionFilter controls journal queries for one account.
type TransactionFilter struct {
	Type   TransactionType
	Status TransactionStatus
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// TransactionSummary aggregates journal activity for an account over a range.
type TransactionSummary struct {
	AccountID    uuid.UUID       `json:"account_id"`
	Count        int64           `json:"count"`
	TotalCredits decimal.Decimal `json:"total_credits"`
	TotalDebits  decimal.Decimal `json:"total_debits"`
	NetChange    decimal.Decimal `json:"net_change"`
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
}
