/**
 * @description
 * This file defines the core domain models for the ledger-service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - The json field names on Account, Transaction and Transfer are the stable
 *   contract consumed by other services; they must not change.
 * - Amounts and balances use decimal.Decimal backed by NUMERIC(19,4) columns
 *   to avoid floating-point inaccuracies with financial data.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType enumerates the supported account products.
type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCredit     AccountType = "credit"
	AccountTypeLoan       AccountType = "loan"
	AccountTypeInvestment AccountType = "investment"
)

// AccountStatus enumerates the account lifecycle states. The set is closed;
// no other values may be persisted.
type AccountStatus string

const (
	AccountStatusActive  AccountStatus = "active"
	AccountStatusFrozen  AccountStatus = "frozen"
	AccountStatusClosed  AccountStatus = "closed"
	AccountStatusPending AccountStatus = "pending"
)

// Account represents a ledger account. The Account row is the single source of
// truth for balance; balance and available_balance change only through the
// balance manager, never by direct field assignment.
type Account struct {
	ID               uuid.UUID       `json:"account_id"`
	AccountNumber    string          `json:"account_number"`
	Type             AccountType     `json:"account_type"`
	Currency         string          `json:"currency"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	OverdraftLimit   decimal.Decimal `json:"overdraft_limit"`
	DailyLimit       decimal.Decimal `json:"daily_limit"`
	Status           AccountStatus   `json:"status"`
	ClosedAt         *time.Time      `json:"closed_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// IsValidAccountType reports whether t is a member of the closed account type set.
func IsValidAccountType(t AccountType) bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeCredit, AccountTypeLoan, AccountTypeInvestment:
		return true
	}
	return false
}

// CreateAccountRequest is the DTO for opening a new account.
type CreateAccountRequest struct {
	Type           AccountType     `json:"account_type"`
	Currency       string          `json:"currency"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	OverdraftLimit decimal.Decimal `json:"overdraft_limit"`
	DailyLimit     decimal.Decimal `json:"daily_limit"`
}
