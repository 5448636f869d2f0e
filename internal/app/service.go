/**
 * @description
 * This file contains the core business logic for the ledger-service. The
 * `Service` struct owns account lifecycle operations and the single-leg cash
 * operations (deposit/withdraw); the transfer orchestration lives in
 * transfer.go and the balance manager in balance.go.
 *
 * Key features:
 * - All balance mutations funnel through applyDelta inside one WithTx scope.
 * - Account status changes are soft: accounts are never deleted while
 *   transactions reference them.
 * - Publishes transfer lifecycle events to RabbitMQ after commit.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - github.com/shopspring/decimal: For monetary values.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For event publishing.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/nexabank/ledger-service/internal/domain"
	"github.com/nexabank/ledger-service/internal/store"
	"github.com/nexabank/ledger-service/pkg/rabbitmq"
)

var (
	// ErrInvalidRequest marks caller mistakes rejected before any lock is
	// taken or row persisted.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrRateLimited is returned when transfer initiation exceeds the
	// per-account rate limit.
	ErrRateLimited = errors.New("transfer initiation rate limit exceeded")
)

// Service provides the core business logic for the ledger engine.
type Service struct {
	repo          store.Repository
	eventProducer rabbitmq.Publisher
	eventExchange string
	feeAccountID  *uuid.UUID

	rateLimiter       TransferRateLimiter
	initiateRateLimit int
}

// NewService creates a new ledger service instance. feeAccountID is the
// internal account credited with transfer fees; it may be nil, in which case
// transfers carrying a fee are rejected at initiation.
func NewService(repo store.Repository, producer rabbitmq.Publisher, eventExchange string, feeAccountID *uuid.UUID) *Service {
	return &Service{
		repo:          repo,
		eventProducer: producer,
		eventExchange: eventExchange,
		feeAccountID:  feeAccountID,
	}
}

// SetRateLimiter installs an optional per-account initiation rate limiter.
func (s *Service) SetRateLimiter(limiter TransferRateLimiter, perMinute int) {
	s.rateLimiter = limiter
	s.initiateRateLimit = perMinute
}

// CreateAccount opens a new account with an optional seeded balance.
func (s *Service) CreateAccount(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error) {
	if !domain.IsValidAccountType(req.Type) {
		return nil, fmt.Errorf("%w: unknown account type %q", ErrInvalidRequest, req.Type)
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(currency) != 3 {
		return nil, fmt.Errorf("%w: currency must be a 3-letter code", ErrInvalidRequest)
	}
	if req.InitialBalance.IsNegative() {
		return nil, fmt.Errorf("%w: initial balance cannot be negative", ErrInvalidRequest)
	}
	if req.OverdraftLimit.IsNegative() {
		return nil, fmt.Errorf("%w: overdraft limit cannot be negative", ErrInvalidRequest)
	}

	account := &domain.Account{
		ID:               uuid.New(),
		AccountNumber:    domain.NewAccountNumber(),
		Type:             req.Type,
		Currency:         currency,
		Balance:          req.InitialBalance,
		AvailableBalance: req.InitialBalance,
		OverdraftLimit:   req.OverdraftLimit,
		DailyLimit:       req.DailyLimit,
		Status:           domain.AccountStatusActive,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

// GetAccount retrieves an account by id.
func (s *Service) GetAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	return s.repo.GetAccountByID(ctx, accountID)
}

// GetAccountByNumber retrieves an account by its human-facing number.
func (s *Service) GetAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return s.repo.GetAccountByNumber(ctx, accountNumber)
}

// FreezeAccount suspends all balance mutations on an account.
func (s *Service) FreezeAccount(ctx context.Context, accountID uuid.UUID) error {
	account, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Status != domain.AccountStatusActive {
		return fmt.Errorf("%w: cannot freeze account in status %q", ErrInvalidRequest, account.Status)
	}
	return s.repo.UpdateAccountStatus(ctx, accountID, domain.AccountStatusFrozen, nil)
}

// UnfreezeAccount re-activates a frozen account.
func (s *Service) UnfreezeAccount(ctx context.Context, accountID uuid.UUID) error {
	account, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Status != domain.AccountStatusFrozen {
		return fmt.Errorf("%w: cannot unfreeze account in status %q", ErrInvalidRequest, account.Status)
	}
	return s.repo.UpdateAccountStatus(ctx, accountID, domain.AccountStatusActive, nil)
}

// CloseAccount soft-closes an account. The row is retained because journal
// entries reference it; pending transfers against it will fail at processing.
func (s *Service) CloseAccount(ctx context.Context, accountID uuid.UUID) error {
	account, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Status == domain.AccountStatusClosed {
		return fmt.Errorf("%w: account is already closed", ErrInvalidRequest)
	}
	now := time.Now().UTC()
	return s.repo.UpdateAccountStatus(ctx, accountID, domain.AccountStatusClosed, &now)
}

// Deposit credits an account with a single-leg cash deposit.
func (s *Service) Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: deposit amount must be positive", ErrInvalidRequest)
	}
	entry := &domain.Transaction{
		ID:              uuid.New(),
		ReferenceNumber: domain.NewTransactionReference(),
		AccountID:       accountID,
		Type:            domain.TransactionTypeDeposit,
		Description:     description,
	}
	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		_, err := s.applyDelta(ctx, tx, accountID, amount, entry)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Withdraw debits an account with a single-leg cash withdrawal. An
// insufficient balance surfaces as store.ErrInsufficientFunds.
func (s *Service) Withdraw(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: withdrawal amount must be positive", ErrInvalidRequest)
	}
	entry := &domain.Transaction{
		ID:              uuid.New(),
		ReferenceNumber: domain.NewTransactionReference(),
		AccountID:       accountID,
		Type:            domain.TransactionTypeWithdrawal,
		Description:     description,
	}
	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		_, err := s.applyDelta(ctx, tx, accountID, amount.Neg(), entry)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GetTransactionsByAccount returns journal entries for an account.
func (s *Service) GetTransactionsByAccount(ctx context.Context, accountID uuid.UUID, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	if _, err := s.repo.GetAccountByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.repo.FindTransactionsByAccount(ctx, accountID, filter)
}

// SummarizeTransactions aggregates completed journal activity over a range.
func (s *Service) SummarizeTransactions(ctx context.Context, accountID uuid.UUID, from, to time.Time) (*domain.TransactionSummary, error) {
	if _, err := s.repo.GetAccountByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.repo.SummarizeTransactions(ctx, accountID, from, to)
}

// GetTransactionByReference retrieves one journal entry by reference number.
func (s *Service) GetTransactionByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	return s.repo.GetTransactionByReference(ctx, reference)
}

// GetTransfer retrieves a transfer by id.
func (s *Service) GetTransfer(ctx context.Context, transferID uuid.UUID) (*domain.Transfer, error) {
	return s.repo.GetTransferByID(ctx, transferID)
}

// GetTransferByReference retrieves a transfer by its reference number.
func (s *Service) GetTransferByReference(ctx context.Context, reference string) (*domain.Transfer, error) {
	return s.repo.GetTransferByReference(ctx, reference)
}
