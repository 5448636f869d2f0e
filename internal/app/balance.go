package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/nexabank/ledger-service/internal/domain"
	"github.com/nexabank/ledger-service/internal/store"
)

// applyDelta is the only code path permitted to change an account's balance.
// It re-reads the account under an exclusive row lock, so the funds check here
// is authoritative regardless of what any earlier unlocked read observed.
//
// On success the journal entry is persisted in the same transaction with
// balance_after set to the new balance, and the returned account carries the
// updated balances. No writes happen before the funds check, so a rejection
// leaves the transaction clean.
func (s *Service) applyDelta(ctx context.Context, tx store.Tx, accountID uuid.UUID, delta decimal.Decimal, entry *domain.Transaction) (*domain.Account, error) {
	account, err := tx.LockAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Status != domain.AccountStatusActive {
		return nil, fmt.Errorf("%w: account %s is %s", store.ErrAccountNotActive, account.ID, account.Status)
	}

	if delta.IsNegative() && account.AvailableBalance.Add(account.OverdraftLimit).Add(delta).IsNegative() {
		return nil, store.ErrInsufficientFunds
	}

	newBalance := account.Balance.Add(delta)
	newAvailable := account.AvailableBalance.Add(delta)
	if err := tx.UpdateAccountBalances(ctx, account.ID, newBalance, newAvailable); err != nil {
		return nil, fmt.Errorf("failed to update balances for account %s: %w", account.ID, err)
	}

	entry.AccountID = account.ID
	entry.Amount = delta
	entry.Currency = account.Currency
	entry.BalanceAfter = newBalance
	entry.Status = domain.TransactionStatusCompleted
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.ReferenceNumber == "" {
		entry.ReferenceNumber = domain.NewTransactionReference()
	}
	if err := tx.InsertTransaction(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append journal entry for account %s: %w", account.ID, err)
	}

	account.Balance = newBalance
	account.AvailableBalance = newAvailable
	return account, nil
}

// HasSufficientFunds is the advisory, unlocked pre-check: it reads the current
// available balance without taking a lock, so the answer may be stale by the
// time a mutation runs. The locked check inside applyDelta is authoritative.
func (s *Service) HasSufficientFunds(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (bool, error) {
	account, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return false, err
	}
	return account.AvailableBalance.Add(account.OverdraftLimit).GreaterThanOrEqual(amount), nil
}
