package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/nexabank/ledger-service/internal/domain"
)

// pgTx implements Tx over one open pgx transaction.
type pgTx struct {
	tx pgx.Tx
}

// LockAccount acquires an exclusive row lock on the account via
// SELECT ... FOR UPDATE and returns the current row. The lock is held until
// the enclosing transaction commits or rolls back.
func (t *pgTx) LockAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return scanAccount(t.tx.QueryRow(ctx, query, accountID))
}

// UpdateAccountBalances writes both balance columns. Callers must hold the
// row lock acquired by LockAccount in the same transaction.
func (t *pgTx) UpdateAccountBalances(ctx context.Context, accountID uuid.UUID, balance, available decimal.Decimal) error {
	query := `UPDATE accounts SET balance = $1, available_balance = $2, updated_at = NOW() WHERE id = $3`
	result, err := t.tx.Exec(ctx, query, balance, available, accountID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// InsertTransaction appends one journal row. On a reference-number collision
// (unique violation) the reference is regenerated and the insert retried, so
// there is no window between an existence check and the insert. Each attempt
// runs under a savepoint so a collision does not abort the outer transaction.
func (t *pgTx) InsertTransaction(ctx context.Context, entry *domain.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, reference_number, account_id, related_account_id, type,
			amount, currency, balance_after, status, description
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	var err error
	for attempt := 0; attempt < referenceRetryAttempts; attempt++ {
		err = func() error {
			nested, beginErr := t.tx.Begin(ctx)
			if beginErr != nil {
				return beginErr
			}
			scanErr := nested.QueryRow(ctx, query,
				entry.ID,
				entry.ReferenceNumber,
				entry.AccountID,
				entry.RelatedAccountID,
				entry.Type,
				entry.Amount,
				entry.Currency,
				entry.BalanceAfter,
				entry.Status,
				entry.Description,
			).Scan(&entry.CreatedAt)
			if scanErr != nil {
				_ = nested.Rollback(ctx)
				return scanErr
			}
			return nested.Commit(ctx)
		}()
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			return err
		}
		entry.ReferenceNumber = domain.NewTransactionReference()
	}
	return fmt.Errorf("%w: exhausted journal reference retries: %v", ErrDuplicateReference, err)
}

// LockTransfer acquires an exclusive row lock on the transfer and returns the
// current row. This is the idempotency guard for process(): a second caller
// blocks here until the first commits, then observes the terminal status.
func (t *pgTx) LockTransfer(ctx context.Context, transferID uuid.UUID) (*domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1 FOR UPDATE`
	return scanTransfer(t.tx.QueryRow(ctx, query, transferID))
}

// UpdateTransferStatus moves a transfer to a new status. Terminal states are
// final; callers enforce the transition rules before calling this.
func (t *pgTx) UpdateTransferStatus(ctx context.Context, transferID uuid.UUID, status domain.TransferStatus, failureReason *string, completedAt *time.Time) error {
	query := `
		UPDATE transfers
		SET status = $1, failure_reason = $2, completed_at = $3, updated_at = NOW()
		WHERE id = $4
	`
	result, err := t.tx.Exec(ctx, query, status, failureReason, completedAt, transferID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrTransferNotFound
	}
	return nil
}
