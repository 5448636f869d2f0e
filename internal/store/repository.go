/**
 * @description
 * This file defines the `Repository` and `Tx` interfaces, which specify the
 * contract for all data access operations required by the ledger-service. By
 * defining interfaces, we decouple the application's business logic from the
 * PostgreSQL implementation, making the code more modular and easier to test.
 *
 * The `Tx` interface is the explicit locking API: every operation on it runs
 * inside one database transaction opened by `Repository.WithTx`, and
 * `LockAccount`/`LockTransfer` acquire exclusive row locks held until commit
 * or rollback. Lock ordering is therefore visible at the call sites instead
 * of hidden inside individual queries.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - github.com/shopspring/decimal: For monetary values.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/nexabank/ledger-service/internal/domain"
)

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountNotActive     = errors.New("account is not active")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrTransferNotFound     = errors.New("transfer not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrTransferNotDue       = errors.New("transfer is scheduled for a future date")
	ErrInvalidTransferState = errors.New("operation not valid for transfer state")
	ErrConcurrencyConflict  = errors.New("concurrent access conflict; safe to retry")
	ErrDuplicateReference   = errors.New("reference number already exists")
)

// Tx is the set of operations available inside one database transaction.
// Implementations must guarantee that a row returned by LockAccount or
// LockTransfer stays exclusively locked until the enclosing WithTx returns.
type Tx interface {
	// LockAccount acquires an exclusive row lock on the account and returns
	// the current row. Must be called before reading a balance for a mutation
	// decision; a read outside the lock is advisory only.
	LockAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)

	// UpdateAccountBalances writes both balance columns for an account whose
	// row lock is already held in this transaction.
	UpdateAccountBalances(ctx context.Context, accountID uuid.UUID, balance, available decimal.Decimal) error

	// InsertTransaction appends a journal row. Reference collisions are
	// resolved internally by regenerating the reference and retrying.
	InsertTransaction(ctx context.Context, entry *domain.Transaction) error

	// LockTransfer acquires an exclusive row lock on the transfer and returns
	// the current row.
	LockTransfer(ctx context.Context, transferID uuid.UUID) (*domain.Transfer, error)

	// UpdateTransferStatus moves a transfer to a new status, recording the
	// failure reason and completion time where applicable.
	UpdateTransferStatus(ctx context.Context, transferID uuid.UUID, status domain.TransferStatus, failureReason *string, completedAt *time.Time) error
}

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// WithTx runs fn inside one database transaction with a bounded lock-wait
	// timeout. A nil return from fn commits; any error rolls everything back.
	// Lock-wait timeouts and serialization failures surface as
	// ErrConcurrencyConflict.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Account methods
	CreateAccount(ctx context.Context, account *domain.Account) error
	GetAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	GetAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	UpdateAccountStatus(ctx context.Context, accountID uuid.UUID, status domain.AccountStatus, closedAt *time.Time) error

	// Transfer methods
	CreateTransfer(ctx context.Context, transfer *domain.Transfer) error
	GetTransferByID(ctx context.Context, transferID uuid.UUID) (*domain.Transfer, error)
	GetTransferByReference(ctx context.Context, reference string) (*domain.Transfer, error)
	FindScheduledDue(ctx context.Context, asOf time.Time, limit int) ([]domain.Transfer, error)

	// Journal methods (read-only projections)
	FindTransactionsByAccount(ctx context.Context, accountID uuid.UUID, filter domain.TransactionFilter) ([]domain.Transaction, error)
	SummarizeTransactions(ctx context.Context, accountID uuid.UUID, from, to time.Time) (*domain.TransactionSummary, error)
	GetTransactionByReference(ctx context.Context, reference string) (*domain.Transaction, error)
}
