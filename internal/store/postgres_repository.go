/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface: the connection-pool-level queries plus the `WithTx` transaction
 * scope that all balance mutations run inside.
 *
 * @dependencies
 * - context, errors, fmt, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nexabank/ledger-service/internal/domain"
)

const referenceRetryAttempts = 5

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

// NewPostgresRepository creates a new instance of PostgresRepository.
// lockTimeout bounds how long a transaction waits on a row lock before the
// operation aborts with ErrConcurrencyConflict.
func NewPostgresRepository(db *pgxpool.Pool, lockTimeout time.Duration) *PostgresRepository {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &PostgresRepository{db: db, lockTimeout: lockTimeout}
}

// isUniqueViolation reports whether err is a unique-constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isConcurrencyConflict reports whether err is a lock-wait timeout (55P03),
// serialization failure (40001) or deadlock (40P01); all are safe to retry.
func isConcurrencyConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "55P03", "40001", "40P01":
		return true
	}
	return false
}

// WithTx runs fn inside one database transaction. A SET LOCAL lock_timeout
// bounds every lock acquisition in the scope; on expiry the transaction rolls
// back and the caller receives ErrConcurrencyConflict.
func (r *PostgresRepository) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// lock_timeout does not accept bind parameters.
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("set lock timeout: %w", err)
	}

	if err := fn(&pgTx{tx: tx}); err != nil {
		if isConcurrencyConflict(err) {
			return fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if isConcurrencyConflict(err) {
			return fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const accountColumns = `id, account_number, account_type, currency, balance, available_balance,
       overdraft_limit, daily_limit, status, closed_at, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	err := row.Scan(
		&account.ID,
		&account.AccountNumber,
		&account.Type,
		&account.Currency,
		&account.Balance,
		&account.AvailableBalance,
		&account.OverdraftLimit,
		&account.DailyLimit,
		&account.Status,
		&account.ClosedAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// CreateAccount inserts a new account row. Account-number collisions are
// resolved by regenerating the number and retrying the insert, so callers
// never observe the race between generation and persistence.
func (r *PostgresRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (
			id, account_number, account_type, currency, balance, available_balance,
			overdraft_limit, daily_limit, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	var err error
	for attempt := 0; attempt < referenceRetryAttempts; attempt++ {
		err = r.db.QueryRow(ctx, query,
			account.ID,
			account.AccountNumber,
			account.Type,
			account.Currency,
			account.Balance,
			account.AvailableBalance,
			account.OverdraftLimit,
			account.DailyLimit,
			account.Status,
		).Scan(&account.CreatedAt, &account.UpdatedAt)
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			return err
		}
		account.AccountNumber = domain.NewAccountNumber()
	}
	return fmt.Errorf("%w: exhausted account number retries: %v", ErrDuplicateReference, err)
}

// GetAccountByID retrieves an account without locking it. The returned
// balances are advisory; mutation decisions must re-read under Tx.LockAccount.
func (r *PostgresRepository) GetAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRow(ctx, query, accountID))
}

// GetAccountByNumber retrieves an account by its human-facing number.
func (r *PostgresRepository) GetAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`
	return scanAccount(r.db.QueryRow(ctx, query, accountNumber))
}

// UpdateAccountStatus applies an administrative status change. Accounts are
// soft-closed: closed_at is set and the row is never deleted while
// transactions reference it.
func (r *PostgresRepository) UpdateAccountStatus(ctx context.Context, accountID uuid.UUID, status domain.AccountStatus, closedAt *time.Time) error {
	query := `UPDATE accounts SET status = $1, closed_at = $2, updated_at = NOW() WHERE id = $3`
	result, err := r.db.Exec(ctx, query, status, closedAt, accountID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
