package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nexabank/ledger-service/internal/domain"
)

const transactionColumns = `id, reference_number, account_id, related_account_id, type,
       amount, currency, balance_after, status, description, created_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var entry domain.Transaction
	err := row.Scan(
		&entry.ID,
		&entry.ReferenceNumber,
		&entry.AccountID,
		&entry.RelatedAccountID,
		&entry.Type,
		&entry.Amount,
		&entry.Currency,
		&entry.BalanceAfter,
		&entry.Status,
		&entry.Description,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindTransactionsByAccount retrieves journal rows for one account, newest
// first, with optional type/status/time filters. Read-only projection for
// statements and audit.
func (r *PostgresRepository) FindTransactionsByAccount(ctx context.Context, accountID uuid.UUID, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE account_id = $1`
	args := []interface{}{accountID}
	argPos := 2

	if filter.Type != "" {
		query += fmt.Sprintf(" AND type = $%d", argPos)
		args = append(args, filter.Type)
		argPos++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, filter.Status)
		argPos++
	}
	if filter.From != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argPos)
		args = append(args, *filter.From)
		argPos++
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND created_at < $%d", argPos)
		args = append(args, *filter.To)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		entry, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *entry)
	}
	return transactions, rows.Err()
}

// SummarizeTransactions aggregates completed journal activity for an account
// over [from, to).
func (r *PostgresRepository) SummarizeTransactions(ctx context.Context, accountID uuid.UUID, from, to time.Time) (*domain.TransactionSummary, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0),
			COALESCE(SUM(-amount) FILTER (WHERE amount < 0), 0),
			COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE account_id = $1
		  AND status = $2
		  AND created_at >= $3
		  AND created_at < $4
	`
	summary := domain.TransactionSummary{AccountID: accountID, From: from, To: to}
	err := r.db.QueryRow(ctx, query, accountID, domain.TransactionStatusCompleted, from, to).Scan(
		&summary.Count,
		&summary.TotalCredits,
		&summary.TotalDebits,
		&summary.NetChange,
	)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// GetTransactionByReference retrieves one journal row by reference number.
func (r *PostgresRepository) GetTransactionByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference_number = $1`
	entry, err := scanTransaction(r.db.QueryRow(ctx, query, reference))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return entry, nil
}
