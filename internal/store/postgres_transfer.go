package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nexabank/ledger-service/internal/domain"
)

const transferColumns = `id, reference_number, from_account_id, to_account_id, transfer_type,
       amount, fee, total_amount, currency, status, failure_reason,
       recipient_name, recipient_account_number, recipient_bank_name,
       description, scheduled_date, completed_at, created_at, updated_at`

func scanTransfer(row pgx.Row) (*domain.Transfer, error) {
	var transfer domain.Transfer
	err := row.Scan(
		&transfer.ID,
		&transfer.ReferenceNumber,
		&transfer.FromAccountID,
		&transfer.ToAccountID,
		&transfer.Type,
		&transfer.Amount,
		&transfer.Fee,
		&transfer.TotalAmount,
		&transfer.Currency,
		&transfer.Status,
		&transfer.FailureReason,
		&transfer.RecipientName,
		&transfer.RecipientAccountNumber,
		&transfer.RecipientBankName,
		&transfer.Description,
		&transfer.ScheduledDate,
		&transfer.CompletedAt,
		&transfer.CreatedAt,
		&transfer.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransferNotFound
		}
		return nil, err
	}
	return &transfer, nil
}

// CreateTransfer persists a pending transfer. Reference-number collisions are
// resolved by regenerating the reference and retrying the insert rather than
// checking existence first.
func (r *PostgresRepository) CreateTransfer(ctx context.Context, transfer *domain.Transfer) error {
	query := `
		INSERT INTO transfers (
			id, reference_number, from_account_id, to_account_id, transfer_type,
			amount, fee, total_amount, currency, status,
			recipient_name, recipient_account_number, recipient_bank_name,
			description, scheduled_date
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at
	`
	var err error
	for attempt := 0; attempt < referenceRetryAttempts; attempt++ {
		err = r.db.QueryRow(ctx, query,
			transfer.ID,
			transfer.ReferenceNumber,
			transfer.FromAccountID,
			transfer.ToAccountID,
			transfer.Type,
			transfer.Amount,
			transfer.Fee,
			transfer.TotalAmount,
			transfer.Currency,
			transfer.Status,
			transfer.RecipientName,
			transfer.RecipientAccountNumber,
			transfer.RecipientBankName,
			transfer.Description,
			transfer.ScheduledDate,
		).Scan(&transfer.CreatedAt, &transfer.UpdatedAt)
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			return err
		}
		transfer.ReferenceNumber = domain.NewTransferReference()
	}
	return fmt.Errorf("%w: exhausted transfer reference retries: %v", ErrDuplicateReference, err)
}

// GetTransferByID retrieves a transfer without locking it.
func (r *PostgresRepository) GetTransferByID(ctx context.Context, transferID uuid.UUID) (*domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`
	return scanTransfer(r.db.QueryRow(ctx, query, transferID))
}

// GetTransferByReference retrieves a transfer by its reference number.
func (r *PostgresRepository) GetTransferByReference(ctx context.Context, reference string) (*domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE reference_number = $1`
	return scanTransfer(r.db.QueryRow(ctx, query, reference))
}

// FindScheduledDue returns pending transfers whose scheduled date has
// arrived, oldest first. Consumed by the scheduler collaborator, which calls
// process() per transfer; process() itself re-checks status under lock, so
// duplicate pickups are harmless.
func (r *PostgresRepository) FindScheduledDue(ctx context.Context, asOf time.Time, limit int) ([]domain.Transfer, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE status = $1
		  AND scheduled_date IS NOT NULL
		  AND scheduled_date <= $2
		ORDER BY scheduled_date ASC
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, domain.TransferStatusPending, asOf, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []domain.Transfer
	for rows.Next() {
		transfer, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, *transfer)
	}
	return transfers, rows.Err()
}
