/**
 * @description
 * Transfer orchestration: the pending → {completed | failed | cancelled}
 * state machine. Processing executes as one database transaction; there is no
 * separately persisted "processing" state because a crash mid-flight rolls
 * the transaction back and leaves the transfer pending, safe to retry.
 *
 * @dependencies
 * - context, errors, fmt, log, sort, time: Standard Go libraries.
 * - internal/domain, internal/store: For domain models and data access.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nexabank/ledger-service/internal/domain"
	"github.com/nexabank/ledger-service/internal/store"
)

const failureReasonInsufficientFunds = "Insufficient funds"

// legFailureError wraps a business failure on the credit or fee leg. The
// enclosing transaction rolls back (undoing the already-applied debit), then
// the transfer is marked failed with the carried reason in a fresh
// transaction. Infrastructure errors are never wrapped this way, so they
// leave the transfer pending and retryable.
type legFailureError struct {
	reason string
	err    error
}

func (e *legFailureError) Error() string { return e.reason + ": " + e.err.Error() }
func (e *legFailureError) Unwrap() error { return e.err }

// InitiateTransfer validates the request and persists a pending transfer.
// Balances are not touched. All validation happens before any lock is taken
// and before any row is persisted.
func (s *Service) InitiateTransfer(ctx context.Context, req domain.TransferRequest) (*domain.Transfer, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	if req.Fee.IsNegative() {
		return nil, fmt.Errorf("%w: fee cannot be negative", ErrInvalidRequest)
	}
	if !domain.IsValidTransferType(req.TransferType) {
		return nil, fmt.Errorf("%w: unknown transfer type %q", ErrInvalidRequest, req.TransferType)
	}
	if req.TransferType.RequiresInternalDestination() {
		if req.ToAccountID == nil {
			return nil, fmt.Errorf("%w: %s transfers require a destination account", ErrInvalidRequest, req.TransferType)
		}
		if *req.ToAccountID == req.FromAccountID {
			return nil, fmt.Errorf("%w: source and destination accounts must differ", ErrInvalidRequest)
		}
	} else {
		if req.RecipientName == nil || strings.TrimSpace(*req.RecipientName) == "" {
			return nil, fmt.Errorf("%w: %s transfers require a recipient name", ErrInvalidRequest, req.TransferType)
		}
		if req.RecipientAccountNumber == nil || strings.TrimSpace(*req.RecipientAccountNumber) == "" {
			return nil, fmt.Errorf("%w: %s transfers require a recipient account number", ErrInvalidRequest, req.TransferType)
		}
	}
	if req.Fee.IsPositive() && s.feeAccountID == nil {
		return nil, fmt.Errorf("%w: fees are not accepted because no fee account is configured", ErrInvalidRequest)
	}

	if s.rateLimiter != nil && s.initiateRateLimit > 0 {
		allowed, err := s.rateLimiter.Allow(ctx, req.FromAccountID.String(), s.initiateRateLimit, time.Minute)
		if err != nil {
			log.Printf("level=warn component=transfer msg=\"rate limiter unavailable; allowing request\" account_id=%s err=%v", req.FromAccountID, err)
		} else if !allowed {
			return nil, ErrRateLimited
		}
	}

	source, err := s.repo.GetAccountByID(ctx, req.FromAccountID)
	if err != nil {
		return nil, err
	}
	if source.Status != domain.AccountStatusActive {
		return nil, fmt.Errorf("%w: source account %s is %s", store.ErrAccountNotActive, source.ID, source.Status)
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = source.Currency
	} else if currency != source.Currency {
		return nil, fmt.Errorf("%w: currency %s does not match source account currency %s", ErrInvalidRequest, currency, source.Currency)
	}

	if req.ToAccountID != nil {
		destination, err := s.repo.GetAccountByID(ctx, *req.ToAccountID)
		if err != nil {
			return nil, err
		}
		if destination.Currency != currency {
			return nil, fmt.Errorf("%w: destination account currency %s does not match %s", ErrInvalidRequest, destination.Currency, currency)
		}
		if destination.Status == domain.AccountStatusClosed {
			return nil, fmt.Errorf("%w: destination account %s is closed", store.ErrAccountNotActive, destination.ID)
		}
	}

	transfer := &domain.Transfer{
		ID:                     uuid.New(),
		ReferenceNumber:        domain.NewTransferReference(),
		FromAccountID:          req.FromAccountID,
		ToAccountID:            req.ToAccountID,
		Type:                   req.TransferType,
		Amount:                 req.Amount,
		Fee:                    req.Fee,
		TotalAmount:            req.Amount.Add(req.Fee),
		Currency:               currency,
		Status:                 domain.TransferStatusPending,
		RecipientName:          req.RecipientName,
		RecipientAccountNumber: req.RecipientAccountNumber,
		RecipientBankName:      req.RecipientBankName,
		Description:            req.Description,
		ScheduledDate:          req.ScheduledDate,
	}
	if err := s.repo.CreateTransfer(ctx, transfer); err != nil {
		return nil, fmt.Errorf("failed to persist transfer: %w", err)
	}
	log.Printf("level=info component=transfer msg=\"transfer initiated\" transfer_id=%s reference=%s type=%s amount=%s fee=%s",
		transfer.ID, transfer.ReferenceNumber, transfer.Type, transfer.Amount, transfer.Fee)
	return transfer, nil
}

// ProcessTransfer executes a pending transfer as one atomic unit. It is
// idempotent: re-invoking it for a transfer that already reached a terminal
// state returns that state without side effects. Retryable infrastructure
// failures (store.ErrConcurrencyConflict) leave the transfer pending.
func (s *Service) ProcessTransfer(ctx context.Context, transferID uuid.UUID) (*domain.Transfer, error) {
	var (
		result       *domain.Transfer
		transitioned bool
	)
	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		transfer, err := tx.LockTransfer(ctx, transferID)
		if err != nil {
			return err
		}
		// Idempotency guard: only a pending transfer may be executed.
		if transfer.Status != domain.TransferStatusPending {
			result = transfer
			return nil
		}
		if transfer.ScheduledDate != nil && transfer.ScheduledDate.After(time.Now()) {
			return store.ErrTransferNotDue
		}

		// Lock every account touched by this transfer in ascending id order
		// before mutating anything, so two transfers over the same pair of
		// accounts in opposite directions cannot deadlock.
		if err := s.lockTransferAccounts(ctx, tx, transfer); err != nil {
			return err
		}

		debitEntry := &domain.Transaction{
			Type:             domain.TransactionTypeTransfer,
			RelatedAccountID: transfer.ToAccountID,
			Description:      transferLegDescription(transfer, "debit"),
		}
		if _, err := s.applyDelta(ctx, tx, transfer.FromAccountID, transfer.TotalAmount.Neg(), debitEntry); err != nil {
			// No writes have happened yet, so a business rejection of the
			// debit leg can mark the transfer failed inside this same
			// transaction and commit.
			if reason, ok := businessFailureReason(err, "Source"); ok {
				if err := tx.UpdateTransferStatus(ctx, transfer.ID, domain.TransferStatusFailed, &reason, nil); err != nil {
					return err
				}
				transfer.Status = domain.TransferStatusFailed
				transfer.FailureReason = &reason
				result = transfer
				transitioned = true
				return nil
			}
			return err
		}

		if transfer.ToAccountID != nil {
			creditEntry := &domain.Transaction{
				Type:             domain.TransactionTypeTransfer,
				RelatedAccountID: &transfer.FromAccountID,
				Description:      transferLegDescription(transfer, "credit"),
			}
			if _, err := s.applyDelta(ctx, tx, *transfer.ToAccountID, transfer.Amount, creditEntry); err != nil {
				if reason, ok := businessFailureReason(err, "Destination"); ok {
					return &legFailureError{reason: reason, err: err}
				}
				return err
			}
		}

		if transfer.Fee.IsPositive() {
			if s.feeAccountID == nil {
				return &legFailureError{reason: "Fee account is not configured", err: store.ErrAccountNotFound}
			}
			feeEntry := &domain.Transaction{
				Type:             domain.TransactionTypeFee,
				RelatedAccountID: &transfer.FromAccountID,
				Description:      fmt.Sprintf("Fee for transfer %s", transfer.ReferenceNumber),
			}
			if _, err := s.applyDelta(ctx, tx, *s.feeAccountID, transfer.Fee, feeEntry); err != nil {
				if reason, ok := businessFailureReason(err, "Fee"); ok {
					return &legFailureError{reason: reason, err: err}
				}
				return err
			}
		}

		completedAt := time.Now().UTC()
		if err := tx.UpdateTransferStatus(ctx, transfer.ID, domain.TransferStatusCompleted, nil, &completedAt); err != nil {
			return err
		}
		transfer.Status = domain.TransferStatusCompleted
		transfer.FailureReason = nil
		transfer.CompletedAt = &completedAt
		result = transfer
		transitioned = true
		return nil
	})
	if err != nil {
		var legFailure *legFailureError
		if errors.As(err, &legFailure) {
			// The debit was rolled back with everything else; record the
			// terminal failure in its own transaction.
			return s.failTransfer(ctx, transferID, legFailure.reason)
		}
		return nil, err
	}

	if transitioned {
		s.publishTransferEvent(ctx, result)
	}
	return result, nil
}

// lockTransferAccounts acquires row locks on the source, destination and fee
// accounts in ascending UUID order.
func (s *Service) lockTransferAccounts(ctx context.Context, tx store.Tx, transfer *domain.Transfer) error {
	ids := []uuid.UUID{transfer.FromAccountID}
	if transfer.ToAccountID != nil {
		ids = append(ids, *transfer.ToAccountID)
	}
	if transfer.Fee.IsPositive() && s.feeAccountID != nil {
		ids = append(ids, *s.feeAccountID)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	var previous uuid.UUID
	for i, id := range ids {
		if i > 0 && id == previous {
			continue
		}
		previous = id
		if _, err := tx.LockAccount(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// businessFailureReason classifies applyDelta errors that represent normal,
// reportable outcomes. side names the leg for the failure reason. Anything
// else (connection loss, lock timeout) is an infrastructure error and must
// not fail the transfer.
func businessFailureReason(err error, side string) (string, bool) {
	switch {
	case errors.Is(err, store.ErrInsufficientFunds):
		return failureReasonInsufficientFunds, true
	case errors.Is(err, store.ErrAccountNotActive):
		return fmt.Sprintf("%s account is not active", side), true
	case errors.Is(err, store.ErrAccountNotFound):
		return fmt.Sprintf("%s account not found", side), true
	}
	return "", false
}

// failTransfer records a terminal failure for a still-pending transfer. If a
// concurrent processor already moved the transfer to a terminal state, that
// state is returned unchanged.
func (s *Service) failTransfer(ctx context.Context, transferID uuid.UUID, reason string) (*domain.Transfer, error) {
	var (
		result       *domain.Transfer
		transitioned bool
	)
	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		transfer, err := tx.LockTransfer(ctx, transferID)
		if err != nil {
			return err
		}
		if transfer.Status != domain.TransferStatusPending {
			result = transfer
			return nil
		}
		if err := tx.UpdateTransferStatus(ctx, transfer.ID, domain.TransferStatusFailed, &reason, nil); err != nil {
			return err
		}
		transfer.Status = domain.TransferStatusFailed
		transfer.FailureReason = &reason
		result = transfer
		transitioned = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if transitioned {
		s.publishTransferEvent(ctx, result)
	}
	return result, nil
}

// CancelTransfer cancels a transfer that has not been processed yet.
// Cancelling a transfer in any terminal state is ErrInvalidTransferState.
func (s *Service) CancelTransfer(ctx context.Context, transferID uuid.UUID) (*domain.Transfer, error) {
	var result *domain.Transfer
	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		transfer, err := tx.LockTransfer(ctx, transferID)
		if err != nil {
			return err
		}
		if transfer.Status != domain.TransferStatusPending {
			return fmt.Errorf("%w: cannot cancel transfer in status %q", store.ErrInvalidTransferState, transfer.Status)
		}
		if err := tx.UpdateTransferStatus(ctx, transfer.ID, domain.TransferStatusCancelled, nil, nil); err != nil {
			return err
		}
		transfer.Status = domain.TransferStatusCancelled
		result = transfer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ProcessDueTransfers picks up pending transfers whose scheduled date has
// arrived and processes each one. Failures are logged and do not stop the
// batch; process() is idempotent, so any transfer left pending is picked up
// again on the next run.
func (s *Service) ProcessDueTransfers(ctx context.Context, batchSize int) (int, error) {
	due, err := s.repo.FindScheduledDue(ctx, time.Now().UTC(), batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to query due transfers: %w", err)
	}

	processed := 0
	for i := range due {
		transfer, err := s.ProcessTransfer(ctx, due[i].ID)
		if err != nil {
			log.Printf("level=error component=scheduler msg=\"scheduled transfer processing failed\" transfer_id=%s err=%v", due[i].ID, err)
			continue
		}
		processed++
		log.Printf("level=info component=scheduler msg=\"scheduled transfer processed\" transfer_id=%s status=%s", transfer.ID, transfer.Status)
	}
	return processed, nil
}

// publishTransferEvent emits a lifecycle event after a transfer reaches a
// terminal state in this invocation. Publishing is best-effort; the database
// is the source of truth.
func (s *Service) publishTransferEvent(ctx context.Context, transfer *domain.Transfer) {
	if s.eventProducer == nil {
		return
	}
	routingKey := "transfer.status." + string(transfer.Status)
	event := domain.TransferEvent{
		TransferID:      transfer.ID,
		ReferenceNumber: transfer.ReferenceNumber,
		Status:          transfer.Status,
		Amount:          transfer.Amount,
		Fee:             transfer.Fee,
		FailureReason:   transfer.FailureReason,
		Timestamp:       time.Now().UTC(),
	}
	if err := s.eventProducer.Publish(ctx, s.eventExchange, routingKey, event); err != nil {
		log.Printf("level=warn component=transfer msg=\"event publish failed\" transfer_id=%s routing_key=%s err=%v", transfer.ID, routingKey, err)
	}
}

func transferLegDescription(transfer *domain.Transfer, leg string) string {
	if transfer.Description != "" {
		return transfer.Description
	}
	return fmt.Sprintf("Transfer %s (%s)", transfer.ReferenceNumber, leg)
}
