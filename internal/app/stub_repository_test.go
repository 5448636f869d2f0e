package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/nexabank/ledger-service/internal/domain"
	"github.com/nexabank/ledger-service/internal/store"
)

// stubRepository is an in-memory Repository with transactional semantics:
// WithTx hands the callback a staged copy of all state and commits it back
// only when the callback returns nil. That lets tests assert rollback
// behavior the same way the real database provides it.
type stubRepository struct {
	accounts  map[uuid.UUID]*domain.Account
	transfers map[uuid.UUID]*domain.Transfer
	journal   []domain.Transaction

	withTxErr    error
	lockAccErr   map[uuid.UUID]error
	insertTxnErr error
}

func newStubRepository() *stubRepository {
	return &stubRepository{
		accounts:  make(map[uuid.UUID]*domain.Account),
		transfers: make(map[uuid.UUID]*domain.Transfer),
	}
}

func (r *stubRepository) addAccount(account *domain.Account) {
	copied := *account
	r.accounts[account.ID] = &copied
}

func (r *stubRepository) addTransfer(transfer *domain.Transfer) {
	copied := *transfer
	r.transfers[transfer.ID] = &copied
}

func (r *stubRepository) journalCountFor(accountID uuid.UUID) int {
	count := 0
	for _, entry := range r.journal {
		if entry.AccountID == accountID {
			count++
		}
	}
	return count
}

type stubTx struct {
	repo      *stubRepository
	accounts  map[uuid.UUID]*domain.Account
	transfers map[uuid.UUID]*domain.Transfer
	journal   []domain.Transaction
}

func (r *stubRepository) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if r.withTxErr != nil {
		return r.withTxErr
	}
	tx := &stubTx{
		repo:      r,
		accounts:  make(map[uuid.UUID]*domain.Account, len(r.accounts)),
		transfers: make(map[uuid.UUID]*domain.Transfer, len(r.transfers)),
		journal:   append([]domain.Transaction(nil), r.journal...),
	}
	for id, account := range r.accounts {
		copied := *account
		tx.accounts[id] = &copied
	}
	for id, transfer := range r.transfers {
		copied := *transfer
		tx.transfers[id] = &copied
	}
	if err := fn(tx); err != nil {
		return err
	}
	r.accounts = tx.accounts
	r.transfers = tx.transfers
	r.journal = tx.journal
	return nil
}

func (tx *stubTx) LockAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	if err := tx.repo.lockAccErr[accountID]; err != nil {
		return nil, err
	}
	account, ok := tx.accounts[accountID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (tx *stubTx) UpdateAccountBalances(ctx context.Context, accountID uuid.UUID, balance, available decimal.Decimal) error {
	account, ok := tx.accounts[accountID]
	if !ok {
		return store.ErrAccountNotFound
	}
	account.Balance = balance
	account.AvailableBalance = available
	return nil
}

func (tx *stubTx) InsertTransaction(ctx context.Context, entry *domain.Transaction) error {
	if tx.repo.insertTxnErr != nil {
		return tx.repo.insertTxnErr
	}
	tx.journal = append(tx.journal, *entry)
	return nil
}

func (tx *stubTx) LockTransfer(ctx context.Context, transferID uuid.UUID) (*domain.Transfer, error) {
	transfer, ok := tx.transfers[transferID]
	if !ok {
		return nil, store.ErrTransferNotFound
	}
	copied := *transfer
	return &copied, nil
}

func (tx *stubTx) UpdateTransferStatus(ctx context.Context, transferID uuid.UUID, status domain.TransferStatus, failureReason *string, completedAt *time.Time) error {
	transfer, ok := tx.transfers[transferID]
	if !ok {
		return store.ErrTransferNotFound
	}
	transfer.Status = status
	transfer.FailureReason = failureReason
	transfer.CompletedAt = completedAt
	return nil
}

func (r *stubRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	r.addAccount(account)
	return nil
}

func (r *stubRepository) GetAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	account, ok := r.accounts[accountID]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (r *stubRepository) GetAccountByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	for _, account := range r.accounts {
		if account.AccountNumber == accountNumber {
			copied := *account
			return &copied, nil
		}
	}
	return nil, store.ErrAccountNotFound
}

func (r *stubRepository) UpdateAccountStatus(ctx context.Context, accountID uuid.UUID, status domain.AccountStatus, closedAt *time.Time) error {
	account, ok := r.accounts[accountID]
	if !ok {
		return store.ErrAccountNotFound
	}
	account.Status = status
	account.ClosedAt = closedAt
	return nil
}

func (r *stubRepository) CreateTransfer(ctx context.Context, transfer *domain.Transfer) error {
	r.addTransfer(transfer)
	return nil
}

func (r *stubRepository) GetTransferByID(ctx context.Context, transferID uuid.UUID) (*domain.Transfer, error) {
	transfer, ok := r.transfers[transferID]
	if !ok {
		return nil, store.ErrTransferNotFound
	}
	copied := *transfer
	return &copied, nil
}

func (r *stubRepository) GetTransferByReference(ctx context.Context, reference string) (*domain.Transfer, error) {
	for _, transfer := range r.transfers {
		if transfer.ReferenceNumber == reference {
			copied := *transfer
			return &copied, nil
		}
	}
	return nil, store.ErrTransferNotFound
}

func (r *stubRepository) FindScheduledDue(ctx context.Context, asOf time.Time, limit int) ([]domain.Transfer, error) {
	var due []domain.Transfer
	for _, transfer := range r.transfers {
		if transfer.Status != domain.TransferStatusPending || transfer.ScheduledDate == nil {
			continue
		}
		if transfer.ScheduledDate.After(asOf) {
			continue
		}
		due = append(due, *transfer)
		if limit > 0 && len(due) >= limit {
			break
		}
	}
	return due, nil
}

func (r *stubRepository) FindTransactionsByAccount(ctx context.Context, accountID uuid.UUID, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	var entries []domain.Transaction
	for _, entry := range r.journal {
		if entry.AccountID == accountID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (r *stubRepository) SummarizeTransactions(ctx context.Context, accountID uuid.UUID, from, to time.Time) (*domain.TransactionSummary, error) {
	summary := &domain.TransactionSummary{AccountID: accountID, From: from, To: to}
	for _, entry := range r.journal {
		if entry.AccountID != accountID || entry.Status != domain.TransactionStatusCompleted {
			continue
		}
		summary.Count++
		if entry.Amount.IsPositive() {
			summary.TotalCredits = summary.TotalCredits.Add(entry.Amount)
		} else {
			summary.TotalDebits = summary.TotalDebits.Add(entry.Amount.Neg())
		}
		summary.NetChange = summary.NetChange.Add(entry.Amount)
	}
	return summary, nil
}

func (r *stubRepository) GetTransactionByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	for _, entry := range r.journal {
		if entry.ReferenceNumber == reference {
			copied := entry
			return &copied, nil
		}
	}
	return nil, store.ErrTransactionNotFound
}

// stubPublisher records published events in order.
type stubPublisher struct {
	exchanges   []string
	routingKeys []string
	payloads    []interface{}
	publishErr  error
}

func (p *stubPublisher) Publish(ctx context.Context, exchange, routingKey string, payload interface{}) error {
	p.exchanges = append(p.exchanges, exchange)
	p.routingKeys = append(p.routingKeys, routingKey)
	p.payloads = append(p.payloads, payload)
	return p.publishErr
}

// stubRateLimiter allows a fixed number of calls before refusing.
type stubRateLimiter struct {
	remaining int
	err       error
	calls     int
}

func (l *stubRateLimiter) Allow(ctx context.Context, subject string, limit int, window time.Duration) (bool, error) {
	l.calls++
	if l.err != nil {
		return false, l.err
	}
	if l.remaining <= 0 {
		return false, nil
	}
	l.remaining--
	return true, nil
}
