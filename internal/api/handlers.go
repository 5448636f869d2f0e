/**
 * @description
 * This file contains the HTTP handlers for the ledger-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/nexabank/ledger-service/internal/app"
	"github.com/nexabank/ledger-service/internal/domain"
	"github.com/nexabank/ledger-service/internal/store"
)

// LedgerHandlers holds the application service that handlers will use.
type LedgerHandlers struct {
	service *app.Service
}

// NewLedgerHandlers creates a new instance of LedgerHandlers.
func NewLedgerHandlers(service *app.Service) *LedgerHandlers {
	return &LedgerHandlers{service: service}
}

type cashOperationRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// CreateAccountHandler opens a new ledger account.
func (h *LedgerHandlers) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	account, err := h.service.CreateAccount(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, "create_account", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, account)
}

// GetAccountHandler retrieves an account by id.
func (h *LedgerHandlers) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.parseUUIDParam(w, r, "accountID")
	if !ok {
		return
	}
	account, err := h.service.GetAccount(r.Context(), accountID)
	if err != nil {
		h.writeServiceError(w, "get_account", err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// GetAccountByNumberHandler retrieves an account by its account number.
func (h *LedgerHandlers) GetAccountByNumberHandler(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "accountNumber")
	account, err := h.service.GetAccountByNumber(r.Context(), number)
	if err != nil {
		h.writeServiceError(w, "get_account_by_number", err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// FreezeAccountHandler suspends balance mutations on an account.
func (h *LedgerHandlers) FreezeAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.parseUUIDParam(w, r, "accountID")
	if !ok {
		return
	}
	if err := h.service.FreezeAccount(r.Context(), accountID); err != nil {
		h.writeServiceError(w, "freeze_account", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.AccountStatusFrozen)})
}

// UnfreezeAccountHandler re-activates a frozen account.
func (h *LedgerHandlers) UnfreezeAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.parseUUIDParam(w, r, "accountID")
	if !ok {
		return
	}
	if err := h.service.UnfreezeAccount(r.Context(), accountID); err != nil {
		h.writeServiceError(w, "unfreeze_account", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.AccountStatusActive)})
}

// CloseAccountHandler soft-closes an account.
func (h *LedgerHandlers) CloseAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.parseUUIDParam(w, r, "accountID")
	if !ok {
		return
	}
	if err := h.service.CloseAccount(r.Context(), accountID); err != nil {
		h.writeServiceError(w, "close_account", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.AccountStatusClosed)})
}

// DepositHandler credits an account with a single-leg deposit.
func (h *LedgerHandlers) DepositHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.parseUUIDParam(w, r, "accountID")
	if !ok {
		return
	}
	var req cashOperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	entry, err := h.service.Deposit(r.Context(), accountID, req.Amount, req.Description)
	if err != nil {
		h.writeServiceError(w, "deposit", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, entry)
}

// WithdrawHandler debits an account with a single-leg withdrawal.
func (h *LedgerHandlers) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.parseUUIDParam(w, r, "accountID")
	if !ok {
		return
	}
	var req cashOperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	entry, err := h.service.Withdraw(r.Context(), accountID, req.Amount, req.Description)
	if err != nil {
		h.writeServiceError(w, "withdraw", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, entry)
}

// ListTransactionsHandler returns journal entries for an account.
func (h *LedgerHandlers) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.parseUUIDParam(w, r, "accountID")
	if !ok {
		return
	}
	filter := parseTransactionFilter(r)
	entries, err := h.service.GetTransactionsByAccount(r.Context(), accountID, filter)
	if err != nil {
		h.writeServiceError(w, "list_transactions", err)
		return
	}
	if entries == nil {
		entries = []domain.Transaction{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// TransactionSummaryHandler aggregates completed journal activity over a range.
func (h *LedgerHandlers) TransactionSummaryHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.parseUUIDParam(w, r, "accountID")
	if !ok {
		return
	}
	from, to, err := parseSummaryRange(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	summary, err := h.service.SummarizeTransactions(r.Context(), accountID, from, to)
	if err != nil {
		h.writeServiceError(w, "transaction_summary", err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// SufficientFundsHandler runs the advisory, unlocked funds pre-check.
func (h *LedgerHandlers) SufficientFundsHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.parseUUIDParam(w, r, "accountID")
	if !ok {
		return
	}
	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil || !amount.IsPositive() {
		h.writeError(w, http.StatusBadRequest, "'amount' must be a positive decimal")
		return
	}
	sufficient, err := h.service.HasSufficientFunds(r.Context(), accountID, amount)
	if err != nil {
		h.writeServiceError(w, "sufficient_funds", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"sufficient": sufficient})
}

// InitiateTransferHandler validates and persists a pending transfer.
func (h *LedgerHandlers) InitiateTransferHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	transfer, err := h.service.InitiateTransfer(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, "initiate_transfer", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, transfer)
}

// ProcessTransferHandler executes a pending transfer.
func (h *LedgerHandlers) ProcessTransferHandler(w http.ResponseWriter, r *http.Request) {
	transferID, ok := h.parseUUIDParam(w, r, "transferID")
	if !ok {
		return
	}
	transfer, err := h.service.ProcessTransfer(r.Context(), transferID)
	if err != nil {
		h.writeServiceError(w, "process_transfer", err)
		return
	}
	h.writeJSON(w, http.StatusOK, transfer)
}

// CancelTransferHandler cancels a pending transfer.
func (h *LedgerHandlers) CancelTransferHandler(w http.ResponseWriter, r *http.Request) {
	transferID, ok := h.parseUUIDParam(w, r, "transferID")
	if !ok {
		return
	}
	transfer, err := h.service.CancelTransfer(r.Context(), transferID)
	if err != nil {
		h.writeServiceError(w, "cancel_transfer", err)
		return
	}
	h.writeJSON(w, http.StatusOK, transfer)
}

// GetTransferHandler retrieves a transfer by id.
func (h *LedgerHandlers) GetTransferHandler(w http.ResponseWriter, r *http.Request) {
	transferID, ok := h.parseUUIDParam(w, r, "transferID")
	if !ok {
		return
	}
	transfer, err := h.service.GetTransfer(r.Context(), transferID)
	if err != nil {
		h.writeServiceError(w, "get_transfer", err)
		return
	}
	h.writeJSON(w, http.StatusOK, transfer)
}

// GetTransferByReferenceHandler retrieves a transfer by reference number.
func (h *LedgerHandlers) GetTransferByReferenceHandler(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	transfer, err := h.service.GetTransferByReference(r.Context(), reference)
	if err != nil {
		h.writeServiceError(w, "get_transfer_by_reference", err)
		return
	}
	h.writeJSON(w, http.StatusOK, transfer)
}

// GetTransactionByReferenceHandler retrieves one journal entry by reference number.
func (h *LedgerHandlers) GetTransactionByReferenceHandler(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	entry, err := h.service.GetTransactionByReference(r.Context(), reference)
	if err != nil {
		h.writeServiceError(w, "get_transaction_by_reference", err)
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}

func (h *LedgerHandlers) parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func parseTransactionFilter(r *http.Request) domain.TransactionFilter {
	q := r.URL.Query()
	filter := domain.TransactionFilter{
		Type:   domain.TransactionType(q.Get("type")),
		Status: domain.TransactionStatus(q.Get("status")),
	}
	if raw := q.Get("from"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.From = &ts
		}
	}
	if raw := q.Get("to"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.To = &ts
		}
	}
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.Limit = n
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.Offset = n
		}
	}
	return filter
}

func parseSummaryRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	now := time.Now().UTC()
	from := now.AddDate(0, -1, 0)
	to := now
	if raw := q.Get("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid 'from' timestamp; expected RFC3339")
		}
		from = ts
	}
	if raw := q.Get("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid 'to' timestamp; expected RFC3339")
		}
		to = ts
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, errors.New("'to' must be after 'from'")
	}
	return from, to, nil
}

// writeServiceError maps service errors onto HTTP statuses.
func (h *LedgerHandlers) writeServiceError(w http.ResponseWriter, endpoint string, err error) {
	switch {
	case errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, store.ErrTransferNotFound),
		errors.Is(err, store.ErrTransactionNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrInvalidRequest):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrRateLimited):
		h.writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, store.ErrInsufficientFunds):
		h.writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, store.ErrAccountNotActive),
		errors.Is(err, store.ErrInvalidTransferState),
		errors.Is(err, store.ErrTransferNotDue),
		errors.Is(err, store.ErrDuplicateReference):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrConcurrencyConflict):
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Printf("level=error component=api endpoint=%s msg=\"unhandled service error\" err=%v", endpoint, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// writeJSON is a helper for writing JSON responses.
func (h *LedgerHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *LedgerHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
