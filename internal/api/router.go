/**
 * @description
 * This file sets up the HTTP router for the ledger-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// LedgerRoutes creates and returns a new router for the ledger service.
func LedgerRoutes(h *LedgerHandlers, internalAPIKey string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require the internal API key.
	r.Group(func(r chi.Router) {
		r.Use(InternalAuthMiddleware(internalAPIKey))

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", h.CreateAccountHandler)
			r.Get("/number/{accountNumber}", h.GetAccountByNumberHandler)
			r.Route("/{accountID}", func(r chi.Router) {
				r.Get("/", h.GetAccountHandler)
				r.Post("/freeze", h.FreezeAccountHandler)
				r.Post("/unfreeze", h.UnfreezeAccountHandler)
				r.Post("/close", h.CloseAccountHandler)
				r.Post("/deposit", h.DepositHandler)
				r.Post("/withdraw", h.WithdrawHandler)
				r.Get("/sufficient-funds", h.SufficientFundsHandler)
				r.Get("/transactions", h.ListTransactionsHandler)
				r.Get("/transactions/summary", h.TransactionSummaryHandler)
			})
		})

		r.Get("/transactions/reference/{reference}", h.GetTransactionByReferenceHandler)

		r.Route("/transfers", func(r chi.Router) {
			r.Post("/", h.InitiateTransferHandler)
			r.Get("/reference/{reference}", h.GetTransferByReferenceHandler)
			r.Route("/{transferID}", func(r chi.Router) {
				r.Get("/", h.GetTransferHandler)
				r.Post("/process", h.ProcessTransferHandler)
				r.Post("/cancel", h.CancelTransferHandler)
			})
		})
	})

	return r
}
