package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"banking_engine/internal/domain"
	"banking_engine/internal/processor"
	"banking_engine/internal/repository"
	"banking_engine/pkg/crypto"
)

type APIHandler struct {
	processor      *processor.TransactionProcessor
	factory        *processor.TransactionFactory
	accounts       repository.AccountRepository
	transactions   repository.TransactionRepository
	signer         *crypto.Signer
	logger         *slog.Logger
	requestTimeout time.Duration
}

func NewAPIHandler(
	proc *processor.TransactionProcessor,
	factory *processor.TransactionFactory,
	accounts repository.AccountRepository,
	transactions repository.TransactionRepository,
	signer *crypto.Signer,
	logger *slog.Logger,
) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &APIHandler{
		processor:      proc,
		factory:        factory,
		accounts:       accounts,
		transactions:   transactions,
		signer:         signer,
		logger:         logger,
		requestTimeout: 30 * time.Second,
	}
}

type CreateTransactionRequest struct {
	Type          domain.TransactionType `json:"type"`
	Amount        decimal.Decimal        `json:"amount"`
	Currency      domain.Currency        `json:"currency"`
	FromAccountID string                 `json:"from_account_id,omitempty"`
	ToAccountID   string                 `json:"to_account_id,omitempty"`
	Priority      *domain.Priority       `json:"priority,omitempty"`
	DelaySeconds  int                    `json:"delay_seconds,omitempty"`
	Signature     string                 `json:"signature,omitempty"`
	SignedAt      int64                  `json:"signed_at,omitempty"`
}

type TransactionResponse struct {
	ID      string                   `json:"id"`
	Status  domain.TransactionStatus `json:"status"`
	Fee     decimal.Decimal          `json:"fee"`
	Total   decimal.Decimal          `json:"total_amount"`
	Message string                   `json:"message,omitempty"`
}

type CancelResponse struct {
	ID        string `json:"id"`
	Cancelled bool   `json:"cancelled"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// CreateTransactionHandler builds the transaction through the factory so the
// fee is attached before the queue sees it, then enqueues it. Processing is
// asynchronous; the response reports the queued transaction, not its outcome.
func (h *APIHandler) CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	if req.Signature != "" {
		if valid, err := h.signer.VerifyTransaction(
			"",
			req.Amount,
			string(req.Currency),
			req.SignedAt,
			req.Signature,
		); !valid || err != nil {
			h.sendError(w, "Invalid signature", http.StatusUnauthorized, "INVALID_SIGNATURE")
			return
		}
	}

	if req.DelaySeconds < 0 {
		h.sendError(w, "delay_seconds must not be negative", http.StatusBadRequest, "VALIDATION_ERROR")
		return
	}

	tx, err := h.buildTransaction(ctx, req)
	if err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest, "VALIDATION_ERROR")
		return
	}
	if req.Priority != nil {
		tx.WithPriority(*req.Priority)
	}

	delay := time.Duration(req.DelaySeconds) * time.Second
	if err := h.processor.Enqueue(tx, delay); err != nil {
		h.sendError(w, err.Error(), http.StatusUnprocessableEntity, "VALIDATION_ERROR")
		return
	}

	response := TransactionResponse{
		ID:      tx.ID,
		Status:  tx.Status(),
		Fee:     tx.Fee,
		Total:   tx.TotalAmount(),
		Message: "Transaction queued",
	}

	h.sendJSON(w, response, http.StatusAccepted)
	h.logger.Info("Transaction accepted",
		slog.String("transaction_id", tx.ID),
		slog.String("type", string(tx.Type)),
		slog.Int("delay_seconds", req.DelaySeconds))
}

// buildTransaction dispatches to the factory constructor for the requested
// type. Transfers check whether the two accounts settle in different
// currencies, which carries the conversion surcharge.
func (h *APIHandler) buildTransaction(ctx context.Context, req CreateTransactionRequest) (*domain.Transaction, error) {
	switch req.Type {
	case domain.TypeDeposit:
		return h.factory.NewDeposit(req.ToAccountID, req.Amount, req.Currency), nil
	case domain.TypeWithdrawal:
		return h.factory.NewWithdrawal(req.FromAccountID, req.Amount, req.Currency), nil
	case domain.TypeTransfer:
		return h.factory.NewTransfer(req.FromAccountID, req.ToAccountID, req.Amount, req.Currency,
			h.crossCurrency(ctx, req.FromAccountID, req.ToAccountID)), nil
	case domain.TypeExternalTransfer:
		return h.factory.NewExternalTransfer(req.FromAccountID, req.Amount, req.Currency,
			h.senderCurrencyDiffers(ctx, req.FromAccountID, req.Currency)), nil
	default:
		return nil, fmt.Errorf("unknown transaction type: %s", req.Type)
	}
}

// crossCurrency reports whether sender and receiver settle in different
// currencies. Unresolvable accounts count as same-currency here; the
// processor rejects the transaction when it actually runs.
func (h *APIHandler) crossCurrency(ctx context.Context, fromID, toID string) bool {
	from, err := h.accounts.GetByID(ctx, fromID)
	if err != nil {
		return false
	}
	to, err := h.accounts.GetByID(ctx, toID)
	if err != nil {
		return false
	}
	return from.Currency() != to.Currency()
}

func (h *APIHandler) senderCurrencyDiffers(ctx context.Context, fromID string, c domain.Currency) bool {
	from, err := h.accounts.GetByID(ctx, fromID)
	if err != nil {
		return false
	}
	return from.Currency() != c
}

func (h *APIHandler) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	transactionID := r.PathValue("id")
	if transactionID == "" {
		h.sendError(w, "Transaction ID is required", http.StatusBadRequest, "MISSING_ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	tx, err := h.processor.GetTransaction(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.sendError(w, "Transaction not found", http.StatusNotFound, "NOT_FOUND")
		} else {
			h.sendError(w, "Failed to get transaction", http.StatusInternalServerError, "SERVER_ERROR")
		}
		return
	}

	h.sendJSON(w, tx.Snapshot(), http.StatusOK)
}

// CancelTransactionHandler cancels a queued transaction. Cancellation is
// cooperative: anything past Pending is refused.
func (h *APIHandler) CancelTransactionHandler(w http.ResponseWriter, r *http.Request) {
	transactionID := r.PathValue("id")
	if transactionID == "" {
		h.sendError(w, "Transaction ID is required", http.StatusBadRequest, "MISSING_ID")
		return
	}

	cancelled := h.processor.CancelTransaction(transactionID)
	if !cancelled {
		h.sendError(w, "Transaction is not pending", http.StatusConflict, "NOT_CANCELLABLE")
		return
	}

	h.logger.Info("Transaction cancelled", slog.String("transaction_id", transactionID))
	h.sendJSON(w, CancelResponse{ID: transactionID, Cancelled: true}, http.StatusOK)
}

func (h *APIHandler) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("id")
	if accountID == "" {
		h.sendError(w, "Account ID is required", http.StatusBadRequest, "MISSING_ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	account, err := h.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.sendError(w, "Account not found", http.StatusNotFound, "NOT_FOUND")
		} else {
			h.sendError(w, "Failed to get account", http.StatusInternalServerError, "SERVER_ERROR")
		}
		return
	}

	h.sendJSON(w, account.Info(), http.StatusOK)
}

// AccountTransactionsHandler lists an account's processed transactions,
// newest first, paginated by limit and offset query parameters.
func (h *APIHandler) AccountTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("id")
	if accountID == "" {
		h.sendError(w, "Account ID is required", http.StatusBadRequest, "MISSING_ID")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.sendError(w, "limit must be a positive integer", http.StatusBadRequest, "VALIDATION_ERROR")
			return
		}
		limit = parsed
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.sendError(w, "offset must not be negative", http.StatusBadRequest, "VALIDATION_ERROR")
			return
		}
		offset = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	txs, err := h.transactions.GetByAccountID(ctx, accountID, limit, offset)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.sendError(w, "No transactions for account", http.StatusNotFound, "NOT_FOUND")
		} else {
			h.sendError(w, "Failed to list transactions", http.StatusInternalServerError, "SERVER_ERROR")
		}
		return
	}

	h.sendJSON(w, snapshots(txs), http.StatusOK)
}

type DailyVolumeResponse struct {
	AccountID string          `json:"account_id"`
	Date      string          `json:"date"`
	Volume    decimal.Decimal `json:"volume"`
}

// AccountDailyVolumeHandler reports the sum of an account's completed
// transaction amounts for one calendar day. The date query parameter is
// YYYY-MM-DD and defaults to today.
func (h *APIHandler) AccountDailyVolumeHandler(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("id")
	if accountID == "" {
		h.sendError(w, "Account ID is required", http.StatusBadRequest, "MISSING_ID")
		return
	}

	date := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			h.sendError(w, "date must be YYYY-MM-DD", http.StatusBadRequest, "VALIDATION_ERROR")
			return
		}
		date = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	volume, err := h.transactions.GetDailyVolume(ctx, accountID, date)
	if err != nil {
		h.sendError(w, "Failed to compute daily volume", http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	h.sendJSON(w, DailyVolumeResponse{
		AccountID: accountID,
		Date:      date.Format("2006-01-02"),
		Volume:    volume,
	}, http.StatusOK)
}

// ListTransactionsHandler lists processed transactions by status. Only
// terminal records are persisted, so completed and failed are the useful
// filters.
func (h *APIHandler) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	status := domain.TransactionStatus(r.URL.Query().Get("status"))
	switch status {
	case domain.StatusPending, domain.StatusProcessing, domain.StatusCompleted,
		domain.StatusFailed, domain.StatusCancelled:
	default:
		h.sendError(w, "status query parameter is required", http.StatusBadRequest, "VALIDATION_ERROR")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	txs, err := h.transactions.GetByStatus(ctx, status)
	if err != nil {
		h.sendError(w, "Failed to list transactions", http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	h.sendJSON(w, snapshots(txs), http.StatusOK)
}

// TransactionsReportHandler lists processed transactions inside a time
// window, oldest first. from and to are RFC 3339 timestamps.
func (h *APIHandler) TransactionsReportHandler(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		h.sendError(w, "from must be an RFC 3339 timestamp", http.StatusBadRequest, "VALIDATION_ERROR")
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		h.sendError(w, "to must be an RFC 3339 timestamp", http.StatusBadRequest, "VALIDATION_ERROR")
		return
	}
	if to.Before(from) {
		h.sendError(w, "to must not precede from", http.StatusBadRequest, "VALIDATION_ERROR")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	txs, err := h.transactions.GetByPeriod(ctx, from, to)
	if err != nil {
		h.sendError(w, "Failed to build report", http.StatusInternalServerError, "SERVER_ERROR")
		return
	}

	h.sendJSON(w, snapshots(txs), http.StatusOK)
}

// OwnerAccountsHandler lists every account registered to an owner.
func (h *APIHandler) OwnerAccountsHandler(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	if owner == "" {
		h.sendError(w, "Owner is required", http.StatusBadRequest, "MISSING_ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	accounts, err := h.accounts.GetByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.sendError(w, "Owner has no accounts", http.StatusNotFound, "NOT_FOUND")
		} else {
			h.sendError(w, "Failed to list accounts", http.StatusInternalServerError, "SERVER_ERROR")
		}
		return
	}

	infos := make([]map[string]any, 0, len(accounts))
	for _, account := range accounts {
		infos = append(infos, account.Info())
	}
	h.sendJSON(w, infos, http.StatusOK)
}

func snapshots(txs []*domain.Transaction) []domain.TransactionSnapshot {
	out := make([]domain.TransactionSnapshot, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.Snapshot())
	}
	return out
}

// FailedTransactionsHandler exposes the processor's failure audit list.
func (h *APIHandler) FailedTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, snapshots(h.processor.FailedTransactions()), http.StatusOK)
}

func (h *APIHandler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":               "healthy",
		"timestamp":            time.Now().UTC(),
		"pending_transactions": h.processor.PendingCount(),
	}
	h.sendJSON(w, response, http.StatusOK)
}

func (h *APIHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", slog.String("error", err.Error()))
	}
}

func (h *APIHandler) sendError(w http.ResponseWriter, message string, statusCode int, code string) {
	errorResponse := ErrorResponse{
		Error: message,
		Code:  code,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorResponse)

	h.logger.Warn("API error response",
		slog.String("message", message),
		slog.String("code", code),
		slog.Int("status", statusCode))
}

func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/transactions", h.CreateTransactionHandler)
	mux.HandleFunc("GET /api/v1/transactions", h.ListTransactionsHandler)
	mux.HandleFunc("GET /api/v1/transactions/failed", h.FailedTransactionsHandler)
	mux.HandleFunc("GET /api/v1/transactions/report", h.TransactionsReportHandler)
	mux.HandleFunc("GET /api/v1/transactions/{id}", h.GetTransactionHandler)
	mux.HandleFunc("POST /api/v1/transactions/{id}/cancel", h.CancelTransactionHandler)
	mux.HandleFunc("GET /api/v1/accounts/{id}", h.GetAccountHandler)
	mux.HandleFunc("GET /api/v1/accounts/{id}/transactions", h.AccountTransactionsHandler)
	mux.HandleFunc("GET /api/v1/accounts/{id}/volume", h.AccountDailyVolumeHandler)
	mux.HandleFunc("GET /api/v1/owners/{owner}/accounts", h.OwnerAccountsHandler)
	mux.HandleFunc("GET /api/health", h.HealthCheckHandler)
}
