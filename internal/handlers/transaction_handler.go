package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joabank/backend/internal/models"
	"github.com/joabank/backend/internal/services"
)

// TransactionHandler maps the openapi transaction surface onto the engine.
// Every route behind it runs under the API key middleware, so the key is
// always present in the request context.
type TransactionHandler struct {
	engine    *services.TransactionService
	search    *services.SearchService
	ledger    *services.LedgerService
	validator *services.ValidationHelper
}

func NewTransactionHandler(engine *services.TransactionService, search *services.SearchService, ledger *services.LedgerService) *TransactionHandler {
	return &TransactionHandler{
		engine:    engine,
		search:    search,
		ledger:    ledger,
		validator: services.NewValidationHelper(),
	}
}

func apiKeyFromContext(r *http.Request) (uuid.UUID, bool) {
	apiKey, ok := r.Context().Value("apiKey").(uuid.UUID)
	return apiKey, ok
}

type DepositRequest struct {
	AccountID     string  `json:"accountId" validate:"required"`
	Amount        int64   `json:"amount" validate:"required,gt=0"`
	Password      string  `json:"password" validate:"required"`
	DepositorName *string `json:"depositorName"`
	DummyID       *string `json:"dummyId" validate:"omitempty,uuid"`
}

type WithdrawRequest struct {
	AccountID     string  `json:"accountId" validate:"required"`
	Amount        int64   `json:"amount" validate:"required,gt=0"`
	Password      string  `json:"password" validate:"required"`
	DepositorName *string `json:"depositorName"`
}

type TransferRequest struct {
	FromAccount   string  `json:"fromAccount" validate:"required"`
	ToAccount     string  `json:"toAccount" validate:"required"`
	Amount        int64   `json:"amount" validate:"required,gt=0"`
	Password      string  `json:"password" validate:"required"`
	DepositorName *string `json:"depositorName"`
	DummyID       *string `json:"dummyId" validate:"omitempty,uuid"`
}

type UpdateRequest struct {
	Amount        *int64  `json:"amount"`
	DepositorName *string `json:"depositorName"`
	FromAccount   *string `json:"fromAccount"`
	ToAccount     *string `json:"toAccount"`
}

type RefundRequest struct {
	Amount        *int64  `json:"amount"`
	DepositorName *string `json:"depositorName"`
	FromAccount   *string `json:"fromAccount"`
	ToAccount     *string `json:"toAccount"`
}

type ConfirmRequest struct {
	Word string `json:"word" validate:"required"`
}

// Deposit credits an account
// @Summary Deposit
// @Description Credit an account and record the movement
// @Tags transactions
// @Accept json
// @Produce json
// @Param X-API-KEY header string true "API key"
// @Param request body DepositRequest true "Deposit request"
// @Success 200 {object} services.BalanceChange
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /api/transactions/deposit [post]
func (h *TransactionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	apiKey, ok := apiKeyFromContext(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.engine.Deposit(r.Context(), apiKey, req.AccountID, req.Amount,
		req.Password, req.DepositorName, parseOptionalUUID(req.DummyID))
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// Withdraw debits an account
// @Summary Withdraw
// @Description Debit an account and record the movement
// @Tags transactions
// @Accept json
// @Produce json
// @Param X-API-KEY header string true "API key"
// @Param request body WithdrawRequest true "Withdraw request"
// @Success 200 {object} services.BalanceChange
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /api/transactions/withdraw [post]
func (h *TransactionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	apiKey, ok := apiKeyFromContext(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.engine.Withdraw(r.Context(), apiKey, req.AccountID, req.Amount,
		req.Password, req.DepositorName)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// Transfer moves money between two accounts
// @Summary Transfer
// @Description Move an amount between two accounts as one atomic movement
// @Tags transactions
// @Accept json
// @Produce json
// @Param X-API-KEY header string true "API key"
// @Param request body TransferRequest true "Transfer request"
// @Success 200 {object} services.TransferResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /api/transactions/transfer [post]
func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	apiKey, ok := apiKeyFromContext(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.engine.Transfer(r.Context(), apiKey, req.FromAccount, req.ToAccount,
		req.Amount, req.Password, req.DepositorName, parseOptionalUUID(req.DummyID))
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// Update corrects a recorded transaction
// @Summary Update transaction
// @Description Correct a transaction's fields and re-apply the new amount
// @Tags transactions
// @Accept json
// @Produce json
// @Param X-API-KEY header string true "API key"
// @Param transactionId path string true "Transaction ID"
// @Param request body UpdateRequest true "Update request"
// @Success 200 {object} models.Transaction
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /api/transactions/{transactionId} [patch]
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	apiKey, ok := apiKeyFromContext(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	transactionID, err := uuid.Parse(chi.URLParam(r, "transactionId"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid transaction id", http.StatusBadRequest, nil)
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	record, err := h.engine.Update(r.Context(), apiKey, transactionID, services.UpdateInput{
		Amount:        req.Amount,
		DepositorName: req.DepositorName,
		FromAccount:   req.FromAccount,
		ToAccount:     req.ToAccount,
	})
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

// Refund reverses a transaction's amount and rewrites its record
// @Summary Refund transaction
// @Description Reverse the original amount and overwrite the record
// @Tags transactions
// @Accept json
// @Produce json
// @Param X-API-KEY header string true "API key"
// @Param transactionId path string true "Transaction ID"
// @Param request body RefundRequest true "Refund request"
// @Success 200 {object} models.Transaction
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /api/transactions/{transactionId}/refund [post]
func (h *TransactionHandler) Refund(w http.ResponseWriter, r *http.Request) {
	apiKey, ok := apiKeyFromContext(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	transactionID, err := uuid.Parse(chi.URLParam(r, "transactionId"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid transaction id", http.StatusBadRequest, nil)
		return
	}

	var req RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	record, err := h.engine.Refund(r.Context(), apiKey, transactionID, services.RefundInput{
		Amount:        req.Amount,
		DepositorName: req.DepositorName,
		FromAccount:   req.FromAccount,
		ToAccount:     req.ToAccount,
	})
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

// SoftDelete marks a transaction as deleted
// @Summary Delete transaction
// @Description Mark a transaction as logically deleted without reversing balances
// @Tags transactions
// @Produce json
// @Param X-API-KEY header string true "API key"
// @Param transactionId path string true "Transaction ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} services.ErrorResponse
// @Router /api/transactions/{transactionId} [delete]
func (h *TransactionHandler) SoftDelete(w http.ResponseWriter, r *http.Request) {
	apiKey, ok := apiKeyFromContext(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	transactionID, err := uuid.Parse(chi.URLParam(r, "transactionId"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid transaction id", http.StatusBadRequest, nil)
		return
	}

	if err := h.engine.SoftDelete(r.Context(), apiKey, transactionID); err != nil {
		services.SendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
}

// OneWonProbe starts account ownership verification
// @Summary One won probe
// @Description Credit one unit with a random secret word as depositor name
// @Tags verification
// @Produce json
// @Param X-API-KEY header string true "API key"
// @Param accountId path string true "Account ID"
// @Success 200 {object} services.ProbeResult
// @Failure 404 {object} services.ErrorResponse
// @Router /api/accounts/{accountId}/one-won [post]
func (h *TransactionHandler) OneWonProbe(w http.ResponseWriter, r *http.Request) {
	apiKey, ok := apiKeyFromContext(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	accountID := chi.URLParam(r, "accountId")
	result, err := h.engine.OneWonProbe(r.Context(), apiKey, accountID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// OneWonConfirm checks the probe's secret word
// @Summary One won confirm
// @Description Confirm ownership by matching the probe's secret word
// @Tags verification
// @Accept json
// @Produce json
// @Param X-API-KEY header string true "API key"
// @Param transactionId path string true "Probe transaction ID"
// @Param request body ConfirmRequest true "Confirmation request"
// @Success 200 {object} map[string]string
// @Failure 400 {object} services.ErrorResponse
// @Router /api/transactions/{transactionId}/one-won-confirm [post]
func (h *TransactionHandler) OneWonConfirm(w http.ResponseWriter, r *http.Request) {
	transactionID, err := uuid.Parse(chi.URLParam(r, "transactionId"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid transaction id", http.StatusBadRequest, nil)
		return
	}

	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := h.engine.OneWonConfirm(r.Context(), transactionID, req.Word); err != nil {
		services.SendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "confirmed"})
}

// Get returns one transaction
// @Summary Get transaction
// @Tags transactions
// @Produce json
// @Param X-API-KEY header string true "API key"
// @Param transactionId path string true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 404 {object} services.ErrorResponse
// @Router /api/transactions/{transactionId} [get]
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	transactionID, err := uuid.Parse(chi.URLParam(r, "transactionId"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid transaction id", http.StatusBadRequest, nil)
		return
	}

	record, err := h.ledger.GetTransaction(r.Context(), transactionID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

// Search runs the filtered, paginated transaction search
// @Summary Search transactions
// @Description Search transactions visible to the caller's tenant
// @Tags transactions
// @Produce json
// @Param X-API-KEY header string true "API key"
// @Param bankId query string false "Bank ID"
// @Param accountId query string false "Account ID"
// @Param searchType query string false "ALL, DEPOSIT_ONLY or WITHDRAWAL_ONLY"
// @Param depositorName query string false "Depositor name keyword"
// @Param dummyName query string false "Synthetic counterparty name"
// @Param isDummy query bool false "Only dummy-linked transactions"
// @Param fromAmount query int false "Amount lower bound"
// @Param toAmount query int false "Amount upper bound"
// @Param fromDate query string false "Created-at lower bound (RFC 3339)"
// @Param toDate query string false "Created-at upper bound (RFC 3339)"
// @Param orderBy query string false "LATEST, OLDEST, AMOUNT_ASC or AMOUNT_DESC"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} models.TransactionPage
// @Failure 401 {object} services.ErrorResponse
// @Router /api/transactions [get]
func (h *TransactionHandler) Search(w http.ResponseWriter, r *http.Request) {
	apiKey, ok := apiKeyFromContext(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	filter, page, err := parseSearchQuery(r)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	result, err := h.search.Search(r.Context(), apiKey, filter, page)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func parseSearchQuery(r *http.Request) (models.TransactionFilter, models.Page, error) {
	q := r.URL.Query()
	var filter models.TransactionFilter
	var page models.Page

	if v := q.Get("bankId"); v != "" {
		bankID, err := uuid.Parse(v)
		if err != nil {
			return filter, page, err
		}
		filter.BankID = &bankID
	}

	filter.AccountID = q.Get("accountId")
	filter.DepositorNameKeyword = q.Get("depositorName")
	filter.DummyName = q.Get("dummyName")
	filter.SearchType = models.SearchType(q.Get("searchType"))
	filter.OrderBy = models.OrderBy(q.Get("orderBy"))
	filter.OnlyDummy = q.Get("isDummy") == "true"

	if v := q.Get("fromAmount"); v != "" {
		amount, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, page, err
		}
		filter.FromAmount = &amount
	}
	if v := q.Get("toAmount"); v != "" {
		amount, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, page, err
		}
		filter.ToAmount = &amount
	}
	if v := q.Get("fromDate"); v != "" {
		date, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, page, err
		}
		filter.FromDate = &date
	}
	if v := q.Get("toDate"); v != "" {
		date, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, page, err
		}
		filter.ToDate = &date
	}

	if v := q.Get("limit"); v != "" {
		page.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		page.Offset, _ = strconv.Atoi(v)
	}
	return filter, page, nil
}

func parseOptionalUUID(s *string) *uuid.UUID {
	if s == nil || *s == "" {
		return nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil
	}
	return &id
}
