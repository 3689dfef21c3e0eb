package services

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joabank/backend/internal/models"
)

// BankService exposes the admin console's bank management surface: banks,
// their members and synthetic counterparties, account opening, and the
// per-bank activity stats.
type BankService struct {
	db        *sql.DB
	search    *SearchService
	validator *ValidationHelper
}

func NewBankService(db *sql.DB, search *SearchService) *BankService {
	return &BankService{
		db:        db,
		search:    search,
		validator: NewValidationHelper(),
	}
}

type CreateBankRequest struct {
	Name string `json:"name" validate:"required,min=2"`
}

type CreateMemberRequest struct {
	Name   string `json:"name" validate:"required,min=2"`
	BankID string `json:"bankId" validate:"required,uuid"`
}

type CreateDummyRequest struct {
	Name string `json:"name" validate:"required,min=2"`
}

type OpenAccountRequest struct {
	AccountID string `json:"accountId" validate:"required,min=4"`
	Name      string `json:"name" validate:"required"`
	Password  string `json:"password" validate:"required,min=4"`
	BankID    string `json:"bankId" validate:"required,uuid"`
	MemberID  string `json:"memberId" validate:"omitempty,uuid"`
	ProductID string `json:"productId" validate:"omitempty,uuid"`
	Balance   int64  `json:"balance" validate:"gte=0"`
	EndDate   string `json:"endDate"` // MM/dd/yyyy
	Term      int    `json:"term" validate:"gte=0"`
	Amount    int64  `json:"amount" validate:"gte=0"`
	TaxType   string `json:"taxType" validate:"omitempty,oneof=TAX NO_TAX"`
}

func adminFromContext(r *http.Request) (uuid.UUID, bool) {
	adminID, ok := r.Context().Value("adminID").(uuid.UUID)
	return adminID, ok
}

// CreateBank creates a bank for the authenticated admin
// @Summary Create bank
// @Tags banks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateBankRequest true "Bank to create"
// @Success 201 {object} models.Bank
// @Failure 400 {object} ErrorResponse
// @Router /admin/banks [post]
func (bs *BankService) CreateBank(w http.ResponseWriter, r *http.Request) {
	adminID, ok := adminFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req CreateBankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := bs.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	bank := models.Bank{ID: uuid.New(), AdminID: adminID, Name: req.Name}
	err := bs.db.QueryRow(`INSERT INTO banks (id, admin_id, name) VALUES ($1, $2, $3) RETURNING created_at`,
		bank.ID, bank.AdminID, bank.Name).Scan(&bank.CreatedAt)
	if err != nil {
		log.Printf("[BANK] Bank creation failed: %v", err)
		SendErrorResponse(w, "Failed to create bank", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(bank)
}

// ListBanks lists the authenticated admin's banks
// @Summary List banks
// @Tags banks
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Bank
// @Router /admin/banks [get]
func (bs *BankService) ListBanks(w http.ResponseWriter, r *http.Request) {
	adminID, ok := adminFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	rows, err := bs.db.Query(`SELECT id, admin_id, name, created_at FROM banks WHERE admin_id = $1 ORDER BY created_at`, adminID)
	if err != nil {
		SendErrorResponse(w, "Failed to list banks", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	banks := []models.Bank{}
	for rows.Next() {
		var bank models.Bank
		if err := rows.Scan(&bank.ID, &bank.AdminID, &bank.Name, &bank.CreatedAt); err != nil {
			SendErrorResponse(w, "Failed to list banks", http.StatusInternalServerError, nil)
			return
		}
		banks = append(banks, bank)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(banks)
}

// CreateMember registers an account holder inside an owned bank
// @Summary Create member
// @Tags banks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateMemberRequest true "Member to create"
// @Success 201 {object} models.Member
// @Failure 400 {object} ErrorResponse
// @Failure 403 {string} string "Bank not owned by caller"
// @Router /admin/members [post]
func (bs *BankService) CreateMember(w http.ResponseWriter, r *http.Request) {
	adminID, ok := adminFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req CreateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := bs.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	bankID := uuid.MustParse(req.BankID)
	if !bs.ownsBank(adminID, bankID) {
		SendErrorResponse(w, "Bank not owned by caller", http.StatusForbidden, nil)
		return
	}

	member := models.Member{ID: uuid.New(), Name: req.Name, BankID: bankID}
	if _, err := bs.db.Exec(`INSERT INTO members (id, name, bank_id) VALUES ($1, $2, $3)`,
		member.ID, member.Name, member.BankID); err != nil {
		log.Printf("[BANK] Member creation failed: %v", err)
		SendErrorResponse(w, "Failed to create member", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(member)
}

// CreateDummy registers a synthetic counterparty for the admin
// @Summary Create dummy
// @Tags banks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateDummyRequest true "Dummy to create"
// @Success 201 {object} models.Dummy
// @Router /admin/dummies [post]
func (bs *BankService) CreateDummy(w http.ResponseWriter, r *http.Request) {
	adminID, ok := adminFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req CreateDummyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := bs.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	dummy := models.Dummy{ID: uuid.New(), Name: req.Name, AdminID: adminID}
	if _, err := bs.db.Exec(`INSERT INTO dummies (id, name, admin_id) VALUES ($1, $2, $3)`,
		dummy.ID, dummy.Name, dummy.AdminID); err != nil {
		log.Printf("[BANK] Dummy creation failed: %v", err)
		SendErrorResponse(w, "Failed to create dummy", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(dummy)
}

// OpenAccount opens an account in an owned bank
// @Summary Open account
// @Tags banks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body OpenAccountRequest true "Account to open"
// @Success 201 {object} models.Account
// @Failure 400 {object} ErrorResponse
// @Failure 403 {string} string "Bank not owned by caller"
// @Router /admin/accounts [post]
func (bs *BankService) OpenAccount(w http.ResponseWriter, r *http.Request) {
	adminID, ok := adminFromContext(r)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req OpenAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := bs.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	bankID := uuid.MustParse(req.BankID)
	if !bs.ownsBank(adminID, bankID) {
		SendErrorResponse(w, "Bank not owned by caller", http.StatusForbidden, nil)
		return
	}

	account := models.Account{
		ID:       req.AccountID,
		Name:     req.Name,
		Balance:  req.Balance,
		Password: req.Password,
		EndDate:  req.EndDate,
		Term:     req.Term,
		Amount:   req.Amount,
		BankID:   bankID,
		TaxType:  models.TaxGeneral,
	}
	if req.TaxType != "" {
		account.TaxType = models.TaxType(req.TaxType)
	}
	if req.MemberID != "" {
		memberID := uuid.MustParse(req.MemberID)
		account.MemberID = &memberID
	}
	if req.ProductID != "" {
		productID := uuid.MustParse(req.ProductID)
		account.ProductID = &productID
	}

	_, err := bs.db.Exec(`
		INSERT INTO accounts (id, name, balance, password, end_date, term, amount, bank_id, member_id, product_id, tax_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		account.ID, account.Name, account.Balance, account.Password, account.EndDate,
		account.Term, account.Amount, account.BankID, account.MemberID, account.ProductID, account.TaxType)
	if err != nil {
		log.Printf("[BANK] Account opening failed: %v", err)
		SendErrorResponse(w, "Failed to open account", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(account)
}

// GetBankStats returns aggregated activity for an owned bank
// @Summary Bank stats
// @Tags banks
// @Produce json
// @Param X-API-KEY header string true "API key"
// @Param bankId path string true "Bank ID"
// @Success 200 {object} models.BankStats
// @Failure 403 {string} string "Bank not owned by caller"
// @Router /api/banks/{bankId}/stats [get]
func (bs *BankService) GetBankStats(w http.ResponseWriter, r *http.Request) {
	apiKey, ok := r.Context().Value("apiKey").(uuid.UUID)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	bankID, err := uuid.Parse(chi.URLParam(r, "bankId"))
	if err != nil {
		SendErrorResponse(w, "Invalid bank id", http.StatusBadRequest, nil)
		return
	}

	stats, err := bs.search.BankStats(r.Context(), apiKey, bankID)
	if err != nil {
		SendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (bs *BankService) ownsBank(adminID, bankID uuid.UUID) bool {
	var ownerID uuid.UUID
	if err := bs.db.QueryRow(`SELECT admin_id FROM banks WHERE id = $1`, bankID).Scan(&ownerID); err != nil {
		return false
	}
	return ownerID == adminID
}
