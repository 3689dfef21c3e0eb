package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joabank/backend/internal/models"
	"github.com/joabank/backend/internal/services"
)

// ProductHandler exposes product creation and interest projection.
type ProductHandler struct {
	rates     *services.RateService
	validator *services.ValidationHelper
}

func NewProductHandler(rates *services.RateService) *ProductHandler {
	return &ProductHandler{
		rates:     rates,
		validator: services.NewValidationHelper(),
	}
}

type CreateProductRequest struct {
	Name        string  `json:"name" validate:"required,min=2"`
	Rate        float64 `json:"rate" validate:"gte=0"`
	PaymentType string  `json:"paymentType" validate:"required,oneof=SIMPLE COMPOUND"`
	ProductType string  `json:"productType" validate:"required,oneof=ORDINARY_DEPOSIT TERM_DEPOSIT FIXED_DEPOSIT"`
	BankID      string  `json:"bankId" validate:"required,uuid"`
}

type CalculateRateRequest struct {
	AccountID string `json:"accountId" validate:"required"`
	ProductID string `json:"productId" validate:"required,uuid"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Term      int    `json:"term" validate:"gte=0"`
}

// Create registers a product
// @Summary Create product
// @Description Register an immutable interest product
// @Tags products
// @Accept json
// @Produce json
// @Param X-API-KEY header string true "API key"
// @Param request body CreateProductRequest true "Product to create"
// @Success 201 {object} models.Product
// @Failure 400 {object} services.ErrorResponse
// @Router /api/products [post]
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	product := models.Product{
		Name:        req.Name,
		Rate:        req.Rate,
		PaymentType: models.PaymentType(req.PaymentType),
		ProductType: models.ProductType(req.ProductType),
		BankID:      uuid.MustParse(req.BankID),
	}
	if err := h.rates.CreateProduct(r.Context(), &product); err != nil {
		log.Printf("[PRODUCT] Creation failed: %v", err)
		services.SendErrorResponse(w, "Failed to create product", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(product)
}

// Get returns one product
// @Summary Get product
// @Tags products
// @Produce json
// @Param X-API-KEY header string true "API key"
// @Param productId path string true "Product ID"
// @Success 200 {object} models.Product
// @Failure 404 {object} services.ErrorResponse
// @Router /api/products/{productId} [get]
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid product id", http.StatusBadRequest, nil)
		return
	}

	product, err := h.rates.GetProduct(r.Context(), productID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(product)
}

// CalculateRate projects interest for an account and product
// @Summary Calculate rate
// @Description Project interest and total amount for a product
// @Tags products
// @Accept json
// @Produce json
// @Param X-API-KEY header string true "API key"
// @Param request body CalculateRateRequest true "Projection request"
// @Success 200 {object} services.RateResult
// @Failure 404 {object} services.ErrorResponse
// @Router /api/products/calculate-rate [post]
func (h *ProductHandler) CalculateRate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.rates.CalculateRate(r.Context(), req.AccountID,
		uuid.MustParse(req.ProductID), req.Amount, req.Term)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
