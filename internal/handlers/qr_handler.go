package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/joabank/backend/internal/services"
)

// QRHandler issues and redeems one-time deposit QR codes. Redeeming a code
// runs the encoded deposit through the transaction engine under the
// redeeming caller's API key.
type QRHandler struct {
	qr        *services.QRService
	engine    *services.TransactionService
	validator *services.ValidationHelper
}

func NewQRHandler(qr *services.QRService, engine *services.TransactionService) *QRHandler {
	return &QRHandler{
		qr:        qr,
		engine:    engine,
		validator: services.NewValidationHelper(),
	}
}

// GenerateQR issues a deposit QR code
// @Summary Generate deposit QR
// @Description Generate a one-time QR code fixing a deposit target and amount
// @Tags QR
// @Accept json
// @Produce json
// @Param X-API-KEY header string true "API key"
// @Param request body object{accountId=string,amount=int64,depositorName=string} true "QR generation request"
// @Success 200 {object} object{qrCode=string,qrImage=string}
// @Failure 400 {object} services.ErrorResponse
// @Router /api/qr/generate [post]
func (h *QRHandler) GenerateQR(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID     string `json:"accountId" validate:"required"`
		Amount        int64  `json:"amount" validate:"required,gt=0"`
		DepositorName string `json:"depositorName"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	qrCode, qrImage, err := h.qr.GenerateDepositQR(r.Context(), req.AccountID, req.Amount, req.DepositorName)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"qrCode":  qrCode,
		"qrImage": qrImage,
	})
}

// RedeemQR redeems a scanned deposit QR code
// @Summary Redeem deposit QR
// @Description Consume a QR code and execute the encoded deposit
// @Tags QR
// @Accept json
// @Produce json
// @Param X-API-KEY header string true "API key"
// @Param request body object{qrCode=string,password=string} true "QR redemption request"
// @Success 200 {object} services.BalanceChange
// @Failure 400 {object} services.ErrorResponse
// @Router /api/qr/redeem [post]
func (h *QRHandler) RedeemQR(w http.ResponseWriter, r *http.Request) {
	apiKey, ok := apiKeyFromContext(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		QRCode   string `json:"qrCode" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	ticket, err := h.qr.RedeemDepositQR(r.Context(), req.QRCode)
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	var depositorName *string
	if ticket.DepositorName != "" {
		depositorName = &ticket.DepositorName
	}

	result, err := h.engine.Deposit(r.Context(), apiKey, ticket.AccountID, ticket.Amount,
		req.Password, depositorName, nil)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
