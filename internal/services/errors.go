package services

import "errors"

// Operation failures surfaced to callers. All are recoverable: a failed
// operation leaves every balance and transaction record untouched.
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrBankNotFound        = errors.New("bank not found")
	ErrDummyNotFound       = errors.New("dummy not found")
	ErrInvalidAPIKey       = errors.New("invalid api key")
	ErrUnauthorized        = errors.New("bank is not owned by caller")
	ErrPasswordMismatch    = errors.New("account password mismatch")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrWordMismatch        = errors.New("verification word mismatch")
	ErrAmountRequired      = errors.New("refund requires a new amount")
	ErrRefundUnavailable   = errors.New("refund unavailable: destination balance below original amount")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrSameAccount         = errors.New("transfer source and destination must differ")
)
