package models

import (
	"time"

	"github.com/google/uuid"
)

// Bank is a tenant-scoped bank. Every account belongs to exactly one bank
// and every bank to exactly one admin.
type Bank struct {
	ID        uuid.UUID `json:"id" db:"id"`
	AdminID   uuid.UUID `json:"adminId" db:"admin_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Admin is an authenticated principal owning zero or more banks.
type Admin struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// APIKey resolves an issued key to its owning admin.
type APIKey struct {
	Key       uuid.UUID `json:"key" db:"key"`
	AdminID   uuid.UUID `json:"adminId" db:"admin_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Member is an account holder inside a bank.
type Member struct {
	ID     uuid.UUID `json:"id" db:"id"`
	Name   string    `json:"name" db:"name"`
	BankID uuid.UUID `json:"bankId" db:"bank_id"`
}

// Dummy is a synthetic counterparty used to attribute simulated
// transactions.
type Dummy struct {
	ID      uuid.UUID `json:"id" db:"id"`
	Name    string    `json:"name" db:"name"`
	AdminID uuid.UUID `json:"adminId" db:"admin_id"`
}

// BankStats aggregates a bank's transaction activity for the admin console.
type BankStats struct {
	TransactionCount int64          `json:"transactionCount"`
	TotalDeposit     int64          `json:"totalDeposit"`
	TotalWithdraw    int64          `json:"totalWithdraw"`
	WeeklyFlow       []DayMoneyFlow `json:"weeklyFlow"`
}

// DayMoneyFlow is one day of aggregated deposits and withdrawals.
type DayMoneyFlow struct {
	Date     string `json:"date"`
	Deposit  int64  `json:"deposit"`
	Withdraw int64  `json:"withdraw"`
}
