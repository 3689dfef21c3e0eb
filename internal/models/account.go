package models

import (
	"time"

	"github.com/google/uuid"
)

// TaxType classifies how interest on an account is taxed.
type TaxType string

const (
	TaxGeneral TaxType = "TAX"
	TaxFree    TaxType = "NO_TAX"
)

// Account is a bank account row. Balance is kept in the smallest currency
// unit and must never go negative after a committed operation. All balance
// mutations go through the ledger service inside a database transaction.
type Account struct {
	ID              string     `json:"id" db:"id"`
	Name            string     `json:"name" db:"name"`
	Balance         int64      `json:"balance" db:"balance"`
	Password        string     `json:"-" db:"password"`
	IsDormant       bool       `json:"isDormant" db:"is_dormant"`
	TransferLimit   int64      `json:"transferLimit" db:"transfer_limit"`
	PaymentNum      int        `json:"paymentNum" db:"payment_num"`
	NonPaymentNum   int        `json:"nonPaymentNum" db:"non_payment_num"`
	StartDate       string     `json:"startDate" db:"start_date"`
	EndDate         string     `json:"endDate" db:"end_date"` // MM/dd/yyyy
	Term            int        `json:"term" db:"term"`        // months
	DepositAccount  string     `json:"depositAccount" db:"deposit_account"`
	WithdrawAccount string     `json:"withdrawAccount" db:"withdraw_account"`
	Amount          int64      `json:"amount" db:"amount"` // per-period installment amount
	BankID          uuid.UUID  `json:"bankId" db:"bank_id"`
	MemberID        *uuid.UUID `json:"memberId,omitempty" db:"member_id"`
	DummyID         *uuid.UUID `json:"dummyId,omitempty" db:"dummy_id"`
	ProductID       *uuid.UUID `json:"productId,omitempty" db:"product_id"`
	TaxType         TaxType    `json:"taxType" db:"tax_type"`
	Version         int        `json:"version" db:"version"` // for optimistic locking
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at"`
}
