package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is one money-movement record. FromAccount and ToAccount are
// nullable but at least one must be set: deposits carry only ToAccount,
// withdrawals only FromAccount, transfers both. Update and refund mutate
// the record in place rather than appending a reversing entry.
type Transaction struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Amount        int64      `json:"amount" db:"amount"`
	DepositorName string     `json:"depositorName" db:"depositor_name"`
	FromAccount   *string    `json:"fromAccount,omitempty" db:"from_account"`
	ToAccount     *string    `json:"toAccount,omitempty" db:"to_account"`
	DummyID       *uuid.UUID `json:"dummyId,omitempty" db:"dummy_id"`
	IsDeleted     bool       `json:"-" db:"is_deleted"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

// SearchType restricts an account-scoped search to one direction.
type SearchType string

const (
	SearchAll            SearchType = "ALL"
	SearchDepositOnly    SearchType = "DEPOSIT_ONLY"
	SearchWithdrawalOnly SearchType = "WITHDRAWAL_ONLY"
)

// OrderBy selects the sort order of a transaction search.
type OrderBy string

const (
	OrderLatest     OrderBy = "LATEST"
	OrderOldest     OrderBy = "OLDEST"
	OrderAmountAsc  OrderBy = "AMOUNT_ASC"
	OrderAmountDesc OrderBy = "AMOUNT_DESC"
)

// TransactionFilter is the filter specification consumed by the search
// service. Nil/zero fields are unconstrained.
type TransactionFilter struct {
	BankID               *uuid.UUID `json:"bankId"`
	OnlyDummy            bool       `json:"isDummy"`
	DepositorNameKeyword string     `json:"depositorNameKeyword"`
	AccountID            string     `json:"accountId"`
	DummyName            string     `json:"dummyName"`
	FromAmount           *int64     `json:"fromAmount"`
	ToAmount             *int64     `json:"toAmount"`
	FromDate             *time.Time `json:"fromDate"`
	ToDate               *time.Time `json:"toDate"`
	SearchType           SearchType `json:"searchType"`
	OrderBy              OrderBy    `json:"orderBy"`
}

// Page is limit/offset pagination input.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// TransactionPage is one page of search results with the total match count.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Total        int64         `json:"total"`
	Limit        int           `json:"limit"`
	Offset       int           `json:"offset"`
}
