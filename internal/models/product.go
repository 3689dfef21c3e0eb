package models

import "github.com/google/uuid"

// PaymentType selects the interest formula for a product.
type PaymentType string

const (
	PaymentSimple   PaymentType = "SIMPLE"
	PaymentCompound PaymentType = "COMPOUND"
)

// ProductType is the tagged product variant dispatched by the rate
// calculator.
type ProductType string

const (
	OrdinaryDeposit ProductType = "ORDINARY_DEPOSIT"
	TermDeposit     ProductType = "TERM_DEPOSIT"
	FixedDeposit    ProductType = "FIXED_DEPOSIT"
)

// Product is an interest-bearing product definition. Rate is an annual
// percentage. Products are immutable after creation.
type Product struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	Rate        float64     `json:"rate" db:"rate"`
	PaymentType PaymentType `json:"paymentType" db:"payment_type"`
	ProductType ProductType `json:"productType" db:"product_type"`
	BankID      uuid.UUID   `json:"bankId" db:"bank_id"`
}
