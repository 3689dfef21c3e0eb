package services

import (
	"context"
	"database/sql"
	"math"

	"github.com/google/uuid"
	"github.com/joabank/backend/internal/models"
)

// RateService computes interest amounts for account products. All formulas
// run in float64 and truncate toward zero on the final result only; the
// truncated amounts are what the ledger credits, so the rounding behavior
// is part of the external contract.
type RateService struct {
	db     *sql.DB
	ledger *LedgerService
}

func NewRateService(db *sql.DB, ledger *LedgerService) *RateService {
	return &RateService{db: db, ledger: ledger}
}

// RateResult is the projection returned by CalculateRate.
type RateResult struct {
	Interest    int64 `json:"interest"`
	TotalAmount int64 `json:"totalAmount"`
}

// TermDepositInterest projects interest for a lump-sum deposit held for
// termMonths at an annual percentage rate.
func TermDepositInterest(principal int64, annualRatePercent float64, termMonths int, paymentType models.PaymentType) RateResult {
	monthlyRate := annualRatePercent / 12 / 100

	if paymentType == models.PaymentCompound {
		total := int64(float64(principal) * math.Pow(1+monthlyRate, float64(termMonths)))
		return RateResult{Interest: total - principal, TotalAmount: total}
	}

	interest := int64(float64(principal) * monthlyRate * float64(termMonths))
	return RateResult{Interest: interest, TotalAmount: principal + interest}
}

// FixedDepositInterest projects interest for an installment product paying
// monthlyDeposit every month for termMonths. Simple interest weights each
// installment by its remaining months; compound interest truncates each
// installment's growth separately before summing.
func FixedDepositInterest(monthlyDeposit int64, annualRatePercent float64, termMonths int, paymentType models.PaymentType) RateResult {
	principal := monthlyDeposit * int64(termMonths)
	monthlyRate := annualRatePercent / 12 / 100

	if paymentType == models.PaymentCompound {
		var interest int64
		for i := 0; i < termMonths; i++ {
			interest += int64(float64(monthlyDeposit) * (math.Pow(1+monthlyRate, float64(termMonths-i)) - 1))
		}
		return RateResult{Interest: interest, TotalAmount: principal + interest}
	}

	weightedMonths := float64(termMonths) * float64(termMonths+1) / 2
	interest := int64(float64(monthlyDeposit) * weightedMonths * monthlyRate)
	return RateResult{Interest: interest, TotalAmount: principal + interest}
}

// PeriodicOrdinaryInterest computes one settlement tick's interest for an
// on-demand account. It is a single day's worth of the annual rate no
// matter how much real time passed between ticks; callers must not scale
// by the elapsed interval.
func PeriodicOrdinaryInterest(balance int64, annualRatePercent float64) int64 {
	dailyRate := annualRatePercent / 100 / 365
	return int64(float64(balance) * dailyRate)
}

// CalculateRate loads the account and product and dispatches on the product
// type. Ordinary deposits project zero interest here; they accrue through
// the settlement scheduler instead.
func (s *RateService) CalculateRate(ctx context.Context, accountID string, productID uuid.UUID, amount int64, termMonths int) (*RateResult, error) {
	if _, err := s.ledger.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	var result RateResult
	switch product.ProductType {
	case models.TermDeposit:
		result = TermDepositInterest(amount, product.Rate, termMonths, product.PaymentType)
	case models.FixedDeposit:
		result = FixedDepositInterest(amount, product.Rate, termMonths, product.PaymentType)
	default:
		result = RateResult{Interest: 0, TotalAmount: amount}
	}
	return &result, nil
}

// GetProduct is the point lookup for products.
func (s *RateService) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, rate, payment_type, product_type, bank_id
		FROM products
		WHERE id = $1`, productID).
		Scan(&product.ID, &product.Name, &product.Rate, &product.PaymentType,
			&product.ProductType, &product.BankID)
	if err == sql.ErrNoRows {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct registers a new product. Products are immutable once
// created; rate changes mean a new product.
func (s *RateService) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, rate, payment_type, product_type, bank_id)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		product.ID, product.Name, product.Rate, product.PaymentType, product.ProductType, product.BankID)
	return err
}
