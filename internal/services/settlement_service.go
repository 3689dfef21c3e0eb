package services

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/joabank/backend/internal/config"
	"github.com/joabank/backend/internal/models"
)

// End dates on accounts are stored as MM/dd/yyyy strings and matured
// accounts are selected by exact string equality, so an account settles
// exactly once, on its end date.
const endDateLayout = "01/02/2006"

// SettlementService runs the periodic interest settlement tick. Ordinary
// deposit accounts accrue one day's interest every tick no matter the
// configured interval; term and installment accounts settle only on the
// tick whose date matches their end date.
type SettlementService struct {
	db     *sql.DB
	engine *TransactionService
	cfg    *config.SettlementConfig
	done   chan struct{}
}

func NewSettlementService(db *sql.DB, engine *TransactionService, cfg *config.SettlementConfig) *SettlementService {
	return &SettlementService{
		db:     db,
		engine: engine,
		cfg:    cfg,
		done:   make(chan struct{}),
	}
}

// Start launches the tick loop in its own goroutine. It returns immediately;
// call Stop to drain and halt.
func (s *SettlementService) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Printf("[SETTLEMENT] Scheduler disabled by configuration")
		return
	}

	log.Printf("[SETTLEMENT] Scheduler started, interval %s", s.cfg.TickInterval)
	go func() {
		ticker := time.NewTicker(s.cfg.TickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-ticker.C:
				if err := s.Tick(ctx); err != nil {
					log.Printf("[SETTLEMENT] Tick failed: %v", err)
				}
			}
		}
	}()
}

// Stop halts the tick loop. Safe to call once.
func (s *SettlementService) Stop() {
	close(s.done)
}

type settlementCandidate struct {
	accountID   string
	balance     int64
	term        int
	rate        float64
	paymentType models.PaymentType
	productType models.ProductType
}

// Tick settles one scheduler period. Each account settles inside its own
// database transaction; one account's failure is logged and does not stop
// the rest of the batch.
func (s *SettlementService) Tick(ctx context.Context) error {
	today := time.Now().Format(endDateLayout)

	candidates, err := s.collectCandidates(ctx, today)
	if err != nil {
		return err
	}

	for _, c := range candidates {
		if err := s.settle(ctx, c); err != nil {
			log.Printf("[SETTLEMENT] Account %s settlement failed: %v", c.accountID, err)
		}
	}
	return nil
}

func (s *SettlementService) collectCandidates(ctx context.Context, today string) ([]settlementCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.balance, a.term, p.rate, p.payment_type, p.product_type
		FROM accounts a
		JOIN products p ON p.id = a.product_id
		WHERE NOT a.is_deleted
		  AND (p.product_type = 'ORDINARY_DEPOSIT' OR a.end_date = $1)
		LIMIT $2`, today, s.cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []settlementCandidate
	for rows.Next() {
		var c settlementCandidate
		if err := rows.Scan(&c.accountID, &c.balance, &c.term, &c.rate, &c.paymentType, &c.productType); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (s *SettlementService) settle(ctx context.Context, c settlementCandidate) error {
	switch c.productType {
	case models.FixedDeposit:
		return s.engine.SettleInstallment(ctx, c.accountID)
	case models.TermDeposit:
		result := TermDepositInterest(c.balance, c.rate, c.term, c.paymentType)
		return s.engine.DepositInterest(ctx, c.accountID, result.Interest)
	default:
		interest := PeriodicOrdinaryInterest(c.balance, c.rate)
		return s.engine.DepositInterest(ctx, c.accountID, interest)
	}
}
