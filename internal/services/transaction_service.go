package services

import (
	"context"
	"database/sql"
	"log"

	"github.com/google/uuid"
	"github.com/joabank/backend/internal/models"
)

// TransactionService orchestrates every money movement. Each operation runs
// as one database transaction: row locks on the touched accounts, balance
// writes, and the transaction-log append commit together or not at all.
// Precondition failures (bad credential, authorization, insufficient
// balance) abort before any write.
type TransactionService struct {
	db     *sql.DB
	ledger *LedgerService
	auth   *AuthService
	audit  *AuditLogger
	iso    *ISO20022Service
}

func NewTransactionService(db *sql.DB, ledger *LedgerService, auth *AuthService, audit *AuditLogger, iso *ISO20022Service) *TransactionService {
	return &TransactionService{
		db:     db,
		ledger: ledger,
		auth:   auth,
		audit:  audit,
		iso:    iso,
	}
}

// BalanceChange reports the effect of an operation on a single account.
type BalanceChange struct {
	AccountID       string    `json:"accountId"`
	PreviousBalance int64     `json:"previousBalance"`
	NewBalance      int64     `json:"newBalance"`
	TransactionID   uuid.UUID `json:"transactionId"`
}

// TransferResult reports both sides of a completed transfer.
type TransferResult struct {
	From          BalanceChange `json:"from"`
	To            BalanceChange `json:"to"`
	TransactionID uuid.UUID     `json:"transactionId"`
}

// ProbeResult carries the shared secret of a one-won ownership probe. The
// word is relayed out-of-band to the account owner for confirmation.
type ProbeResult struct {
	Word          string    `json:"word"`
	TransactionID uuid.UUID `json:"transactionId"`
}

// UpdateInput carries the correction fields for Update. Nil pointers leave
// the original transaction field untouched.
type UpdateInput struct {
	Amount        *int64
	DepositorName *string
	FromAccount   *string
	ToAccount     *string
}

// RefundInput carries the reversal targets and the replacement fields.
type RefundInput struct {
	Amount        *int64
	DepositorName *string
	FromAccount   *string
	ToAccount     *string
}

// Deposit credits an account. The depositor name defaults to "DEPOSIT" when
// the caller supplies none. DummyID optionally links the movement to a
// synthetic counterparty.
func (s *TransactionService) Deposit(ctx context.Context, apiKey uuid.UUID, accountID string, amount int64, password string, depositorName *string, dummyID *uuid.UUID) (*BalanceChange, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	account, err := s.ledger.LockAccount(tx, accountID)
	if err != nil {
		return nil, err
	}

	if err := s.auth.ValidateBankAuthority(ctx, apiKey, account.BankID); err != nil {
		return nil, err
	}
	if account.Password != password {
		return nil, ErrPasswordMismatch
	}

	if dummyID != nil {
		if _, err := s.ledger.GetDummy(tx, *dummyID); err != nil {
			return nil, err
		}
	}

	previous := account.Balance
	if err := s.ledger.UpdateBalance(tx, account, previous+amount); err != nil {
		return nil, err
	}

	name := "DEPOSIT"
	if depositorName != nil && *depositorName != "" {
		name = *depositorName
	}

	record := &models.Transaction{
		Amount:        amount,
		DepositorName: name,
		ToAccount:     &account.ID,
		DummyID:       dummyID,
	}
	if err := s.ledger.RecordTransaction(tx, record); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.audit.LogMovement("DEPOSIT", record.ID.String(), accountID, amount)
	return &BalanceChange{
		AccountID:       accountID,
		PreviousBalance: previous,
		NewBalance:      account.Balance,
		TransactionID:   record.ID,
	}, nil
}

// Withdraw debits an account, failing with ErrInsufficientBalance before any
// write when the balance cannot cover the amount.
func (s *TransactionService) Withdraw(ctx context.Context, apiKey uuid.UUID, accountID string, amount int64, password string, depositorName *string) (*BalanceChange, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	account, err := s.ledger.LockAccount(tx, accountID)
	if err != nil {
		return nil, err
	}

	if err := s.auth.ValidateBankAuthority(ctx, apiKey, account.BankID); err != nil {
		return nil, err
	}
	if account.Password != password {
		return nil, ErrPasswordMismatch
	}
	if account.Balance < amount {
		return nil, ErrInsufficientBalance
	}

	previous := account.Balance
	if err := s.ledger.UpdateBalance(tx, account, previous-amount); err != nil {
		return nil, err
	}

	name := "WITHDRAWAL"
	if depositorName != nil && *depositorName != "" {
		name = *depositorName
	}

	record := &models.Transaction{
		Amount:        amount,
		DepositorName: name,
		FromAccount:   &account.ID,
	}
	if err := s.ledger.RecordTransaction(tx, record); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.audit.LogMovement("WITHDRAWAL", record.ID.String(), accountID, amount)
	return &BalanceChange{
		AccountID:       accountID,
		PreviousBalance: previous,
		NewBalance:      account.Balance,
		TransactionID:   record.ID,
	}, nil
}

// Transfer moves amount between two accounts as one atomic unit with a
// single transaction record referencing both. Authorization and the
// credential check apply to the source account only. The depositor name
// defaults to the destination holder's display name.
func (s *TransactionService) Transfer(ctx context.Context, apiKey uuid.UUID, fromID, toID string, amount int64, password string, depositorName *string, dummyID *uuid.UUID) (*TransferResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if fromID == toID {
		return nil, ErrSameAccount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	from, to, err := s.ledger.LockAccountPair(tx, fromID, toID)
	if err != nil {
		return nil, err
	}

	if err := s.auth.ValidateBankAuthority(ctx, apiKey, from.BankID); err != nil {
		return nil, err
	}
	if from.Password != password {
		return nil, ErrPasswordMismatch
	}
	if from.Balance < amount {
		return nil, ErrInsufficientBalance
	}

	if dummyID != nil {
		if _, err := s.ledger.GetDummy(tx, *dummyID); err != nil {
			return nil, err
		}
	}

	fromPrevious := from.Balance
	toPrevious := to.Balance
	if err := s.ledger.UpdateBalance(tx, from, fromPrevious-amount); err != nil {
		return nil, err
	}
	if err := s.ledger.UpdateBalance(tx, to, toPrevious+amount); err != nil {
		return nil, err
	}

	name := to.Name
	if depositorName != nil && *depositorName != "" {
		name = *depositorName
	}

	record := &models.Transaction{
		Amount:        amount,
		DepositorName: name,
		FromAccount:   &from.ID,
		ToAccount:     &to.ID,
		DummyID:       dummyID,
	}
	if err := s.ledger.RecordTransaction(tx, record); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.audit.LogMovement("TRANSFER", record.ID.String(), fromID, amount)

	if s.iso != nil && from.BankID != to.BankID {
		if err := s.iso.ReportCreditTransfer(ctx, record, from, to); err != nil {
			log.Printf("[ISO20022] Settlement report failed for transaction %s: %v", record.ID, err)
		}
	}

	return &TransferResult{
		From: BalanceChange{
			AccountID:       fromID,
			PreviousBalance: fromPrevious,
			NewBalance:      from.Balance,
			TransactionID:   record.ID,
		},
		To: BalanceChange{
			AccountID:       toID,
			PreviousBalance: toPrevious,
			NewBalance:      to.Balance,
			TransactionID:   record.ID,
		},
		TransactionID: record.ID,
	}, nil
}

// Update corrects a recorded transaction in place and re-applies a balance
// adjustment for the new amount against the supplied accounts. It does not
// reverse the original transaction's balance effect first, so callers must
// supply deltas consistent with that. Which of FromAccount/ToAccount are
// present decides the adjustment shape: both means transfer-style, only
// ToAccount a credit, only FromAccount a debit, neither no balance change.
func (s *TransactionService) Update(ctx context.Context, apiKey uuid.UUID, transactionID uuid.UUID, input UpdateInput) (*models.Transaction, error) {
	if input.Amount == nil {
		return nil, ErrAmountRequired
	}
	if *input.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	record, err := s.ledger.LockTransaction(tx, transactionID)
	if err != nil {
		return nil, err
	}

	amount := *input.Amount

	switch {
	case input.FromAccount != nil && input.ToAccount != nil:
		from, to, err := s.ledger.LockAccountPair(tx, *input.FromAccount, *input.ToAccount)
		if err != nil {
			return nil, err
		}
		if err := s.auth.ValidateBankAuthority(ctx, apiKey, from.BankID); err != nil {
			return nil, err
		}
		if from.Balance < amount {
			return nil, ErrInsufficientBalance
		}
		if err := s.ledger.UpdateBalance(tx, from, from.Balance-amount); err != nil {
			return nil, err
		}
		if err := s.ledger.UpdateBalance(tx, to, to.Balance+amount); err != nil {
			return nil, err
		}
		record.FromAccount = &from.ID
		record.ToAccount = &to.ID

	case input.ToAccount != nil:
		to, err := s.ledger.LockAccount(tx, *input.ToAccount)
		if err != nil {
			return nil, err
		}
		if err := s.auth.ValidateBankAuthority(ctx, apiKey, to.BankID); err != nil {
			return nil, err
		}
		if err := s.ledger.UpdateBalance(tx, to, to.Balance+amount); err != nil {
			return nil, err
		}
		record.ToAccount = &to.ID

	case input.FromAccount != nil:
		from, err := s.ledger.LockAccount(tx, *input.FromAccount)
		if err != nil {
			return nil, err
		}
		if err := s.auth.ValidateBankAuthority(ctx, apiKey, from.BankID); err != nil {
			return nil, err
		}
		if from.Balance < amount {
			return nil, ErrInsufficientBalance
		}
		if err := s.ledger.UpdateBalance(tx, from, from.Balance-amount); err != nil {
			return nil, err
		}
		record.FromAccount = &from.ID
	}

	record.Amount = amount
	if input.DepositorName != nil {
		record.DepositorName = *input.DepositorName
	}

	if err := s.ledger.UpdateTransaction(tx, record); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.audit.LogOperation("UPDATE", record.ID.String())
	return record, nil
}

// Refund reverses the original transaction's amount (credit the from side,
// debit the to side) and then overwrites the record with the replacement
// fields. The new amount is never re-applied as a balance effect. Every
// side the original record touched must be named in the input, otherwise
// the reversal would be skipped; a missing side fails with
// ErrAccountNotFound. Fails with ErrRefundUnavailable when the to side
// cannot give back the original amount, and with ErrAmountRequired when no
// replacement amount is given.
func (s *TransactionService) Refund(ctx context.Context, apiKey uuid.UUID, transactionID uuid.UUID, input RefundInput) (*models.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	record, err := s.ledger.LockTransaction(tx, transactionID)
	if err != nil {
		return nil, err
	}

	if (record.ToAccount != nil && input.ToAccount == nil) ||
		(record.FromAccount != nil && input.FromAccount == nil) {
		return nil, ErrAccountNotFound
	}

	original := record.Amount

	if input.ToAccount != nil {
		to, err := s.ledger.LockAccount(tx, *input.ToAccount)
		if err != nil {
			return nil, err
		}
		if err := s.auth.ValidateBankAuthority(ctx, apiKey, to.BankID); err != nil {
			return nil, err
		}
		if to.Balance < original {
			return nil, ErrRefundUnavailable
		}
		if err := s.ledger.UpdateBalance(tx, to, to.Balance-original); err != nil {
			return nil, err
		}
		record.ToAccount = &to.ID
	}

	if input.FromAccount != nil {
		from, err := s.ledger.LockAccount(tx, *input.FromAccount)
		if err != nil {
			return nil, err
		}
		if err := s.auth.ValidateBankAuthority(ctx, apiKey, from.BankID); err != nil {
			return nil, err
		}
		if err := s.ledger.UpdateBalance(tx, from, from.Balance+original); err != nil {
			return nil, err
		}
		record.FromAccount = &from.ID
	}

	if input.Amount == nil {
		return nil, ErrAmountRequired
	}
	record.Amount = *input.Amount
	if input.DepositorName != nil {
		record.DepositorName = *input.DepositorName
	}

	if err := s.ledger.UpdateTransaction(tx, record); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.audit.LogOperation("REFUND", record.ID.String())
	return record, nil
}

// OneWonProbe credits the target account by exactly one unit and records a
// transaction whose depositor name is a random word acting as the shared
// secret for ownership verification.
func (s *TransactionService) OneWonProbe(ctx context.Context, apiKey uuid.UUID, accountID string) (*ProbeResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	account, err := s.ledger.LockAccount(tx, accountID)
	if err != nil {
		return nil, err
	}
	if err := s.auth.ValidateBankAuthority(ctx, apiKey, account.BankID); err != nil {
		return nil, err
	}

	if err := s.ledger.UpdateBalance(tx, account, account.Balance+1); err != nil {
		return nil, err
	}

	word := ChooseWord()
	record := &models.Transaction{
		Amount:        1,
		DepositorName: word,
		ToAccount:     &account.ID,
	}
	if err := s.ledger.RecordTransaction(tx, record); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.audit.LogMovement("ONE_WON_PROBE", record.ID.String(), accountID, 1)
	return &ProbeResult{Word: word, TransactionID: record.ID}, nil
}

// OneWonConfirm checks the supplied word against the probe transaction's
// stored depositor name. Success has no further effect.
func (s *TransactionService) OneWonConfirm(ctx context.Context, transactionID uuid.UUID, word string) error {
	record, err := s.ledger.GetTransaction(ctx, transactionID)
	if err != nil {
		return err
	}
	if record.DepositorName != word {
		return ErrWordMismatch
	}
	return nil
}

// SoftDelete marks a transaction as logically deleted. Balances are never
// reversed; deleted rows stay out of reads and searches.
func (s *TransactionService) SoftDelete(ctx context.Context, apiKey uuid.UUID, transactionID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	record, err := s.ledger.LockTransaction(tx, transactionID)
	if err != nil {
		return err
	}

	authAccount := record.ToAccount
	if authAccount == nil {
		authAccount = record.FromAccount
	}
	if authAccount != nil {
		account, err := s.ledger.LockAccount(tx, *authAccount)
		if err != nil {
			return err
		}
		if err := s.auth.ValidateBankAuthority(ctx, apiKey, account.BankID); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`UPDATE transactions SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1`, record.ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.audit.LogOperation("SOFT_DELETE", record.ID.String())
	return nil
}

// DepositInterest credits settlement interest to an account. Invoked only by
// the scheduler, so no authorization or credential check applies. A zero or
// negative interest is a no-op.
func (s *TransactionService) DepositInterest(ctx context.Context, accountID string, interest int64) error {
	if interest <= 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	account, err := s.ledger.LockAccount(tx, accountID)
	if err != nil {
		return err
	}
	if err := s.ledger.UpdateBalance(tx, account, account.Balance+interest); err != nil {
		return err
	}

	record := &models.Transaction{
		Amount:        interest,
		DepositorName: "INTEREST",
		ToAccount:     &account.ID,
	}
	if err := s.ledger.RecordTransaction(tx, record); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.audit.LogMovement("INTEREST", record.ID.String(), accountID, interest)
	return nil
}

// SettleInstallment debits the periodic installment amount from an account
// when the balance covers it, and silently skips otherwise. The skip is
// policy, not an error: the non-payment counter records the miss.
func (s *TransactionService) SettleInstallment(ctx context.Context, accountID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	account, err := s.ledger.LockAccount(tx, accountID)
	if err != nil {
		return err
	}

	if account.Amount <= 0 {
		return nil
	}

	if account.Balance < account.Amount {
		log.Printf("[SETTLEMENT] Installment skipped for account %s: balance %d below installment %d",
			accountID, account.Balance, account.Amount)
		if _, err := tx.Exec(`UPDATE accounts SET non_payment_num = non_payment_num + 1, updated_at = NOW() WHERE id = $1`, accountID); err != nil {
			return err
		}
		return tx.Commit()
	}

	if err := s.ledger.UpdateBalance(tx, account, account.Balance-account.Amount); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE accounts SET payment_num = payment_num + 1, updated_at = NOW() WHERE id = $1`, accountID); err != nil {
		return err
	}

	record := &models.Transaction{
		Amount:        account.Amount,
		DepositorName: "INSTALLMENT",
		ToAccount:     &account.ID,
	}
	if err := s.ledger.RecordTransaction(tx, record); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.audit.LogMovement("INSTALLMENT", record.ID.String(), accountID, account.Amount)
	return nil
}
