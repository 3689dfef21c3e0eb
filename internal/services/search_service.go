package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joabank/backend/internal/models"
)

// Date range defaults applied when a search leaves the bounds open. These
// sentinels come from the admin console contract and keep the query shape
// stable regardless of which bounds the caller supplies.
var (
	searchDateFloor   = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	searchDateCeiling = time.Date(3000, 12, 31, 23, 59, 59, 0, time.UTC)
)

const defaultSearchLimit = 20

// SearchService runs the filtered, paginated transaction search for the
// admin console. Visibility is tenant scoped: a caller sees exactly the
// transactions touching accounts of banks owned by the admin behind their
// API key.
type SearchService struct {
	db   *sql.DB
	auth *AuthService
}

func NewSearchService(db *sql.DB, auth *AuthService) *SearchService {
	return &SearchService{db: db, auth: auth}
}

// Search applies the tenant scope and every requested filter, returning one
// page plus the total match count. An admin owning zero banks always gets
// an empty page. Requesting a bank the admin does not own contributes no
// accounts to the scope rather than failing.
func (s *SearchService) Search(ctx context.Context, apiKey uuid.UUID, filter models.TransactionFilter, page models.Page) (*models.TransactionPage, error) {
	if page.Limit <= 0 {
		page.Limit = defaultSearchLimit
	}
	if page.Offset < 0 {
		page.Offset = 0
	}

	bankIDs, err := s.auth.AdminBankIDs(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	scopeBanks := bankIDs
	if filter.BankID != nil {
		scopeBanks = nil
		for _, id := range bankIDs {
			if id == *filter.BankID {
				scopeBanks = []uuid.UUID{id}
				break
			}
		}
	}

	if len(scopeBanks) == 0 {
		return &models.TransactionPage{
			Transactions: []models.Transaction{},
			Total:        0,
			Limit:        page.Limit,
			Offset:       page.Offset,
		}, nil
	}

	accountIDs, err := s.accountIDsForBanks(ctx, scopeBanks)
	if err != nil {
		return nil, err
	}
	if len(accountIDs) == 0 {
		return &models.TransactionPage{
			Transactions: []models.Transaction{},
			Total:        0,
			Limit:        page.Limit,
			Offset:       page.Offset,
		}, nil
	}

	conditions := []string{"NOT t.is_deleted"}
	var args []interface{}
	argIndex := 1

	conditions = append(conditions,
		fmt.Sprintf("(t.from_account = ANY($%d) OR t.to_account = ANY($%d))", argIndex, argIndex))
	args = append(args, pq.Array(accountIDs))
	argIndex++

	if filter.DepositorNameKeyword != "" {
		conditions = append(conditions, fmt.Sprintf("t.depositor_name ILIKE $%d", argIndex))
		args = append(args, "%"+filter.DepositorNameKeyword+"%")
		argIndex++
	}

	if filter.AccountID != "" {
		switch filter.SearchType {
		case models.SearchDepositOnly:
			conditions = append(conditions, fmt.Sprintf("t.to_account = $%d", argIndex))
			args = append(args, filter.AccountID)
			argIndex++
		case models.SearchWithdrawalOnly:
			conditions = append(conditions, fmt.Sprintf("t.from_account = $%d", argIndex))
			args = append(args, filter.AccountID)
			argIndex++
		default:
			conditions = append(conditions,
				fmt.Sprintf("(t.from_account = $%d OR t.to_account = $%d)", argIndex, argIndex))
			args = append(args, filter.AccountID)
			argIndex++
		}
	}

	if filter.OnlyDummy {
		conditions = append(conditions, "t.dummy_id IS NOT NULL")
	}

	if filter.DummyName != "" {
		conditions = append(conditions,
			fmt.Sprintf("EXISTS (SELECT 1 FROM dummies d WHERE d.id = t.dummy_id AND d.name = $%d)", argIndex))
		args = append(args, filter.DummyName)
		argIndex++
	}

	// Amount bounds only constrain when both are given.
	if filter.FromAmount != nil && filter.ToAmount != nil {
		conditions = append(conditions,
			fmt.Sprintf("t.amount BETWEEN $%d AND $%d", argIndex, argIndex+1))
		args = append(args, *filter.FromAmount, *filter.ToAmount)
		argIndex += 2
	}

	fromDate := searchDateFloor
	if filter.FromDate != nil {
		fromDate = *filter.FromDate
	}
	toDate := searchDateCeiling
	if filter.ToDate != nil {
		toDate = *filter.ToDate
	}
	conditions = append(conditions,
		fmt.Sprintf("t.created_at BETWEEN $%d AND $%d", argIndex, argIndex+1))
	args = append(args, fromDate, toDate)
	argIndex += 2

	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int64
	countQuery := "SELECT COUNT(*) FROM transactions t" + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, err
	}

	query := `SELECT t.id, t.amount, t.depositor_name, t.from_account, t.to_account,
		t.dummy_id, t.is_deleted, t.created_at, t.updated_at
		FROM transactions t` + where + orderClause(filter.OrderBy) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, page.Limit, page.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		record, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.TransactionPage{
		Transactions: transactions,
		Total:        total,
		Limit:        page.Limit,
		Offset:       page.Offset,
	}, nil
}

func (s *SearchService) accountIDsForBanks(ctx context.Context, bankIDs []uuid.UUID) ([]string, error) {
	ids := make([]string, 0, len(bankIDs))
	for _, id := range bankIDs {
		ids = append(ids, id.String())
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM accounts WHERE bank_id = ANY($1) AND NOT is_deleted`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accountIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		accountIDs = append(accountIDs, id)
	}
	return accountIDs, rows.Err()
}

func orderClause(order models.OrderBy) string {
	switch order {
	case models.OrderOldest:
		return " ORDER BY t.created_at ASC"
	case models.OrderAmountAsc:
		return " ORDER BY t.amount ASC"
	case models.OrderAmountDesc:
		return " ORDER BY t.amount DESC"
	default:
		return " ORDER BY t.created_at DESC"
	}
}

// BankStats aggregates one owned bank's activity: total movement count,
// deposit and withdrawal sums, and the daily flow over the last seven days.
func (s *SearchService) BankStats(ctx context.Context, apiKey, bankID uuid.UUID) (*models.BankStats, error) {
	if err := s.auth.ValidateBankAuthority(ctx, apiKey, bankID); err != nil {
		return nil, err
	}

	accountIDs, err := s.accountIDsForBanks(ctx, []uuid.UUID{bankID})
	if err != nil {
		return nil, err
	}

	stats := &models.BankStats{WeeklyFlow: []models.DayMoneyFlow{}}
	if len(accountIDs) == 0 {
		return stats, nil
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(amount) FILTER (WHERE to_account = ANY($1)), 0),
		       COALESCE(SUM(amount) FILTER (WHERE from_account = ANY($1)), 0)
		FROM transactions
		WHERE NOT is_deleted
		  AND (from_account = ANY($1) OR to_account = ANY($1))`,
		pq.Array(accountIDs)).
		Scan(&stats.TransactionCount, &stats.TotalDeposit, &stats.TotalWithdraw)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT TO_CHAR(created_at::date, 'YYYY-MM-DD'),
		       COALESCE(SUM(amount) FILTER (WHERE to_account = ANY($1)), 0),
		       COALESCE(SUM(amount) FILTER (WHERE from_account = ANY($1)), 0)
		FROM transactions
		WHERE NOT is_deleted
		  AND (from_account = ANY($1) OR to_account = ANY($1))
		  AND created_at >= NOW() - INTERVAL '7 days'
		GROUP BY created_at::date
		ORDER BY created_at::date`,
		pq.Array(accountIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var day models.DayMoneyFlow
		if err := rows.Scan(&day.Date, &day.Deposit, &day.Withdraw); err != nil {
			return nil, err
		}
		stats.WeeklyFlow = append(stats.WeeklyFlow, day)
	}
	return stats, rows.Err()
}
