package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mfynab/mfynab/pkg/ynab"
)

// ImportRecord represents one submitted transaction in the import history.
type ImportRecord struct {
	ID          int64
	BudgetID    string
	AccountID   string
	AccountName string
	ImportID    string
	Date        string
	Amount      int64
	Payee       string
	SyncedAt    time.Time
}

// AccountCount is the number of recorded transactions for one account.
type AccountCount struct {
	AccountName string
	Count       int64
}

// Stats summarizes the import history.
type Stats struct {
	TotalTransactions int64
	TotalAccounts     int64
	LastSync          sql.NullString
}

// History manages import history operations.
type History struct {
	conn *Connection
}

// NewHistory creates a new History instance.
func NewHistory(conn *Connection) *History {
	return &History{conn: conn}
}

// Record records a submitted transaction.
// If the record already exists (same account_id + import_id), it updates it.
func (h *History) Record(budgetID string, account ynab.Account, txn ynab.Transaction) error {
	query := `
		INSERT INTO import_history (budget_id, account_id, account_name, import_id, date, amount, payee)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, import_id) DO UPDATE SET
			account_name = excluded.account_name,
			date = excluded.date,
			amount = excluded.amount,
			payee = excluded.payee,
			synced_at = CURRENT_TIMESTAMP
	`

	_, err := h.conn.Exec(query,
		budgetID,
		account.ID,
		account.Name,
		txn.ImportID,
		txn.Date,
		txn.Amount,
		txn.PayeeName,
	)
	if err != nil {
		return fmt.Errorf("failed to record import: %w", err)
	}

	return nil
}

// IsRecorded checks if a transaction has been recorded for an account.
func (h *History) IsRecorded(accountID, importID string) (bool, error) {
	query := `
		SELECT COUNT(*) FROM import_history
		WHERE account_id = ? AND import_id = ?
	`

	var count int
	if err := h.conn.QueryRow(query, accountID, importID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check import history: %w", err)
	}

	return count > 0, nil
}

// GetByAccount retrieves the recorded transactions for one account, newest
// first.
func (h *History) GetByAccount(accountID string) ([]ImportRecord, error) {
	query := `
		SELECT id, budget_id, account_id, account_name, import_id, date, amount, payee, synced_at
		FROM import_history
		WHERE account_id = ?
		ORDER BY date DESC
	`

	rows, err := h.conn.Query(query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get import records: %w", err)
	}
	defer rows.Close()

	var records []ImportRecord
	for rows.Next() {
		var record ImportRecord
		if err := rows.Scan(
			&record.ID,
			&record.BudgetID,
			&record.AccountID,
			&record.AccountName,
			&record.ImportID,
			&record.Date,
			&record.Amount,
			&record.Payee,
			&record.SyncedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan import record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// CountByAccount returns per-account transaction counts, ordered by account
// name.
func (h *History) CountByAccount() ([]AccountCount, error) {
	query := `
		SELECT account_name, COUNT(*) FROM import_history
		GROUP BY account_name
		ORDER BY account_name
	`

	rows, err := h.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to count by account: %w", err)
	}
	defer rows.Close()

	var counts []AccountCount
	for rows.Next() {
		var count AccountCount
		if err := rows.Scan(&count.AccountName, &count.Count); err != nil {
			return nil, fmt.Errorf("failed to scan account count: %w", err)
		}
		counts = append(counts, count)
	}

	return counts, rows.Err()
}

// GetStats returns summary statistics for the import history.
func (h *History) GetStats() (*Stats, error) {
	var stats Stats

	query := `
		SELECT COUNT(*), COUNT(DISTINCT account_id), MAX(synced_at)
		FROM import_history
	`

	err := h.conn.QueryRow(query).Scan(
		&stats.TotalTransactions,
		&stats.TotalAccounts,
		&stats.LastSync,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}

	return &stats, nil
}
