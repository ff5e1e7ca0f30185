// Package db provides SQLite storage for the local import history.
package db

// Schema defines the SQL statements to create database tables.
const Schema = `
-- Import history table
-- Tracks which transactions have been submitted to YNAB.
-- The remote dedup via import_id stays authoritative; this table only backs
-- local statistics and debugging.
CREATE TABLE IF NOT EXISTS import_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    budget_id TEXT NOT NULL,
    account_id TEXT NOT NULL,          -- YNAB account ID
    account_name TEXT NOT NULL,        -- YNAB account name at submission time
    import_id TEXT NOT NULL,           -- derived import identifier
    date TEXT NOT NULL,                -- YYYY-MM-DD
    amount INTEGER NOT NULL,           -- milliunits
    payee TEXT NOT NULL,
    synced_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(account_id, import_id)
);

CREATE INDEX IF NOT EXISTS idx_import_history_account
    ON import_history(account_id, import_id);

CREATE INDEX IF NOT EXISTS idx_import_history_date
    ON import_history(date);
`

// InitializeSchema initializes the database schema.
// It creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.Exec(Schema); err != nil {
		return err
	}
	return nil
}
