// Package ynab provides a client for the YNAB v1 REST API.
package ynab

import "fmt"

// Budget represents a YNAB budget.
type Budget struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Account represents a YNAB account.
type Account struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Balance int64  `json:"balance"`
	Closed  bool   `json:"closed"`
	Deleted bool   `json:"deleted"`
}

// Transaction represents a transaction to create via the API.
// Amount is in milliunits (one-thousandth of a currency unit).
type Transaction struct {
	AccountID string `json:"account_id"`
	Date      string `json:"date"` // YYYY-MM-DD
	Amount    int64  `json:"amount"`
	PayeeName string `json:"payee_name,omitempty"`
	Memo      string `json:"memo,omitempty"`
	Cleared   string `json:"cleared"` // "cleared", "uncleared" or "reconciled"
	ImportID  string `json:"import_id,omitempty"`
}

// budgetsResponse represents the response from /budgets.
type budgetsResponse struct {
	Data struct {
		Budgets []Budget `json:"budgets"`
	} `json:"data"`
}

// accountsResponse represents the response from /budgets/{id}/accounts.
type accountsResponse struct {
	Data struct {
		Accounts []Account `json:"accounts"`
	} `json:"data"`
}

// createTransactionsRequest is the request body for POST /transactions.
type createTransactionsRequest struct {
	Transactions []Transaction `json:"transactions"`
}

// CreateTransactionsResponse is the response from POST /transactions.
// DuplicateImportIDs lists transactions the API discarded because their
// import_id was already present in the target account.
type CreateTransactionsResponse struct {
	Data struct {
		TransactionIDs     []string `json:"transaction_ids"`
		DuplicateImportIDs []string `json:"duplicate_import_ids"`
	} `json:"data"`
}

// errorResponse represents the error envelope returned by the API.
type errorResponse struct {
	Error struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Detail string `json:"detail"`
	} `json:"error"`
}

// APIError is an error response from the YNAB API.
type APIError struct {
	StatusCode int
	ID         string
	Name       string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("ynab API error (status %d): %s - %s", e.StatusCode, e.Name, e.Detail)
	}
	return fmt.Sprintf("ynab API error (status %d): %s", e.StatusCode, e.Name)
}
