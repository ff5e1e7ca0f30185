package moneyforward

import (
	"fmt"
	"strconv"
	"strings"
)

// headerNames translates MoneyForward CSV header labels to canonical field
// names. Labels without an entry pass through unchanged so that unexpected
// columns don't break ingestion; they are simply ignored downstream.
var headerNames = map[string]string{
	"計算対象":  "include",
	"日付":    "date",
	"内容":    "content",
	"金額（円）": "amount",
	"保有金融機関": "account",
	"大項目":   "category",
	"中項目":   "subcategory",
	"メモ":    "memo",
	"振替":    "transfer",
	"ID":    "id",
}

// RawRecord is one CSV row as a canonical-field-name to cell-value mapping.
// It only exists between CSV parsing and normalization.
type RawRecord map[string]string

// Transaction is a normalized MoneyForward transaction.
type Transaction struct {
	Include     int    // whether the row counts toward MoneyForward totals
	Date        string // YYYY/MM/DD, as exported
	Content     string
	Amount      int64 // signed yen, negative for expenses
	Account     string
	Category    string
	Subcategory string
	Memo        string
	Transfer    int // nonzero for inter-account transfers
	ID          string
}

// MalformedRecordError reports a row whose typed field could not be parsed.
type MalformedRecordError struct {
	File  string
	Field string
	Line  int
	Err   error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record in %s (line %d): field %q: %v", e.File, e.Line, e.Field, e.Err)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// normalizeHeader maps a CSV header row to canonical field names.
func normalizeHeader(header []string) []string {
	names := make([]string, len(header))
	for i, label := range header {
		label = strings.TrimPrefix(label, "\ufeff")
		if name, ok := headerNames[label]; ok {
			names[i] = name
		} else {
			names[i] = label
		}
	}
	return names
}

// normalizeRow converts one raw row into a Transaction. String fields are
// carried over as-is; include, amount and transfer are parsed as integers.
func normalizeRow(record RawRecord, file string, line int) (Transaction, error) {
	txn := Transaction{
		Date:        record["date"],
		Content:     record["content"],
		Account:     record["account"],
		Category:    record["category"],
		Subcategory: record["subcategory"],
		Memo:        record["memo"],
		ID:          record["id"],
	}

	include, err := strconv.Atoi(record["include"])
	if err != nil {
		return Transaction{}, &MalformedRecordError{File: file, Field: "include", Line: line, Err: err}
	}
	txn.Include = include

	amount, err := strconv.ParseInt(record["amount"], 10, 64)
	if err != nil {
		return Transaction{}, &MalformedRecordError{File: file, Field: "amount", Line: line, Err: err}
	}
	txn.Amount = amount

	transfer, err := strconv.Atoi(record["transfer"])
	if err != nil {
		return Transaction{}, &MalformedRecordError{File: file, Field: "transfer", Line: line, Err: err}
	}
	txn.Transfer = transfer

	return txn, nil
}
