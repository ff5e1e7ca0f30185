// Package moneyforward reads MoneyForward CSV exports and groups the
// normalized transactions by the account they belong to.
package moneyforward

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// Data accumulates normalized transactions from one or more CSV files,
// grouped by account name. Accounts keep their first-seen order and
// transactions keep insertion order within each account.
type Data struct {
	transactions map[string][]Transaction
	accounts     []string
	logger       *slog.Logger
}

// NewData creates an empty transaction store.
func NewData(logger *slog.Logger) *Data {
	if logger == nil {
		logger = slog.Default()
	}
	return &Data{
		transactions: make(map[string][]Transaction),
		logger:       logger,
	}
}

// ReadAllCSV ingests every *.csv file in dir. Files are processed
// independently: a malformed file is reported but does not prevent other
// files from being ingested. The returned error joins all per-file errors.
func (d *Data) ReadAllCSV(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return fmt.Errorf("failed to list CSV files: %w", err)
	}
	sort.Strings(files)

	var errs []error
	for _, file := range files {
		if err := d.ReadCSV(file); err != nil {
			d.logger.Error("Failed to read CSV file", "file", file, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ReadCSV ingests a single CSV file. Ingestion stops at the first malformed
// row; rows read before the error are kept.
func (d *Data) ReadCSV(file string) error {
	d.logger.Info("Reading CSV file", "file", file)

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}

	// The downloader transcodes at the network boundary, but raw exports
	// saved by hand are still Shift_JIS. Decode before field splitting or
	// multi-byte content would corrupt.
	if !utf8.Valid(data) {
		decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), japanese.ShiftJIS.NewDecoder()))
		if err != nil {
			return &MalformedRecordError{File: file, Field: "encoding", Line: 0, Err: err}
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return &MalformedRecordError{File: file, Field: "header", Line: 1, Err: err}
	}
	names := normalizeHeader(header)

	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return &MalformedRecordError{File: file, Field: "row", Line: line, Err: err}
		}

		record := make(RawRecord, len(names))
		for i, name := range names {
			if i < len(row) {
				record[name] = row[i]
			}
		}

		txn, err := normalizeRow(record, file, line)
		if err != nil {
			return err
		}
		d.append(txn)
	}

	return nil
}

// Grouped returns the transactions grouped by account name. The result is
// read-only once ingestion is done.
func (d *Data) Grouped() map[string][]Transaction {
	return d.transactions
}

// Accounts returns the account names in first-seen order.
func (d *Data) Accounts() []string {
	return d.accounts
}

func (d *Data) append(txn Transaction) {
	if _, ok := d.transactions[txn.Account]; !ok {
		d.accounts = append(d.accounts, txn.Account)
	}
	d.transactions[txn.Account] = append(d.transactions[txn.Account], txn)
}
