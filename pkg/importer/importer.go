// Package importer maps grouped MoneyForward transactions onto YNAB accounts
// and submits them through the YNAB API. Import idempotency relies entirely
// on the import_id derived in this package.
package importer

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mfynab/mfynab/pkg/moneyforward"
	"github.com/mfynab/mfynab/pkg/ynab"
)

const (
	// importIDPrefix versions the import_id scheme. Changing it (or any of
	// the derivation constants below) changes the derived id for every
	// transaction and causes YNAB to re-import everything as duplicates.
	importIDPrefix = "MFBY:v1:"

	// maxImportIDLength is the YNAB API limit on import_id.
	maxImportIDLength = 36

	// hashedIDLength leaves room for the prefix under maxImportIDLength.
	hashedIDLength = 28

	// maxMemoLength is the YNAB API limit on memo, stricter than what the
	// YNAB UI itself allows.
	maxMemoLength = 200

	// maxPayeeLength is the YNAB API limit on payee_name.
	maxPayeeLength = 200

	// uncategorizedLabel is MoneyForward's sentinel for uncategorized rows.
	uncategorizedLabel = "未分類"

	sourceDateLayout = "2006/01/02"
	ynabDateLayout   = "2006-01-02"
)

// AccountMapping pairs a MoneyForward account name with a substring matched
// against YNAB account names.
type AccountMapping struct {
	MoneyForwardName string `yaml:"money_forward_name"`
	YNABName         string `yaml:"ynab_name"`
}

// InvalidDateError reports a transaction whose date is not in the expected
// YYYY/MM/DD source format.
type InvalidDateError struct {
	TransactionID string
	Date          string
	Err           error
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q on transaction %s: %v", e.Date, e.TransactionID, e.Err)
}

func (e *InvalidDateError) Unwrap() error {
	return e.Err
}

// Client is the part of the YNAB API the importer needs.
type Client interface {
	ListBudgets(ctx context.Context) ([]ynab.Budget, error)
	ListAccounts(ctx context.Context, budgetID string) ([]ynab.Account, error)
	CreateTransactions(ctx context.Context, budgetID string, transactions []ynab.Transaction) (*ynab.CreateTransactionsResponse, error)
}

// HistoryRecorder records successfully submitted transactions.
type HistoryRecorder interface {
	Record(budgetID string, account ynab.Account, txn ynab.Transaction) error
}

// Importer submits MoneyForward transactions to YNAB, one batch per mapped
// account.
type Importer struct {
	client     Client
	budgetName string
	mappings   []AccountMapping
	logger     *slog.Logger
	history    HistoryRecorder
	dryRun     bool
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Importer) { i.logger = logger }
}

// WithHistory records submitted transactions to a local history store.
func WithHistory(history HistoryRecorder) Option {
	return func(i *Importer) { i.history = history }
}

// WithDryRun builds and logs requests without submitting them.
func WithDryRun(dryRun bool) Option {
	return func(i *Importer) { i.dryRun = dryRun }
}

// New creates a new Importer for the named budget.
func New(client Client, budgetName string, mappings []AccountMapping, opts ...Option) *Importer {
	i := &Importer{
		client:     client,
		budgetName: budgetName,
		mappings:   mappings,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run imports the grouped transactions. Per-account submission failures are
// logged and do not abort the remaining accounts; only a broken configuration
// (unknown budget, failed account listing) is fatal.
func (i *Importer) Run(ctx context.Context, grouped map[string][]moneyforward.Transaction) error {
	budget, err := i.findBudget(ctx)
	if err != nil {
		return err
	}

	accounts, err := i.client.ListAccounts(ctx, budget.ID)
	if err != nil {
		return fmt.Errorf("failed to list accounts for budget %s: %w", budget.Name, err)
	}

	for _, mapping := range i.mappings {
		account, ok := findAccount(accounts, mapping.YNABName)
		if !ok {
			i.logger.Warn("Could not find YNAB account", "ynab_name", mapping.YNABName)
			continue
		}

		// No transactions this run is the normal case for an idle account.
		transactions, ok := grouped[mapping.MoneyForwardName]
		if !ok {
			continue
		}

		var requests []ynab.Transaction
		for _, txn := range transactions {
			request, err := BuildTransaction(account.ID, txn)
			if err != nil {
				i.logger.Warn("Skipping transaction",
					"account", mapping.MoneyForwardName,
					"transaction_id", txn.ID,
					"error", err,
				)
				continue
			}
			requests = append(requests, request)
		}

		if len(requests) == 0 {
			continue
		}

		if i.dryRun {
			for _, request := range requests {
				i.logger.Info("[DRY RUN] Would import transaction",
					"account", account.Name,
					"date", request.Date,
					"amount", request.Amount,
					"payee", request.PayeeName,
					"import_id", request.ImportID,
				)
			}
			continue
		}

		resp, err := i.client.CreateTransactions(ctx, budget.ID, requests)
		if err != nil {
			i.logger.Error("Failed to import transactions",
				"budget", budget.Name,
				"account", account.Name,
				"count", len(requests),
				"error", err,
			)
			continue
		}

		i.logger.Info("Imported transactions",
			"account", account.Name,
			"submitted", len(requests),
			"duplicates", len(resp.Data.DuplicateImportIDs),
		)

		i.recordHistory(budget.ID, account, requests)
	}

	return nil
}

func (i *Importer) findBudget(ctx context.Context) (ynab.Budget, error) {
	budgets, err := i.client.ListBudgets(ctx)
	if err != nil {
		return ynab.Budget{}, fmt.Errorf("failed to list budgets: %w", err)
	}
	for _, budget := range budgets {
		if budget.Name == i.budgetName {
			return budget, nil
		}
	}
	return ynab.Budget{}, fmt.Errorf("no YNAB budget named %q", i.budgetName)
}

func (i *Importer) recordHistory(budgetID string, account ynab.Account, requests []ynab.Transaction) {
	if i.history == nil {
		return
	}
	for _, request := range requests {
		if err := i.history.Record(budgetID, account, request); err != nil {
			i.logger.Error("Failed to record import history",
				"account", account.Name,
				"import_id", request.ImportID,
				"error", err,
			)
		}
	}
}

// findAccount returns the first account whose name contains name.
func findAccount(accounts []ynab.Account, name string) (ynab.Account, bool) {
	for _, account := range accounts {
		if strings.Contains(account.Name, name) {
			return account, true
		}
	}
	return ynab.Account{}, false
}

// BuildTransaction converts one MoneyForward transaction into a YNAB create
// request for the given account.
func BuildTransaction(accountID string, txn moneyforward.Transaction) (ynab.Transaction, error) {
	date, err := time.Parse(sourceDateLayout, txn.Date)
	if err != nil {
		return ynab.Transaction{}, &InvalidDateError{TransactionID: txn.ID, Date: txn.Date, Err: err}
	}

	return ynab.Transaction{
		AccountID: accountID,
		Date:      date.Format(ynabDateLayout),
		Amount:    txn.Amount * 1000, // yen to milliunits
		PayeeName: truncate(txn.Content, maxPayeeLength),
		Cleared:   "cleared",
		Memo:      GenerateMemo(txn),
		ImportID:  GenerateImportID(txn.ID),
	}, nil
}

// GenerateMemo synthesizes the YNAB memo from the user memo, the content and
// the category labels, in that priority order. The user memo comes first
// since it is explicit user input.
func GenerateMemo(txn moneyforward.Transaction) string {
	var categoryParts []string
	for _, part := range []string{txn.Category, txn.Subcategory} {
		if part != "" && part != uncategorizedLabel {
			categoryParts = append(categoryParts, part)
		}
	}
	category := strings.Join(categoryParts, "/")

	var parts []string
	for _, part := range []string{txn.Memo, txn.Content, category} {
		if part != "" {
			parts = append(parts, part)
		}
	}

	return truncate(strings.Join(parts, " - "), maxMemoLength)
}

// GenerateImportID derives the import_id for a source transaction id.
//
// Be very careful when changing this function: a different import_id causes
// YNAB to create duplicate transactions. import_id is scoped to an account
// within a budget; two transactions with the same import_id in the same
// account are deduplicated by YNAB even if their date or amount differ, and
// are unrelated across accounts.
//
// The id is only hashed when prefix + id would exceed YNAB's length limit,
// to stay backwards compatible with import_ids derived before the length
// check mattered.
func GenerateImportID(id string) string {
	if len(importIDPrefix)+len(id) > maxImportIDLength {
		digest := sha256.Sum256([]byte(id))
		id = fmt.Sprintf("%x", digest)[:hashedIDLength]
	}
	return importIDPrefix + id
}

// truncate cuts s to at most max runes.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
