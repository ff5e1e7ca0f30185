package ynab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the YNAB v1 API endpoint.
const DefaultBaseURL = "https://api.ynab.com/v1"

// ClientConfig represents the configuration for the YNAB API client.
type ClientConfig struct {
	BaseURL     string // default: DefaultBaseURL
	AccessToken string
	Timeout     time.Duration // default: 30 seconds
}

// Client is a YNAB v1 API client.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
}

// NewClient creates a new YNAB API client.
func NewClient(config ClientConfig) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     baseURL,
		accessToken: config.AccessToken,
	}
}

// ListBudgets lists all budgets the access token can see.
func (c *Client) ListBudgets(ctx context.Context) ([]Budget, error) {
	var resp budgetsResponse
	if err := c.get(ctx, "/budgets", &resp); err != nil {
		return nil, err
	}
	return resp.Data.Budgets, nil
}

// ListAccounts lists the accounts of a budget.
func (c *Client) ListAccounts(ctx context.Context, budgetID string) ([]Account, error) {
	var resp accountsResponse
	if err := c.get(ctx, fmt.Sprintf("/budgets/%s/accounts", budgetID), &resp); err != nil {
		return nil, err
	}
	return resp.Data.Accounts, nil
}

// CreateTransactions submits a batch of transactions to a budget.
// Transactions whose import_id already exists in their account are silently
// discarded by the API and reported in DuplicateImportIDs.
func (c *Client) CreateTransactions(ctx context.Context, budgetID string, transactions []Transaction) (*CreateTransactionsResponse, error) {
	body, err := json.Marshal(createTransactionsRequest{Transactions: transactions})
	if err != nil {
		return nil, fmt.Errorf("failed to encode transactions: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/budgets/%s/transactions", c.baseURL, budgetID),
		bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK && httpResp.StatusCode != http.StatusCreated {
		return nil, c.parseError(httpResp)
	}

	var resp CreateTransactionsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))
	req.Header.Set("Content-Type", "application/json")
}

// parseError parses an error response from the YNAB API.
func (c *Client) parseError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Name: "failed to read error response"}
	}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Name: string(body)}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		ID:         errResp.Error.ID,
		Name:       errResp.Error.Name,
		Detail:     errResp.Error.Detail,
	}
}
