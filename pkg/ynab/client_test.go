package ynab

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(ClientConfig{
		BaseURL:     server.URL,
		AccessToken: "dummy_api_key",
	})
}

func TestListBudgets(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/budgets", r.URL.Path)
		assert.Equal(t, "Bearer dummy_api_key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":{"budgets":[{"id":"budget_id","name":"My Budget"}]}}`))
	})

	budgets, err := client.ListBudgets(context.Background())
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.Equal(t, Budget{ID: "budget_id", Name: "My Budget"}, budgets[0])
}

func TestListAccounts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/budgets/budget_id/accounts", r.URL.Path)
		w.Write([]byte(`{"data":{"accounts":[{"id":"account_id","name":"YNAB Account","closed":false}]}}`))
	})

	accounts, err := client.ListAccounts(context.Background(), "budget_id")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "YNAB Account", accounts[0].Name)
}

func TestCreateTransactions(t *testing.T) {
	var received createTransactionsRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/budgets/budget_id/transactions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"transaction_ids":["t1"],"duplicate_import_ids":["MFBY:v1:dup"]}}`))
	})

	txns := []Transaction{{
		AccountID: "account_id",
		Date:      "2024-07-17",
		Amount:    77000,
		PayeeName: "transaction content",
		Cleared:   "cleared",
		Memo:      "transaction content - 食費/食料品",
		ImportID:  "MFBY:v1:123abc",
	}}

	resp, err := client.CreateTransactions(context.Background(), "budget_id", txns)
	require.NoError(t, err)

	assert.Equal(t, txns, received.Transactions)
	assert.Equal(t, []string{"t1"}, resp.Data.TransactionIDs)
	assert.Equal(t, []string{"MFBY:v1:dup"}, resp.Data.DuplicateImportIDs)
}

func TestAPIErrorEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"id":"401","name":"unauthorized","detail":"Unauthorized"}}`))
	})

	_, err := client.ListBudgets(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "unauthorized", apiErr.Name)
	assert.Equal(t, "Unauthorized", apiErr.Detail)
}

func TestAPIErrorNonJSONBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("bad gateway"))
	})

	_, err := client.ListBudgets(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Contains(t, apiErr.Name, "bad gateway")
}
