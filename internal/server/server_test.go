package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"mybank-ledger/internal/config"
)

// ServerTestSuite drives the full HTTP surface against the in-memory store
// and the local settlement adapter.
type ServerTestSuite struct {
	suite.Suite
	server  *Server
	baseURL string
	client  *http.Client
}

func (s *ServerTestSuite) SetupTest() {
	cfg := config.Config{
		ServerPort: "0",
		BankCode:   "00061",
		BankName:   "MyBank",
	}

	server, port, err := StartServer(cfg)
	require.NoError(s.T(), err)

	s.server = server
	s.baseURL = "http://localhost:" + port
	s.client = &http.Client{Timeout: 10 * time.Second}
}

func (s *ServerTestSuite) TearDownTest() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.server.Stop(ctx)
}

func (s *ServerTestSuite) do(method, path string, payload any) (int, map[string]interface{}) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(s.T(), err)
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, s.baseURL+path, body)
	require.NoError(s.T(), err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	require.NoError(s.T(), err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var parsed map[string]interface{}
	if len(raw) > 0 {
		require.NoError(s.T(), json.Unmarshal(raw, &parsed), "body: %s", raw)
	}
	return resp.StatusCode, parsed
}

func (s *ServerTestSuite) data(body map[string]interface{}) map[string]interface{} {
	data, ok := body["data"].(map[string]interface{})
	require.True(s.T(), ok, "response has no data object: %v", body)
	return data
}

func (s *ServerTestSuite) errorCode(body map[string]interface{}) string {
	errObj, ok := body["error"].(map[string]interface{})
	require.True(s.T(), ok, "response has no error object: %v", body)
	return errObj["code"].(string)
}

func (s *ServerTestSuite) createAccount(owner, balance string) map[string]interface{} {
	status, body := s.do(http.MethodPost, "/accounts", map[string]string{
		"ownerName":      owner,
		"initialBalance": balance,
	})
	require.Equal(s.T(), http.StatusCreated, status, "body: %v", body)
	return s.data(body)
}

func (s *ServerTestSuite) accountBalance(id float64) string {
	status, body := s.do(http.MethodGet, fmt.Sprintf("/accounts/%.0f", id), nil)
	require.Equal(s.T(), http.StatusOK, status)
	return s.data(body)["balance"].(string)
}

func (s *ServerTestSuite) assertDecimalEqual(expected, actual string) {
	expectedDec, err := decimal.NewFromString(expected)
	require.NoError(s.T(), err)
	actualDec, err := decimal.NewFromString(actual)
	require.NoError(s.T(), err)
	assert.True(s.T(), expectedDec.Equal(actualDec),
		"decimal values not equal: expected %s, got %s", expected, actual)
}

func (s *ServerTestSuite) TestHealth() {
	resp, err := s.client.Get(s.baseURL + "/health")
	require.NoError(s.T(), err)
	defer resp.Body.Close()

	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)

	var health map[string]string
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(s.T(), "healthy", health["status"])
}

func (s *ServerTestSuite) TestAccountLifecycle() {
	created := s.createAccount("Ayşe Yılmaz", "1000.50")
	assert.NotEmpty(s.T(), created["iban"])
	assert.Equal(s.T(), "Vadesiz - Ayşe Yılmaz", created["accountName"])
	assert.Equal(s.T(), "MyBank", created["bankName"])
	assert.Equal(s.T(), "TRY", created["currency"])

	status, body := s.do(http.MethodGet, "/accounts", nil)
	assert.Equal(s.T(), http.StatusOK, status)
	items, ok := body["data"].([]interface{})
	require.True(s.T(), ok)
	assert.Len(s.T(), items, 1)

	status, _ = s.do(http.MethodGet, "/accounts/99999", nil)
	assert.Equal(s.T(), http.StatusNotFound, status)

	status, body = s.do(http.MethodPost, "/accounts", map[string]string{"ownerName": ""})
	assert.Equal(s.T(), http.StatusBadRequest, status)
	assert.Equal(s.T(), "invalid_input", s.errorCode(body))
}

func (s *ServerTestSuite) TestTransferFlow() {
	from := s.createAccount("Ayşe Yılmaz", "1000.00")
	to := s.createAccount("Mehmet Demir", "250.00")

	status, body := s.do(http.MethodPost, "/transfers", map[string]interface{}{
		"fromAccountId": int64(from["id"].(float64)),
		"toIban":        to["iban"],
		"toName":        "Mehmet Demir",
		"amount":        "300.00",
		"description":   "rent",
	})
	require.Equal(s.T(), http.StatusCreated, status, "body: %v", body)

	transfer := s.data(body)
	assert.Equal(s.T(), "Completed", transfer["status"])
	assert.NotEmpty(s.T(), transfer["bankReference"])
	assert.NotEmpty(s.T(), transfer["completedAt"])
	assert.Equal(s.T(), from["accountNumber"], transfer["fromAccountNumber"])

	s.assertDecimalEqual("700.00", s.accountBalance(from["id"].(float64)))
	s.assertDecimalEqual("550.00", s.accountBalance(to["id"].(float64)))

	// Projection by id.
	status, body = s.do(http.MethodGet, fmt.Sprintf("/transfers/%.0f", transfer["id"].(float64)), nil)
	assert.Equal(s.T(), http.StatusOK, status)
	assert.Equal(s.T(), "Completed", s.data(body)["status"])

	// Paged listing, newest first.
	status, body = s.do(http.MethodGet, fmt.Sprintf("/transfers/by-account/%.0f?page=1&pageSize=10", from["id"].(float64)), nil)
	assert.Equal(s.T(), http.StatusOK, status)
	list := s.data(body)
	assert.Equal(s.T(), float64(1), list["total"])

	// Ledger entries on both sides.
	status, body = s.do(http.MethodGet, "/transactions/recent?take=10", nil)
	assert.Equal(s.T(), http.StatusOK, status)
	assert.Equal(s.T(), float64(2), s.data(body)["total"])

	status, body = s.do(http.MethodGet, fmt.Sprintf("/transactions/by-account/%.0f", to["id"].(float64)), nil)
	assert.Equal(s.T(), http.StatusOK, status)
	assert.Equal(s.T(), float64(1), s.data(body)["total"])
}

func (s *ServerTestSuite) TestTransferValidationErrors() {
	from := s.createAccount("Ayşe Yılmaz", "100.00")
	to := s.createAccount("Mehmet Demir", "0")
	fromID := int64(from["id"].(float64))

	cases := []struct {
		name       string
		payload    map[string]interface{}
		wantStatus int
		wantCode   string
	}{
		{
			"invalid amount format",
			map[string]interface{}{"fromAccountId": fromID, "toIban": to["iban"], "amount": "abc"},
			http.StatusBadRequest, "invalid_amount",
		},
		{
			"negative amount",
			map[string]interface{}{"fromAccountId": fromID, "toIban": to["iban"], "amount": "-5"},
			http.StatusBadRequest, "invalid_amount",
		},
		{
			"bad iban",
			map[string]interface{}{"fromAccountId": fromID, "toIban": "TR11INVALID00", "amount": "5"},
			http.StatusBadRequest, "invalid_iban",
		},
		{
			"insufficient funds",
			map[string]interface{}{"fromAccountId": fromID, "toIban": to["iban"], "amount": "100.01"},
			http.StatusBadRequest, "insufficient_funds",
		},
		{
			"name mismatch",
			map[string]interface{}{"fromAccountId": fromID, "toIban": to["iban"], "toName": "Whoever Else", "amount": "5"},
			http.StatusBadRequest, "recipient_name_mismatch",
		},
		{
			"unknown source account",
			map[string]interface{}{"fromAccountId": int64(99999), "toIban": to["iban"], "amount": "5"},
			http.StatusNotFound, "account_not_found",
		},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			status, body := s.do(http.MethodPost, "/transfers", tc.payload)
			assert.Equal(s.T(), tc.wantStatus, status)
			assert.Equal(s.T(), tc.wantCode, s.errorCode(body))
		})
	}

	s.assertDecimalEqual("100.00", s.accountBalance(from["id"].(float64)))
}

func (s *ServerTestSuite) TestResendCompletedTransferRejected() {
	from := s.createAccount("Ayşe Yılmaz", "100.00")
	to := s.createAccount("Mehmet Demir", "0")

	status, body := s.do(http.MethodPost, "/transfers", map[string]interface{}{
		"fromAccountId": int64(from["id"].(float64)),
		"toIban":        to["iban"],
		"amount":        "10",
	})
	require.Equal(s.T(), http.StatusCreated, status)
	transferID := s.data(body)["id"].(float64)

	status, body = s.do(http.MethodPost, fmt.Sprintf("/transfers/%.0f/send", transferID), nil)
	assert.Equal(s.T(), http.StatusBadRequest, status)
	assert.Equal(s.T(), "already_settled", s.errorCode(body))

	status, body = s.do(http.MethodPost, "/transfers/99999/send", nil)
	assert.Equal(s.T(), http.StatusNotFound, status)
	assert.Equal(s.T(), "transfer_not_found", s.errorCode(body))
}

func (s *ServerTestSuite) TestSyncTransactions() {
	account := s.createAccount("Ayşe Yılmaz", "100.00")
	accountID := account["id"].(float64)

	// The local adapter has no provider history.
	status, body := s.do(http.MethodPost, fmt.Sprintf("/accounts/%.0f/sync-transactions", accountID), map[string]string{
		"startDate": "01-08-2025",
		"endDate":   "15-08-2025",
	})
	assert.Equal(s.T(), http.StatusOK, status)
	result := s.data(body)
	assert.Equal(s.T(), float64(0), result["synced"])
	assert.Equal(s.T(), float64(0), result["received"])

	status, body = s.do(http.MethodPost, fmt.Sprintf("/accounts/%.0f/sync-transactions", accountID), map[string]string{})
	assert.Equal(s.T(), http.StatusBadRequest, status)
	assert.Equal(s.T(), "invalid_input", s.errorCode(body))
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
