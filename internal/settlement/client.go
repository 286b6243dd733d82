package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"mybank-ledger/internal/apperr"
)

const (
	accountTransactionsPath = "/accountTransactions"
	sendTransferPath        = "/transfers"

	// Provider dates are day-month-year; timestamps carry a fixed +03:00.
	providerDateLayout = "02-01-2006"
	apiTimeLayout      = "2006-01-02T15:04:05-07:00"
)

var providerZone = time.FixedZone("+03:00", 3*60*60)

// ClientConfig configures the HTTP settlement client.
type ClientConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	ConsentID    string
	Scope        string
	ResourceEnv  string
}

// Client talks to the external settlement provider over HTTP.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Scope == "" {
		cfg.Scope = "account"
	}
	if cfg.ResourceEnv == "" {
		cfg.ResourceEnv = "sandbox"
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// AcquireCredential posts the b2b credential form and returns the access
// token. Any failure here is an auth failure, not a transport one.
func (c *Client) AcquireCredential(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("client_id", strings.TrimSpace(c.cfg.ClientID))
	form.Set("client_secret", strings.TrimSpace(c.cfg.ClientSecret))
	form.Set("grant_type", "b2b_credentials")
	form.Set("scope", strings.TrimSpace(c.cfg.Scope))
	form.Set("consentId", strings.TrimSpace(c.cfg.ConsentID))
	form.Set("resource", strings.TrimSpace(c.cfg.ResourceEnv))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", apperr.ErrAuthFailure.WithDetails(err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperr.ErrAuthFailure.WithDetails(err.Error())
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", apperr.ErrAuthFailure.WithDetails(err.Error())
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", apperr.ErrAuthFailure.WithDetails(fmt.Sprintf("token HTTP %d: %s", res.StatusCode, body))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", apperr.ErrAuthFailure.WithDetails(err.Error())
	}
	if strings.TrimSpace(tok.AccessToken) == "" {
		return "", apperr.ErrAuthFailure.WithDetails("token response has no access_token")
	}
	return tok.AccessToken, nil
}

type submitPayload struct {
	SenderAccountNumber string `json:"senderAccountNumber"`
	ReceiverIban        string `json:"receiverIban"`
	ReceiverName        string `json:"receiverName"`
	Amount              string `json:"amount"`
	Currency            string `json:"currency"`
	Description         string `json:"description,omitempty"`
}

type submitResponse struct {
	Success           bool   `json:"success"`
	Reference         string `json:"reference"`
	StatusCode        string `json:"statusCode"`
	StatusDescription string `json:"statusDescription"`
}

// SubmitTransfer submits the movement instruction. Declines come back as an
// unsuccessful Outcome; only connectivity problems return an error.
func (c *Client) SubmitTransfer(ctx context.Context, credential string, sreq SubmitRequest) (Outcome, error) {
	payload := submitPayload{
		SenderAccountNumber: sreq.FromAccountNumber,
		ReceiverIban:        sreq.ToIban,
		ReceiverName:        sreq.ToName,
		Amount:              sreq.Amount.String(),
		Currency:            sreq.Currency,
		Description:         sreq.Description,
	}

	status, body, err := c.post(ctx, credential, c.cfg.BaseURL+sendTransferPath, payload)
	if err != nil {
		return Outcome{}, err
	}
	if status >= 500 {
		return Outcome{}, fmt.Errorf("sendTransfer HTTP %d: %s", status, body)
	}

	var res submitResponse
	if err := json.Unmarshal(body, &res); err != nil {
		// A 4xx without a parseable body is still a decline, not an outage.
		if status >= 400 {
			return Outcome{
				Success:           false,
				StatusCode:        fmt.Sprintf("%d", status),
				StatusDescription: strings.TrimSpace(string(body)),
			}, nil
		}
		return Outcome{}, fmt.Errorf("sendTransfer: decoding response: %w", err)
	}

	return Outcome{
		Success:           res.Success,
		Reference:         res.Reference,
		StatusCode:        res.StatusCode,
		StatusDescription: res.StatusDescription,
	}, nil
}

type transactionsPayload struct {
	AccountNumber string `json:"AccountNumber"`
	StartDate     string `json:"StartDate"`
	EndDate       string `json:"EndDate"`
}

type transactionsResponse struct {
	Data struct {
		AccountTransactions []struct {
			TransactionID   string           `json:"TransactionId"`
			TransactionDate string           `json:"TransactionDate"`
			Amount          decimal.Decimal  `json:"Amount"`
			Currency        string           `json:"Currency"`
			Description     string           `json:"Description"`
			Direction       string           `json:"Direction"`
			Balance         *decimal.Decimal `json:"Balance"`
		} `json:"AccountTransactions"`
	} `json:"Data"`
}

// FetchTransactions pulls the provider-side transaction history for the
// dd-MM-yyyy range, inclusive on both ends.
func (c *Client) FetchTransactions(ctx context.Context, credential, accountNumber, startDate, endDate string) ([]ExternalTransaction, error) {
	apiStart, err := toAPITime(startDate, false)
	if err != nil {
		return nil, apperr.Newf(apperr.InvalidInput, "invalid start date %q, expected dd-MM-yyyy", startDate)
	}
	apiEnd, err := toAPITime(endDate, true)
	if err != nil {
		return nil, apperr.Newf(apperr.InvalidInput, "invalid end date %q, expected dd-MM-yyyy", endDate)
	}

	payload := transactionsPayload{
		AccountNumber: accountNumber,
		StartDate:     apiStart,
		EndDate:       apiEnd,
	}

	status, body, err := c.post(ctx, credential, c.cfg.BaseURL+accountTransactionsPath, payload)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("accountTransactions HTTP %d: %s", status, body)
	}

	var res transactionsResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("accountTransactions: decoding response: %w", err)
	}

	out := make([]ExternalTransaction, 0, len(res.Data.AccountTransactions))
	for _, row := range res.Data.AccountTransactions {
		out = append(out, ExternalTransaction{
			ExternalID:    row.TransactionID,
			Date:          row.TransactionDate,
			Amount:        row.Amount,
			Currency:      row.Currency,
			Description:   row.Description,
			DirectionCode: row.Direction,
			BalanceAfter:  row.Balance,
		})
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, credential, fullURL string, payload any) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("x-ibm-client-id", c.cfg.ClientID)
	req.Header.Set("x-consent-id", c.cfg.ConsentID)
	req.Header.Set("x-resource-indicator", c.cfg.ResourceEnv)
	req.Header.Set("x-fapi-interaction-id", uuid.NewString())

	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, err
	}
	return res.StatusCode, body, nil
}

// toAPITime converts dd-MM-yyyy into the provider timestamp format, at the
// start of the day or 23:59:59 for the range end.
func toAPITime(d string, endOfDay bool) (string, error) {
	t, err := time.ParseInLocation(providerDateLayout, strings.TrimSpace(d), providerZone)
	if err != nil {
		return "", err
	}
	if endOfDay {
		t = t.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
	}
	return t.Format(apiTimeLayout), nil
}

var _ Adapter = (*Client)(nil)
