package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"mybank-ledger/internal/apperr"
	"mybank-ledger/internal/domain"
	"mybank-ledger/internal/service"
)

type AccountHandler struct {
	accountService *service.AccountService
}

func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

type CreateAccountRequest struct {
	OwnerName      string `json:"ownerName"`
	AccountName    string `json:"accountName"`
	PhoneNumber    string `json:"phoneNumber"`
	Currency       string `json:"currency"`
	InitialBalance string `json:"initialBalance"`
}

type AccountResponse struct {
	ID            int64  `json:"id"`
	Iban          string `json:"iban"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
	OwnerName     string `json:"ownerName,omitempty"`
	BankName      string `json:"bankName"`
	PhoneNumber   string `json:"phoneNumber,omitempty"`
	Currency      string `json:"currency"`
	Balance       string `json:"balance"`
	CreatedAt     string `json:"createdAt"`
}

func toAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:            a.ID,
		Iban:          a.Iban,
		AccountNumber: a.AccountNumber,
		AccountName:   a.AccountName,
		OwnerName:     a.OwnerName,
		BankName:      a.BankName,
		PhoneNumber:   a.PhoneNumber,
		Currency:      a.Currency,
		Balance:       a.Balance.String(),
		CreatedAt:     a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.InvalidInput, "invalid request body"))
		return
	}

	initialBalance := decimal.Zero
	if req.InitialBalance != "" {
		var err error
		initialBalance, err = decimal.NewFromString(req.InitialBalance)
		if err != nil {
			writeError(w, apperr.New(apperr.InvalidAmount, "invalid initialBalance format"))
			return
		}
	}

	account, err := h.accountService.CreateAccount(service.CreateAccountRequest{
		OwnerName:      req.OwnerName,
		AccountName:    req.AccountName,
		PhoneNumber:    req.PhoneNumber,
		Currency:       req.Currency,
		InitialBalance: initialBalance,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "account_id")
	if err != nil {
		writeError(w, err)
		return
	}

	account, err := h.accountService.GetAccount(accountID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountService.ListAccounts()
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		items = append(items, toAccountResponse(&accounts[i]))
	}
	writeJSON(w, http.StatusOK, items)
}
