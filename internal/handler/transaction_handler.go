package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mybank-ledger/internal/apperr"
	"mybank-ledger/internal/domain"
	"mybank-ledger/internal/service"
)

type TransactionHandler struct {
	syncService *service.SyncService
	store       domain.Store
}

func NewTransactionHandler(syncService *service.SyncService, store domain.Store) *TransactionHandler {
	return &TransactionHandler{
		syncService: syncService,
		store:       store,
	}
}

type SyncTransactionsRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type TransactionResponse struct {
	ID              int64  `json:"id"`
	AccountID       int64  `json:"accountId"`
	AccountName     string `json:"accountName,omitempty"`
	TransactionDate string `json:"transactionDate"`
	Currency        string `json:"currency"`
	Direction       string `json:"direction"`
	Amount          string `json:"amount"`
	Description     string `json:"description,omitempty"`
	ExternalID      string `json:"externalId,omitempty"`
	BalanceAfter    string `json:"balanceAfter,omitempty"`
}

type TransactionListResponse struct {
	Total    int                   `json:"total"`
	Page     int                   `json:"page,omitempty"`
	PageSize int                   `json:"pageSize,omitempty"`
	Items    []TransactionResponse `json:"items"`
}

func toTransactionResponse(tx *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:              tx.ID,
		AccountID:       tx.AccountID,
		AccountName:     tx.AccountName,
		TransactionDate: tx.TransactionDate.UTC().Format(time.RFC3339),
		Currency:        tx.Currency,
		Direction:       tx.Direction,
		Amount:          tx.Amount.String(),
		Description:     tx.Description,
		ExternalID:      tx.ExternalID,
	}
	if tx.BalanceAfter != nil {
		resp.BalanceAfter = tx.BalanceAfter.String()
	}
	return resp
}

func (h *TransactionHandler) SyncTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "account_id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req SyncTransactionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.InvalidInput, "invalid request body"))
		return
	}
	if strings.TrimSpace(req.StartDate) == "" || strings.TrimSpace(req.EndDate) == "" {
		writeError(w, apperr.New(apperr.InvalidInput, "startDate and endDate are required"))
		return
	}

	result, err := h.syncService.Sync(r.Context(), accountID, req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *TransactionHandler) ListRecentTransactions(w http.ResponseWriter, r *http.Request) {
	take, err := queryInt(r, "take", "10")
	if err != nil {
		writeError(w, err)
		return
	}
	skip, err := queryInt(r, "skip", "0")
	if err != nil {
		writeError(w, err)
		return
	}

	filter := domain.TransactionFilter{
		Take:      take,
		Skip:      skip,
		Currency:  strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency"))),
		Direction: strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("direction"))),
	}
	if raw := r.URL.Query().Get("accountId"); raw != "" {
		accountID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || accountID <= 0 {
			writeError(w, apperr.New(apperr.InvalidInput, "invalid accountId"))
			return
		}
		filter.AccountID = &accountID
	}

	transactions, total, err := h.store.Transactions().ListRecentTransactions(filter)
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]TransactionResponse, 0, len(transactions))
	for i := range transactions {
		items = append(items, toTransactionResponse(&transactions[i]))
	}
	writeJSON(w, http.StatusOK, TransactionListResponse{Total: total, Items: items})
}

func (h *TransactionHandler) ListTransactionsByAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "account_id")
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := queryInt(r, "page", "1")
	if err != nil {
		writeError(w, err)
		return
	}
	pageSize, err := queryInt(r, "pageSize", "20")
	if err != nil {
		writeError(w, err)
		return
	}

	transactions, total, err := h.store.Transactions().ListTransactionsByAccount(accountID, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]TransactionResponse, 0, len(transactions))
	for i := range transactions {
		items = append(items, toTransactionResponse(&transactions[i]))
	}
	writeJSON(w, http.StatusOK, TransactionListResponse{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Items:    items,
	})
}
