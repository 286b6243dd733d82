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

type TransferHandler struct {
	transferService *service.TransferService
	accountService  *service.AccountService
}

func NewTransferHandler(transferService *service.TransferService, accountService *service.AccountService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
		accountService:  accountService,
	}
}

type CreateTransferRequest struct {
	FromAccountID int64  `json:"fromAccountId"`
	ToIban        string `json:"toIban"`
	ToName        string `json:"toName"`
	Amount        string `json:"amount"`
	Description   string `json:"description"`
}

type TransferResponse struct {
	ID                int64  `json:"id"`
	FromAccountID     int64  `json:"fromAccountId"`
	FromAccountNumber string `json:"fromAccountNumber,omitempty"`
	ToIban            string `json:"toIban"`
	ToName            string `json:"toName,omitempty"`
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	Status            string `json:"status"`
	BankReference     string `json:"bankReference,omitempty"`
	RequestedAt       string `json:"requestedAt"`
	CompletedAt       string `json:"completedAt,omitempty"`
}

type TransferListResponse struct {
	Total    int                `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"pageSize"`
	Items    []TransferResponse `json:"items"`
}

func (h *TransferHandler) toTransferResponse(t *domain.Transfer) TransferResponse {
	resp := TransferResponse{
		ID:            t.ID,
		FromAccountID: t.FromAccountID,
		ToIban:        t.ToIban,
		ToName:        t.ToName,
		Amount:        t.Amount.String(),
		Currency:      t.Currency,
		Status:        string(t.Status),
		BankReference: t.BankReference,
		RequestedAt:   t.RequestedAt.UTC().Format(time.RFC3339),
	}
	if t.CompletedAt != nil {
		resp.CompletedAt = t.CompletedAt.UTC().Format(time.RFC3339)
	}
	if account, err := h.accountService.GetAccount(t.FromAccountID); err == nil {
		resp.FromAccountNumber = account.AccountNumber
	}
	return resp
}

func (h *TransferHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.InvalidInput, "invalid request body"))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, apperr.New(apperr.InvalidAmount, "invalid amount format"))
		return
	}

	transfer, err := h.transferService.CreateAndSettle(r.Context(), service.TransferRequest{
		FromAccountID: req.FromAccountID,
		ToIban:        req.ToIban,
		ToName:        req.ToName,
		Amount:        amount,
		Description:   req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	// Settlement declines still create the transfer; the caller reads the
	// terminal status off the projection.
	writeJSON(w, http.StatusCreated, h.toTransferResponse(transfer))
}

func (h *TransferHandler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	transferID, err := pathID(r, "transfer_id")
	if err != nil {
		writeError(w, err)
		return
	}

	transfer, err := h.transferService.GetTransfer(transferID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.toTransferResponse(transfer))
}

func (h *TransferHandler) ListTransfersByAccount(w http.ResponseWriter, r *http.Request) {
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

	transfers, total, err := h.transferService.ListTransfersByAccount(accountID, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]TransferResponse, 0, len(transfers))
	for i := range transfers {
		items = append(items, h.toTransferResponse(&transfers[i]))
	}
	writeJSON(w, http.StatusOK, TransferListResponse{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Items:    items,
	})
}

func (h *TransferHandler) ResendTransfer(w http.ResponseWriter, r *http.Request) {
	transferID, err := pathID(r, "transfer_id")
	if err != nil {
		writeError(w, err)
		return
	}

	transfer, err := h.transferService.Resend(r.Context(), transferID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.toTransferResponse(transfer))
}
