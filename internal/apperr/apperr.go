package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	InvalidInput           ErrorCode = "invalid_input"
	InvalidAmount          ErrorCode = "invalid_amount"
	InvalidIban            ErrorCode = "invalid_iban"
	InsufficientFunds      ErrorCode = "insufficient_funds"
	RecipientNameMismatch  ErrorCode = "recipient_name_mismatch"
	AlreadySettled         ErrorCode = "already_settled"
	GenerationExhausted    ErrorCode = "iban_generation_exhausted"
	AuthFailure            ErrorCode = "auth_failure"
	SettlementFailed       ErrorCode = "settlement_failed"
	AccountNotFound        ErrorCode = "account_not_found"
	DuplicateExternalTx    ErrorCode = "duplicate_external_transaction"
	TransferNotFound       ErrorCode = "transfer_not_found"
	DuplicateAccount       ErrorCode = "duplicate_account"
	InternalError          ErrorCode = "internal_error"
	CannotBeginTransaction ErrorCode = "cannot_begin_transaction"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *AppError) WithDetails(details string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// Is lets errors.Is match on the error code, so predefined errors work
// as sentinels even after WithDetails copies.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case InvalidInput, InvalidAmount, InvalidIban, InsufficientFunds,
		RecipientNameMismatch, AlreadySettled:
		return http.StatusBadRequest
	case AccountNotFound, TransferNotFound:
		return http.StatusNotFound
	case DuplicateAccount:
		return http.StatusConflict
	case AuthFailure:
		return http.StatusBadGateway
	case SettlementFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// From extracts an *AppError, wrapping unknown errors as internal.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(InternalError, "an unexpected error occurred").WithDetails(err.Error())
}

// Predefined errors for common cases
var (
	ErrInvalidAmount          = New(InvalidAmount, "amount must be positive")
	ErrInvalidIban            = New(InvalidIban, "invalid IBAN")
	ErrInsufficientFunds      = New(InsufficientFunds, "insufficient funds")
	ErrRecipientNameMismatch  = New(RecipientNameMismatch, "recipient name does not match the destination account")
	ErrAlreadySettled         = New(AlreadySettled, "transfer already settled")
	ErrGenerationExhausted    = New(GenerationExhausted, "could not generate a unique IBAN")
	ErrAuthFailure            = New(AuthFailure, "settlement credential acquisition failed")
	ErrSettlementFailed       = New(SettlementFailed, "settlement failed")
	ErrAccountNotFound        = New(AccountNotFound, "account not found")
	ErrTransferNotFound       = New(TransferNotFound, "transfer not found")
	ErrDuplicateAccount       = New(DuplicateAccount, "account already exists")
	ErrDuplicateExternalTx    = New(DuplicateExternalTx, "external transaction already recorded")
	ErrCannotBeginTransaction = New(CannotBeginTransaction, "executor cannot begin a transaction")
)
