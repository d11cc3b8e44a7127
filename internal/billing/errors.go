package billing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error is a billing failure with a stable, machine-readable code.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on Code so wrapped variants with a specific message still match the sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrNotFound          = &Error{Code: "NOT_FOUND", Message: "not found"}
	ErrAlreadyExists     = &Error{Code: "ALREADY_EXISTS", Message: "already exists"}
	ErrInvalidInput      = &Error{Code: "INVALID_INPUT", Message: "invalid input"}
	ErrInsufficientStock = &Error{Code: "INSUFFICIENT_STOCK", Message: "insufficient stock"}
	ErrInvalidReturn     = &Error{Code: "INVALID_RETURN", Message: "invalid return"}
	ErrInvalidIdentifier = &Error{Code: "INVALID_IDENTIFIER", Message: "invalid identifier"}
)

func newError(base *Error, format string, args ...any) *Error {
	return &Error{Code: base.Code, Message: fmt.Sprintf(format, args...)}
}

// StockError names the first item that could not be covered by catalog stock.
type StockError struct {
	Category  string
	Item      string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *StockError) Error() string {
	return fmt.Sprintf("Insufficient stock for %s (%s). Available: %s, requested: %s",
		e.Item, e.Category, e.Available.String(), e.Requested.String())
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}

// Code returns the machine-readable code of a billing error, or "" for anything else.
func Code(err error) string {
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	if errors.Is(err, ErrInsufficientStock) {
		return ErrInsufficientStock.Code
	}
	return ""
}
