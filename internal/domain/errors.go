package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrValidation        = errors.New("invalid input")
	ErrConnectivity      = errors.New("store unavailable")
	ErrDuplicateInvoice  = errors.New("invoice number already issued")
)

type NotFoundError struct {
	Kind string // product, cart, sale, ...
	ID   string
}

func NotFound(kind, id string) error { return &NotFoundError{Kind: kind, ID: id} }

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %q not found", e.Kind, e.ID) }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StockError names the product that could not cover the requested quantity.
type StockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	name := e.Name
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("insufficient stock for %s (need %d, have %d)", name, e.Requested, e.Available)
}

func (e *StockError) Is(target error) bool { return target == ErrInsufficientStock }

type ValidationError struct {
	Field   string
	Message string
}

func Invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConnectivityError wraps a failure to reach a backing store.
type ConnectivityError struct {
	Op    string
	Cause error
}

func Unavailable(op string, cause error) error { return &ConnectivityError{Op: op, Cause: cause} }

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s: store unavailable: %v", e.Op, e.Cause)
}

func (e *ConnectivityError) Unwrap() error { return e.Cause }

func (e *ConnectivityError) Is(target error) bool { return target == ErrConnectivity }
