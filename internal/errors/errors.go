// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrQuoteUnavailable = errors.New("quote not available")
	ErrSymbolNotFound   = errors.New("symbol not found")
	ErrRateLimited      = errors.New("rate limited")
	ErrConnectionFailed = errors.New("connection failed")
	ErrTimeout          = errors.New("operation timed out")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrDataNotFound     = errors.New("data not found")
	ErrDatabaseError    = errors.New("database error")
	ErrAlertNotFound    = errors.New("alert not found")
	ErrAlreadyRunning   = errors.New("tracking already running")
)

// FetchError represents a failure fetching market data for a symbol.
// The tracking loop logs it and skips the symbol for the cycle.
type FetchError struct {
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch error [%s]: %v", e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError.
func NewFetchError(symbol string, err error) *FetchError {
	return &FetchError{Symbol: symbol, Err: err}
}

// StoreError represents a persistence failure. A failed append loses that
// cycle's sample but never corrupts prior data.
type StoreError struct {
	Op     string
	Symbol string
	Err    error
}

func (e *StoreError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("store error [%s] %s: %v", e.Op, e.Symbol, e.Err)
	}
	return fmt.Sprintf("store error [%s]: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(op, symbol string, err error) *StoreError {
	return &StoreError{Op: op, Symbol: symbol, Err: err}
}

// NotifyError represents a single transport's delivery failure. One
// transport failing never blocks the others and never prevents the rule
// from being deactivated.
type NotifyError struct {
	Transport string
	RuleID    string
	Err       error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("notify error [%s] rule %s: %v", e.Transport, e.RuleID, e.Err)
}

func (e *NotifyError) Unwrap() error {
	return e.Err
}

// NewNotifyError creates a new NotifyError.
func NewNotifyError(transport, ruleID string, err error) *NotifyError {
	return &NotifyError{Transport: transport, RuleID: ruleID, Err: err}
}

// RuleError represents a validation or persistence failure while creating
// an alert rule. It is always surfaced to the caller, never swallowed.
type RuleError struct {
	Symbol  string
	Field   string
	Message string
	Err     error
}

func (e *RuleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rule error [%s] %s: %s: %v", e.Symbol, e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("rule error [%s] %s: %s", e.Symbol, e.Field, e.Message)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

// NewRuleError creates a new RuleError.
func NewRuleError(symbol, field, message string, err error) *RuleError {
	return &RuleError{Symbol: symbol, Field: field, Message: message, Err: err}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
