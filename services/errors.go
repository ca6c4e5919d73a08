package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRoleNotFound      = errors.New("role not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrRoleAlreadyExists = errors.New("role already exists")
	ErrInvalidPassword   = errors.New("invalid password")
)

// IdentityError is one failure reported by the identity store.
type IdentityError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// StoreOperationError reports that a state-changing store call failed.
// Errors is safe to return to callers; Err is the underlying cause.
type StoreOperationError struct {
	Op     string
	Errors []IdentityError
	Err    error
}

func (e *StoreOperationError) Error() string {
	descs := make([]string, 0, len(e.Errors))
	for _, ie := range e.Errors {
		descs = append(descs, ie.Code+": "+ie.Description)
	}
	msg := fmt.Sprintf("%s failed: %s", e.Op, strings.Join(descs, "; "))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StoreOperationError) Unwrap() error {
	return e.Err
}

func storeFailure(op string, err error) *StoreOperationError {
	return &StoreOperationError{
		Op:     op,
		Errors: []IdentityError{{Code: "DefaultError", Description: "An unknown failure has occurred."}},
		Err:    err,
	}
}

// ValidationError carries per-field messages keyed by the JSON field name.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msgs := range e.Fields {
		parts = append(parts, field+": "+strings.Join(msgs, ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}
