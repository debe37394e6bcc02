// Package errs defines the error kinds the billing service reports:
// validation failures, missing entities, unique-key conflicts, and
// computation invariant violations. Handlers map these to HTTP status
// codes; everything else is treated as internal.
package errs

import (
	"fmt"
	"strings"
)

// FieldError describes a single invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (f FieldError) String() string {
	return f.Field + ": " + f.Message
}

// ValidationError reports one or more malformed or missing fields.
// It carries enough structure for a caller to re-render a form.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field error and returns the receiver for chaining.
func (e *ValidationError) Add(field, format string, args ...interface{}) *ValidationError {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	return e
}

// HasErrors reports whether any field failed.
func (e *ValidationError) HasErrors() bool { return len(e.Fields) > 0 }

// Validation builds a single-field validation error.
func Validation(field, format string, args ...interface{}) *ValidationError {
	return (&ValidationError{}).Add(field, format, args...)
}

// NotFoundError indicates a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

// NotFound builds a NotFoundError for the given entity and key.
func NotFound(entity, key string) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: key}
}

// ConflictError indicates a duplicate unique key, e.g. medicine name or
// room number.
type ConflictError struct {
	Entity string
	Field  string
	Value  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Entity, e.Field, e.Value)
}

// Conflict builds a ConflictError.
func Conflict(entity, field, value string) *ConflictError {
	return &ConflictError{Entity: entity, Field: field, Value: value}
}

// InvariantError indicates stored data disagrees with a computed value,
// e.g. a line item's cached total differing from quantity times price.
// These are internal faults: logged and rejected, never silently fixed.
type InvariantError struct {
	Detail string
}

func (e *InvariantError) Error() string {
	return "computation invariant violated: " + e.Detail
}

// Invariant builds an InvariantError.
func Invariant(format string, args ...interface{}) *InvariantError {
	return &InvariantError{Detail: fmt.Sprintf(format, args...)}
}
