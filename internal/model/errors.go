package model

import (
	"fmt"
	"strings"
)

// ParseError represents a malformed inbound payload
type ParseError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s (%v)", e.Message, e.Cause)
		}
		return e.Message
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a new parse error
func NewParseError(field, message string, cause error) *ParseError {
	return &ParseError{
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// Validation rules
const (
	RuleRequired = "required"
	RuleNumber   = "number"
)

// FieldError is a single field violation.
// Message is the caller-facing text, e.g. "totalAmount is required".
type FieldError struct {
	Field   string
	Value   interface{}
	Rule    string
	Message string
}

func (e *FieldError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed on %s: %s (value=%v, rule=%s)", e.Field, e.Message, e.Value, e.Rule)
	}
	return fmt.Sprintf("validation failed on %s: %s (rule=%s)", e.Field, e.Message, e.Rule)
}

// NewFieldError creates a new field error
func NewFieldError(field string, value interface{}, rule, message string) *FieldError {
	return &FieldError{
		Field:   field,
		Value:   value,
		Rule:    rule,
		Message: message,
	}
}

// ValidationError collects every field violation of one payload
type ValidationError struct {
	Fields []*FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages(), "; ")
}

// Messages returns the caller-facing messages in rule order
func (e *ValidationError) Messages() []string {
	messages := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		messages = append(messages, f.Message)
	}
	return messages
}

// NewValidationError creates a validation error, or nil when there are no violations
func NewValidationError(fields []*FieldError) *ValidationError {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// MaxTLVValueLength is the largest value a single length byte can describe
const MaxTLVValueLength = 255

// EncodingPreconditionError is returned when a QR field does not fit the TLV format
type EncodingPreconditionError struct {
	Tag    int
	Field  string
	Length int
}

func (e *EncodingPreconditionError) Error() string {
	return fmt.Sprintf("tlv tag %d (%s): value is %d bytes, limit is %d", e.Tag, e.Field, e.Length, MaxTLVValueLength)
}

// NewEncodingPreconditionError creates a new encoding precondition error
func NewEncodingPreconditionError(tag int, field string, length int) *EncodingPreconditionError {
	return &EncodingPreconditionError{
		Tag:    tag,
		Field:  field,
		Length: length,
	}
}
