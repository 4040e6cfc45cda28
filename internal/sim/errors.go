package sim

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes scheduler errors.
type ErrorCode string

const (
	// CodeConfig indicates an invalid configuration. Fatal before any
	// candidate is processed.
	CodeConfig ErrorCode = "CONFIG_INVALID"

	// CodeDomain indicates a per-candidate domain failure. Recovered by
	// deactivating only the offending candidate.
	CodeDomain ErrorCode = "DOMAIN_ERROR"

	// CodeInvariant indicates a programming error such as processing an
	// inactive candidate or a negative step. Always a hard failure.
	CodeInvariant ErrorCode = "INVARIANT_VIOLATION"

	// CodeSourceExhausted indicates the source failed before the requested
	// candidate count was reached. Fatal to the run call.
	CodeSourceExhausted ErrorCode = "SOURCE_EXHAUSTED"
)

// ConfigError reports an invalid engine configuration.
// Configuration errors are surfaced before any candidate is processed.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", CodeConfig, e.Message)
}

// NewConfigError creates a ConfigError with a formatted message.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// DomainError reports an unphysical state produced by a module for one
// candidate. The scheduler recovers by deactivating that candidate with a
// diagnostic tag; the run continues.
type DomainError struct {
	Module  string // module that raised the error
	Lineage string // affected candidate, filled in by the scheduler
	Message string
	Err     error // optional underlying error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", CodeDomain, e.Module, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", CodeDomain, e.Module, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a DomainError for the named module.
func NewDomainError(module, format string, args ...any) *DomainError {
	return &DomainError{Module: module, Message: fmt.Sprintf(format, args...)}
}

// InvariantError reports a violated scheduler invariant.
// Distinct from DomainError: it is a programming error and fails hard.
type InvariantError struct {
	Message string
	Lineage string
	Err     error
}

func (e *InvariantError) Error() string {
	msg := fmt.Sprintf("%s: %s", CodeInvariant, e.Message)
	if e.Lineage != "" {
		msg += fmt.Sprintf(" (candidate=%s)", e.Lineage)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *InvariantError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is a configuration error.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsDomainError reports whether err is a recoverable per-candidate error.
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// IsInvariantError reports whether err is an invariant violation.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
