package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind groups errors by the pipeline stage that produced them
type Kind string

const (
	KindFetch      Kind = "fetch"
	KindParse      Kind = "parse"
	KindPersist    Kind = "persist"
	KindConfig     Kind = "config"
	KindCheckpoint Kind = "checkpoint"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeClientError ErrorType = "client_error"
	ErrorTypeMalformed   ErrorType = "malformed"
	ErrorTypeEmpty       ErrorType = "empty"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error is the typed error returned by every stage of the pipeline
type Error struct {
	Kind    Kind
	Type    ErrorType
	Op      string
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + " error"
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Type != "" && e.Type != ErrorTypeUnknown {
		msg += " (" + string(e.Type)
		if e.Code != 0 {
			msg += fmt.Sprintf(", code %d", e.Code)
		}
		msg += ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fetch builds a fetch error
func Fetch(errType ErrorType, code int, message string, err error) *Error {
	return &Error{Kind: KindFetch, Type: errType, Code: code, Message: message, Err: err}
}

// Parse builds a parse error for the given operation
func Parse(op string, err error) *Error {
	return &Error{Kind: KindParse, Op: op, Err: err}
}

// Persist builds a persistence error for the given operation
func Persist(op string, err error) *Error {
	return &Error{Kind: KindPersist, Op: op, Err: err}
}

// Checkpoint builds a checkpoint error for the given operation
func Checkpoint(op string, err error) *Error {
	return &Error{Kind: KindCheckpoint, Op: op, Err: err}
}

// Config builds a configuration error
func Config(message string, err error) *Error {
	return &Error{Kind: KindConfig, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsFetch(err error) bool      { return KindOf(err) == KindFetch }
func IsParse(err error) bool      { return KindOf(err) == KindParse }
func IsPersist(err error) bool    { return KindOf(err) == KindPersist }
func IsCheckpoint(err error) bool { return KindOf(err) == KindCheckpoint }

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	case ErrorTypeClientError, ErrorTypeMalformed, ErrorTypeEmpty:
		return false
	default:
		return false
	}
}

// TypeForStatus maps a non-2xx HTTP status to an error type
func TypeForStatus(statusCode int) ErrorType {
	switch {
	case statusCode == 429:
		return ErrorTypeRateLimit
	case statusCode >= 500:
		return ErrorTypeServerError
	case statusCode >= 400:
		return ErrorTypeClientError
	default:
		return ErrorTypeUnknown
	}
}
