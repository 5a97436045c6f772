package odm_errors

import (
	"errors"

	goerrors "github.com/go-errors/errors"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Error kind codes
const (
	MISSING_ID               = "MISSING_ID"
	DECODING_FAILURE         = "DECODING_FAILURE"
	MISSING_DOCUMENT_FIELD   = "MISSING_DOCUMENT_FIELD"
	ILL_TYPED_DOCUMENT_FIELD = "ILL_TYPED_DOCUMENT_FIELD"
	INFRASTRUCTURE_FAILURE   = "INFRASTRUCTURE_FAILURE"
	VALIDATION_FAILURE       = "VALIDATION_FAILURE"
)

// Error is the failure type returned by every fallible operation of the ODM.
// Kind is one of the codes above, Message is a human-readable description
// naming the collection and the operation attempted, and Details optionally
// carries structured diagnostic context (for example the partial
// position-to-id mapping of a failed bulk insert).
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func New(kind string, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a cause to a new Error. The cause is wrapped with go-errors
// so a stack trace is captured at the wrapping site.
func Wrap(kind string, message string, cause error) *Error {
	if cause == nil {
		return New(kind, message)
	}

	var wrapped error
	if goErr, ok := cause.(*goerrors.Error); ok {
		wrapped = goErr
	} else {
		wrapped = goerrors.Wrap(cause, 1)
	}

	return &Error{Kind: kind, Message: message, cause: wrapped}
}

// WithDetails attaches structured diagnostic context to the error.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

func MissingIDError(message string) *Error {
	return New(MISSING_ID, message)
}

func DecodingError(message string, cause error) *Error {
	return Wrap(DECODING_FAILURE, message, cause)
}

func MissingFieldError(message string) *Error {
	return New(MISSING_DOCUMENT_FIELD, message)
}

func IllTypedFieldError(message string) *Error {
	return New(ILL_TYPED_DOCUMENT_FIELD, message)
}

func InfrastructureError(message string, cause error) *Error {
	return Wrap(INFRASTRUCTURE_FAILURE, message, cause)
}

func ValidationError(message string, cause error) *Error {
	return Wrap(VALIDATION_FAILURE, message, cause)
}

// KindOf returns the kind code of err, or the empty string if err does not
// wrap an *Error.
func KindOf(err error) string {
	var odmErr *Error
	if errors.As(err, &odmErr) {
		return odmErr.Kind
	}
	return ""
}

func IsKind(err error, kind string) bool {
	return KindOf(err) == kind
}

// DetailsOf extracts the diagnostic context attached to err, if any.
func DetailsOf(err error) any {
	var odmErr *Error
	if errors.As(err, &odmErr) {
		return odmErr.Details
	}
	return nil
}

// FromDriver maps a MongoDB driver error to an ODM error. Write exceptions,
// bulk write exceptions, command errors and transport failures all surface
// as INFRASTRUCTURE_FAILURE; the original driver error stays reachable
// through Unwrap so callers can still inspect it with errors.As.
func FromDriver(message string, err error) *Error {
	if err == nil {
		return nil
	}
	return InfrastructureError(message, err)
}

// IsDuplicateKey reports whether err carries a MongoDB duplicate key write
// error (codes 11000 and 11001).
func IsDuplicateKey(err error) bool {
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		for _, we := range writeErr.WriteErrors {
			if we.Code == 11000 || we.Code == 11001 {
				return true
			}
		}
	}

	var bulkWriteErr mongo.BulkWriteException
	if errors.As(err, &bulkWriteErr) {
		for _, we := range bulkWriteErr.WriteErrors {
			if we.Code == 11000 || we.Code == 11001 {
				return true
			}
		}
	}

	var commandErr mongo.CommandError
	if errors.As(err, &commandErr) {
		return commandErr.Code == 11000 || commandErr.Code == 11001
	}

	return false
}
