package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
)

// Kind classifies translation failures
type Kind string

const (
	KindMissingRequiredFields Kind = "MISSING_REQUIRED_FIELDS"
	KindImpossibleState       Kind = "IMPOSSIBLE_STATE"
	KindImpossibleInternal    Kind = "IMPOSSIBLE_INTERNAL"
	KindUnhandledEdgeCase     Kind = "UNHANDLED_EDGE_CASE"
	KindRawUserError          Kind = "RAW_USER_ERROR"
	KindUserError             Kind = "USER_ERROR"
	KindBillingAPI            Kind = "BILLING_API"
	KindCRMAPI                Kind = "CRM_API"
	KindUnsupportedType       Kind = "UNSUPPORTED_TYPE"
)

// TranslationError is raised by the translation engine and its providers
type TranslationError struct {
	Kind    Kind
	Message string
	// Record is the Salesforce record the failure is attributed to
	Record        *crm.Record
	MissingFields []string
	// RequestID is the billing API request id, when available
	RequestID string
	Cause     error
}

func (e *TranslationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// UserFacing reports whether the error is meant to be fixed by the Salesforce user
func (e *TranslationError) UserFacing() bool {
	switch e.Kind {
	case KindMissingRequiredFields, KindUserError, KindRawUserError, KindUnhandledEdgeCase, KindBillingAPI:
		return true
	}
	return false
}

// NewMissingRequiredFieldsError reports required mappings that resolved to nothing
func NewMissingRequiredFieldsError(record *crm.Record, fields []string) *TranslationError {
	return &TranslationError{
		Kind:          KindMissingRequiredFields,
		Message:       "missing required fields: " + strings.Join(fields, ", "),
		Record:        record,
		MissingFields: fields,
	}
}

// NewImpossibleStateError reports Salesforce data that violates a CPQ invariant
func NewImpossibleStateError(message string) *TranslationError {
	return &TranslationError{Kind: KindImpossibleState, Message: message}
}

// NewImpossibleInternalError reports a broken internal invariant
func NewImpossibleInternalError(message string) *TranslationError {
	return &TranslationError{Kind: KindImpossibleInternal, Message: message}
}

// NewUnhandledEdgeCaseError reports a data shape that is not supported yet
func NewUnhandledEdgeCaseError(message string) *TranslationError {
	return &TranslationError{Kind: KindUnhandledEdgeCase, Message: message}
}

// NewRawUserError reports bad user data discovered without record context
func NewRawUserError(message string) *TranslationError {
	return &TranslationError{Kind: KindRawUserError, Message: message}
}

// NewUserError reports bad user data on a specific record
func NewUserError(record *crm.Record, message string) *TranslationError {
	return &TranslationError{Kind: KindUserError, Message: message, Record: record}
}

// NewBillingAPIError wraps an error returned by the billing platform
func NewBillingAPIError(message, requestID string, cause error) *TranslationError {
	return &TranslationError{
		Kind:      KindBillingAPI,
		Message:   message,
		RequestID: requestID,
		Cause:     cause,
	}
}

// NewCRMAPIError wraps an error returned by Salesforce
func NewCRMAPIError(message string, cause error) *TranslationError {
	return &TranslationError{Kind: KindCRMAPI, Message: message, Cause: cause}
}

// NewUnsupportedTypeError reports a record type the translator cannot handle
func NewUnsupportedTypeError(objectType crm.ObjectType) *TranslationError {
	return &TranslationError{
		Kind:    KindUnsupportedType,
		Message: fmt.Sprintf("unsupported translation type %s", objectType),
	}
}

// AsTranslationError returns the first TranslationError in err's chain
func AsTranslationError(err error) (*TranslationError, bool) {
	var te *TranslationError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsKind reports whether err carries a TranslationError of the given kind
func IsKind(err error, kind Kind) bool {
	te, ok := AsTranslationError(err)
	return ok && te.Kind == kind
}
