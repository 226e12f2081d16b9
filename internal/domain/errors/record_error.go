package errors

import (
	"errors"

	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
)

// RecordError attributes an untyped error to the record being processed
type RecordError struct {
	Record *crm.Record
	Err    error
}

func (e *RecordError) Error() string {
	return e.Err.Error()
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// WithRecord attributes err to record unless it is already attributed.
// The innermost attribution wins.
func WithRecord(err error, record *crm.Record) error {
	if err == nil || record == nil {
		return err
	}
	if RecordOf(err) != nil {
		return err
	}
	if te, ok := AsTranslationError(err); ok {
		te.Record = record
		return err
	}
	return &RecordError{Record: record, Err: err}
}

// RecordOf returns the record err is attributed to, or nil
func RecordOf(err error) *crm.Record {
	if te, ok := AsTranslationError(err); ok && te.Record != nil {
		return te.Record
	}
	var re *RecordError
	if errors.As(err, &re) {
		return re.Record
	}
	return nil
}
