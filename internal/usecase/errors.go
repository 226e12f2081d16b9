package usecase

import (
	"errors"

	domainErrors "github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/errors"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/infrastructure/connection"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/infrastructure/lock"
	pkgErrors "github.com/wekeepgrowing/stripe-cpq-connector/pkg/errors"
)

var (
	ErrMissingRecordID = errors.New("record id is required")
	ErrNotAnOrder      = errors.New("contract structure is only available for orders")
)

// ClassifyError converts a translation failure into a coded application error
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *pkgErrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, lock.ErrLocked):
		return pkgErrors.NewAppError(pkgErrors.ErrConflict, "record is being translated", err)
	case errors.Is(err, connection.ErrUnknownConnection):
		return pkgErrors.NewAppError(pkgErrors.ErrNotFound, "connection not found", err)
	case errors.Is(err, ErrMissingRecordID), errors.Is(err, ErrNotAnOrder):
		return pkgErrors.NewAppError(pkgErrors.ErrInvalidArgument, err.Error(), nil)
	}

	te, ok := domainErrors.AsTranslationError(err)
	if !ok {
		return pkgErrors.NewAppError(pkgErrors.ErrInternal, "translation failed", err)
	}

	switch te.Kind {
	case domainErrors.KindUnsupportedType:
		return pkgErrors.NewAppError(pkgErrors.ErrNotImplemented, te.Message, err)
	case domainErrors.KindBillingAPI, domainErrors.KindCRMAPI:
		return pkgErrors.NewAppError(pkgErrors.ErrUpstream, te.Message, err)
	case domainErrors.KindMissingRequiredFields, domainErrors.KindUserError,
		domainErrors.KindRawUserError, domainErrors.KindUnhandledEdgeCase:
		return pkgErrors.NewAppError(pkgErrors.ErrUnprocessable, te.Message, err)
	default:
		return pkgErrors.NewAppError(pkgErrors.ErrInternal, "translation failed", err)
	}
}
