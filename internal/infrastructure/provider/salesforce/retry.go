package salesforce

import (
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/provider"
	pkgErrors "github.com/wekeepgrowing/stripe-cpq-connector/pkg/errors"
	"go.uber.org/zap"
)

// BackoffAttemptsEnv overrides the configured retry cap
const BackoffAttemptsEnv = "SALESFORCE_BACKOFF_ATTEMPTS"

// RetryingClient retries transient Salesforce failures, sleeping attempt² seconds between tries
type RetryingClient struct {
	next     provider.CRMProvider
	attempts int
	logger   *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewRetryingClient wraps next with quadratic backoff
func NewRetryingClient(next provider.CRMProvider, attempts int, logger *zap.Logger) *RetryingClient {
	if env := os.Getenv(BackoffAttemptsEnv); env != "" {
		if n, err := strconv.Atoi(env); err == nil {
			attempts = n
		}
	}
	if attempts < 1 {
		attempts = 1
	}
	return &RetryingClient{
		next:     next,
		attempts: attempts,
		logger:   logger.Named("salesforce_retry"),
		sleep:    sleepContext,
	}
}

func (r *RetryingClient) Find(ctx context.Context, objectType crm.ObjectType, id string) (*crm.Record, error) {
	var record *crm.Record
	err := r.backoff(ctx, func() error {
		var err error
		record, err = r.next.Find(ctx, objectType, id)
		return err
	})
	return record, err
}

func (r *RetryingClient) Query(ctx context.Context, soql string) ([]*crm.Record, error) {
	var records []*crm.Record
	err := r.backoff(ctx, func() error {
		var err error
		records, err = r.next.Query(ctx, soql)
		return err
	})
	return records, err
}

func (r *RetryingClient) Update(ctx context.Context, objectType crm.ObjectType, id string, fields map[string]interface{}) error {
	return r.backoff(ctx, func() error {
		return r.next.Update(ctx, objectType, id, fields)
	})
}

func (r *RetryingClient) Upsert(ctx context.Context, objectType crm.ObjectType, externalIDField, externalID string, fields map[string]interface{}) error {
	return r.backoff(ctx, func() error {
		return r.next.Upsert(ctx, objectType, externalIDField, externalID, fields)
	})
}

func (r *RetryingClient) backoff(ctx context.Context, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !IsTransient(err) {
			return err
		}
		if attempt >= r.attempts {
			r.logger.Warn("Finished retrying Salesforce operation",
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		if sleepErr := r.sleep(ctx, time.Duration(attempt*attempt)*time.Second); sleepErr != nil {
			return err
		}
	}
}

// IsTransient reports whether a Salesforce failure is worth retrying
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode {
		case "UNABLE_TO_LOCK_ROW", "REQUEST_LIMIT_EXCEEDED":
			return true
		}
		switch apiErr.Code() {
		case pkgErrors.ErrUpstream, pkgErrors.ErrNotFound, pkgErrors.ErrUnauthenticated:
			return true
		}
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
