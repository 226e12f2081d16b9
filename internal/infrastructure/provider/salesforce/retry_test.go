package salesforce

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	"go.uber.org/zap"
)

type mockCRM struct {
	mock.Mock
}

func (m *mockCRM) Find(ctx context.Context, objectType crm.ObjectType, id string) (*crm.Record, error) {
	args := m.Called(ctx, objectType, id)
	record, _ := args.Get(0).(*crm.Record)
	return record, args.Error(1)
}

func (m *mockCRM) Query(ctx context.Context, soql string) ([]*crm.Record, error) {
	args := m.Called(ctx, soql)
	records, _ := args.Get(0).([]*crm.Record)
	return records, args.Error(1)
}

func (m *mockCRM) Update(ctx context.Context, objectType crm.ObjectType, id string, fields map[string]interface{}) error {
	return m.Called(ctx, objectType, id, fields).Error(0)
}

func (m *mockCRM) Upsert(ctx context.Context, objectType crm.ObjectType, externalIDField, externalID string, fields map[string]interface{}) error {
	return m.Called(ctx, objectType, externalIDField, externalID, fields).Error(0)
}

func newTestRetrying(next *mockCRM, attempts int) (*RetryingClient, *[]time.Duration) {
	slept := []time.Duration{}
	r := NewRetryingClient(next, attempts, zap.NewNop())
	r.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return r, &slept
}

func TestRetryingClient_RetriesRowLockQuadratically(t *testing.T) {
	t.Setenv(BackoffAttemptsEnv, "")
	next := &mockCRM{}
	lock := &APIError{StatusCode: http.StatusBadRequest, ErrorCode: "UNABLE_TO_LOCK_ROW"}
	next.On("Update", mock.Anything, crm.ObjectOrder, "801", mock.Anything).Return(lock).Twice()
	next.On("Update", mock.Anything, crm.ObjectOrder, "801", mock.Anything).Return(nil).Once()

	r, slept := newTestRetrying(next, 5)
	err := r.Update(context.Background(), crm.ObjectOrder, "801", map[string]interface{}{"a": 1})

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second, 4 * time.Second}, *slept)
	next.AssertExpectations(t)
}

func TestRetryingClient_StopsAtAttemptCap(t *testing.T) {
	t.Setenv(BackoffAttemptsEnv, "")
	next := &mockCRM{}
	serverErr := &APIError{StatusCode: http.StatusServiceUnavailable}
	next.On("Find", mock.Anything, crm.ObjectAccount, "001").Return(nil, serverErr).Times(3)

	r, slept := newTestRetrying(next, 3)
	_, err := r.Find(context.Background(), crm.ObjectAccount, "001")

	assert.ErrorIs(t, err, serverErr)
	assert.Len(t, *slept, 2)
	next.AssertExpectations(t)
}

func TestRetryingClient_DoesNotRetryPermanentErrors(t *testing.T) {
	t.Setenv(BackoffAttemptsEnv, "")
	next := &mockCRM{}
	invalid := &APIError{StatusCode: http.StatusBadRequest, ErrorCode: "INVALID_FIELD"}
	next.On("Query", mock.Anything, "SELECT Foo FROM Order").Return(nil, invalid).Once()

	r, slept := newTestRetrying(next, 5)
	_, err := r.Query(context.Background(), "SELECT Foo FROM Order")

	assert.ErrorIs(t, err, invalid)
	assert.Empty(t, *slept)
	next.AssertExpectations(t)
}

func TestRetryingClient_EnvOverridesAttempts(t *testing.T) {
	t.Setenv(BackoffAttemptsEnv, "1")
	next := &mockCRM{}
	r, _ := newTestRetrying(next, 5)
	assert.Equal(t, 1, r.attempts)
}
