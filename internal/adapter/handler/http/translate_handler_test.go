package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/errors"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/infrastructure/lock"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/middleware/auth"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/usecase"
	"go.uber.org/zap"
)

const (
	testSecret  = "test-secret"
	testOrderID = "8015e00000InitAAA"
)

// MockTranslationUsecase is a mock implementation of TranslationUsecase
type MockTranslationUsecase struct {
	mock.Mock
}

func (m *MockTranslationUsecase) Enqueue(ctx context.Context, connectionID, recordID string) (*entity.TranslationJob, error) {
	args := m.Called(ctx, connectionID, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.TranslationJob), args.Error(1)
}

func (m *MockTranslationUsecase) TranslateNow(ctx context.Context, connectionID, recordID string) (*entity.TranslationResult, error) {
	args := m.Called(ctx, connectionID, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.TranslationResult), args.Error(1)
}

func (m *MockTranslationUsecase) ContractStructure(ctx context.Context, connectionID, orderID string) (*entity.ContractSummary, error) {
	args := m.Called(ctx, connectionID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ContractSummary), args.Error(1)
}

func newTestEcho(uc TranslationUsecase) *echo.Echo {
	e := echo.New()
	api := e.Group("/api/v1", auth.JWTMiddleware(auth.JWTConfig{
		Secret: testSecret,
		Logger: zap.NewNop(),
	}))
	NewTranslateHandler(uc, zap.NewNop()).RegisterRoutes(api)
	return e
}

func doRequest(t *testing.T, e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "salesforce-flow",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(auth.ConnectionHeader, "acme")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestTranslateHandler_Enqueue(t *testing.T) {
	uc := new(MockTranslationUsecase)
	uc.On("Enqueue", mock.Anything, "acme", testOrderID).Return(&entity.TranslationJob{
		JobID:        "123e4567-e89b-12d3-a456-426614174000",
		ConnectionID: "acme",
		RecordID:     testOrderID,
		Status:       "pending",
	}, nil)

	rec := doRequest(t, newTestEcho(uc), http.MethodPost, "/api/v1/translate/"+testOrderID)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "123e4567-e89b-12d3-a456-426614174000", body["job_id"])
	assert.Equal(t, "pending", body["status"])
	uc.AssertNotCalled(t, "TranslateNow", mock.Anything, mock.Anything, mock.Anything)
}

func TestTranslateHandler_Sync(t *testing.T) {
	uc := new(MockTranslationUsecase)
	uc.On("TranslateNow", mock.Anything, "acme", testOrderID).Return(&entity.TranslationResult{
		RecordID:     testOrderID,
		RecordType:   string(crm.ObjectOrder),
		StripeObject: "subscription_schedule",
		StripeID:     "sub_sched_001",
	}, nil)

	rec := doRequest(t, newTestEcho(uc), http.MethodPost, "/api/v1/translate/"+testOrderID+"?sync=true")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sub_sched_001", decodeBody(t, rec)["stripe_id"])
	uc.AssertExpectations(t)
}

func TestTranslateHandler_InvalidRecordID(t *testing.T) {
	uc := new(MockTranslationUsecase)

	for _, target := range []string{
		"/api/v1/translate/801short",
		"/api/v1/translate/801-5e00000-InitA",
		"/api/v1/translate/" + testOrderID + "?sync=maybe",
	} {
		rec := doRequest(t, newTestEcho(uc), http.MethodPost, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, "INVALID_ARGUMENT", decodeBody(t, rec)["code"], target)
	}
	uc.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
}

func TestTranslateHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{
			name:    "user error",
			err:     domainErrors.NewUserError(nil, "Quantity specified as a decimal value. Only integers are supported."),
			status:  http.StatusUnprocessableEntity,
			code:    "UNPROCESSABLE",
			message: "Quantity specified as a decimal value. Only integers are supported.",
		},
		{
			name:    "locked",
			err:     lock.ErrLocked,
			status:  http.StatusConflict,
			code:    "CONFLICT",
			message: "record is being translated",
		},
		{
			name:    "unsupported type",
			err:     domainErrors.NewUnsupportedTypeError(crm.ObjectContact),
			status:  http.StatusNotImplemented,
			code:    "NOT_IMPLEMENTED",
			message: "unsupported translation type Contact",
		},
		{
			name:    "billing api",
			err:     domainErrors.NewBillingAPIError("No such price", "req_123", nil),
			status:  http.StatusBadGateway,
			code:    "UPSTREAM",
			message: "No such price",
		},
		{
			name:    "internal",
			err:     errors.New("pq: connection reset"),
			status:  http.StatusInternalServerError,
			code:    "INTERNAL",
			message: "Internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := new(MockTranslationUsecase)
			uc.On("TranslateNow", mock.Anything, "acme", testOrderID).Return(nil, usecase.ClassifyError(tt.err))

			rec := doRequest(t, newTestEcho(uc), http.MethodPost, "/api/v1/translate/"+testOrderID+"?sync=true")

			assert.Equal(t, tt.status, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tt.code, body["code"])
			assert.Equal(t, tt.message, body["error"])
		})
	}
}

func TestTranslateHandler_GetContract(t *testing.T) {
	uc := new(MockTranslationUsecase)
	uc.On("ContractStructure", mock.Anything, "acme", testOrderID).Return(&entity.ContractSummary{
		InitialOrderID: testOrderID,
		Amendments: []entity.AmendmentReference{
			{OrderID: "8015e00000AmndAAA", StartDate: "2024-07-01"},
		},
	}, nil)

	rec := doRequest(t, newTestEcho(uc), http.MethodGet, "/api/v1/contracts/"+testOrderID)

	assert.Equal(t, http.StatusOK, rec.Code)
	var summary entity.ContractSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, testOrderID, summary.InitialOrderID)
	require.Len(t, summary.Amendments, 1)
	assert.Equal(t, "2024-07-01", summary.Amendments[0].StartDate)
}

func TestTranslateHandler_RequiresToken(t *testing.T) {
	uc := new(MockTranslationUsecase)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/translate/"+testOrderID, nil)
	rec := httptest.NewRecorder()

	newTestEcho(uc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	uc.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
}
