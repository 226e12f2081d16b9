package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/entity"
	"github.com/wekeepgrowing/stripe-cpq-connector/pkg/messaging"
)

// MockTranslator is a mock implementation of Translator
type MockTranslator struct {
	mock.Mock
}

func (m *MockTranslator) Translate(ctx context.Context, id string) (*entity.TranslationResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.TranslationResult), args.Error(1)
}

func (m *MockTranslator) ExtractContractStructure(ctx context.Context, orderID string) (*entity.ContractStructure, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ContractStructure), args.Error(1)
}

type staticTranslators struct {
	translator Translator
}

func (s staticTranslators) Translator(*entity.Connection) Translator {
	return s.translator
}

// MockLocker is a mock implementation of RecordLocker
type MockLocker struct {
	mock.Mock
	released int
}

func (m *MockLocker) Acquire(ctx context.Context, connectionID, recordID string) (func(context.Context) error, error) {
	args := m.Called(ctx, connectionID, recordID)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return func(context.Context) error {
		m.released++
		return nil
	}, nil
}

// MockJobRepository is a mock implementation of TranslationJobRepository
type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) Create(ctx context.Context, job *entity.TranslationJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobRepository) GetByJobID(ctx context.Context, jobID string) (*entity.TranslationJob, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.TranslationJob), args.Error(1)
}

func (m *MockJobRepository) MarkProcessing(ctx context.Context, jobID string) error {
	return m.Called(ctx, jobID).Error(0)
}

func (m *MockJobRepository) MarkCompleted(ctx context.Context, jobID, stripeID string) error {
	return m.Called(ctx, jobID, stripeID).Error(0)
}

func (m *MockJobRepository) MarkFailed(ctx context.Context, jobID, lastError string) error {
	return m.Called(ctx, jobID, lastError).Error(0)
}

// MockRedisClient is a mock implementation of messaging.RedisClient
type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	return m.Called(ctx, channel, message).Error(0)
}

func (m *MockRedisClient) Subscribe(ctx context.Context, channel string) (<-chan messaging.Message, error) {
	args := m.Called(ctx, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan messaging.Message), args.Error(1)
}

func (m *MockRedisClient) Close() error {
	return m.Called().Error(0)
}

// MockProcessor is a mock implementation of JobProcessor
type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) Process(ctx context.Context, job entity.TranslateJob) (*entity.TranslationResult, error) {
	args := m.Called(ctx, job)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.TranslationResult), args.Error(1)
}
