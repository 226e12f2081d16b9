package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/entity"
	"github.com/wekeepgrowing/stripe-cpq-connector/pkg/messaging"
	"go.uber.org/zap"
)

func jobMessage(t *testing.T, job entity.TranslateJob) messaging.Message {
	t.Helper()
	payload, err := json.Marshal(job)
	require.NoError(t, err)
	return messaging.Message{Channel: testChannel, Payload: payload, Time: time.Now()}
}

func TestWorker_ProcessesJobs(t *testing.T) {
	subscriber := new(MockRedisClient)
	processor := new(MockProcessor)

	messages := make(chan messaging.Message, 4)
	subscriber.On("Subscribe", mock.Anything, testChannel).Return((<-chan messaging.Message)(messages), nil)

	first := entity.TranslateJob{JobID: "123e4567-e89b-12d3-a456-426614174000", ConnectionID: testConnectionID, RecordID: testOrderID}
	second := entity.TranslateJob{JobID: "123e4567-e89b-12d3-a456-426614174001", ConnectionID: testConnectionID, RecordID: "01t5e00000PlatfAA"}
	processor.On("Process", mock.Anything, first).Return(&entity.TranslationResult{StripeID: "sub_sched_001"}, nil)
	processor.On("Process", mock.Anything, second).Return(nil, errors.New("translation failed"))

	messages <- jobMessage(t, first)
	messages <- messaging.Message{Channel: testChannel, Payload: []byte("{not json")}
	messages <- jobMessage(t, entity.TranslateJob{JobID: "123e4567-e89b-12d3-a456-426614174002"})
	messages <- jobMessage(t, second)
	close(messages)

	worker := NewWorker(subscriber, processor, WorkerConfig{Channel: testChannel, Concurrency: 2}, zap.NewNop())
	require.NoError(t, worker.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, worker.Stop(ctx))

	processor.AssertExpectations(t)
	processor.AssertNumberOfCalls(t, "Process", 2)
}

func TestWorker_RecoversFromPanics(t *testing.T) {
	subscriber := new(MockRedisClient)
	processor := new(MockProcessor)

	messages := make(chan messaging.Message, 1)
	subscriber.On("Subscribe", mock.Anything, testChannel).Return((<-chan messaging.Message)(messages), nil)

	job := entity.TranslateJob{JobID: "123e4567-e89b-12d3-a456-426614174000", ConnectionID: testConnectionID, RecordID: testOrderID}
	processor.On("Process", mock.Anything, job).Run(func(mock.Arguments) { panic("nil record") })

	messages <- jobMessage(t, job)
	close(messages)

	worker := NewWorker(subscriber, processor, WorkerConfig{Channel: testChannel}, zap.NewNop())
	require.NoError(t, worker.Start(context.Background()))
	require.NoError(t, worker.Stop(context.Background()))

	processor.AssertNumberOfCalls(t, "Process", 1)
}

func TestWorker_StopWaitsForReceivedJobs(t *testing.T) {
	subscriber := new(MockRedisClient)
	processor := new(MockProcessor)

	messages := make(chan messaging.Message, 2)
	subscriber.On("Subscribe", mock.Anything, testChannel).Return((<-chan messaging.Message)(messages), nil)

	running := entity.TranslateJob{JobID: "123e4567-e89b-12d3-a456-426614174000", ConnectionID: testConnectionID, RecordID: testOrderID}
	queued := entity.TranslateJob{JobID: "123e4567-e89b-12d3-a456-426614174001", ConnectionID: testConnectionID, RecordID: "8015e00000AmndAAA"}

	started := make(chan struct{})
	release := make(chan struct{})
	var jobCtx context.Context
	processor.On("Process", mock.Anything, running).Run(func(args mock.Arguments) {
		jobCtx = args.Get(0).(context.Context)
		close(started)
		<-release
	}).Return(&entity.TranslationResult{StripeID: "sub_sched_001"}, nil)
	processor.On("Process", mock.Anything, queued).Return(&entity.TranslationResult{StripeID: "sub_sched_002"}, nil)

	worker := NewWorker(subscriber, processor, WorkerConfig{Channel: testChannel, Concurrency: 1}, zap.NewNop())
	require.NoError(t, worker.Start(context.Background()))

	messages <- jobMessage(t, running)
	<-started
	messages <- jobMessage(t, queued)

	stopped := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		stopped <- worker.Stop(ctx)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a job was running")
	case <-time.After(50 * time.Millisecond):
	}

	// the subscription closes its channel once Stop cancels it
	close(messages)
	close(release)

	require.NoError(t, <-stopped)
	assert.NoError(t, jobCtx.Err())
	processor.AssertExpectations(t)
	processor.AssertNumberOfCalls(t, "Process", 2)
}

func TestWorker_SubscribeFailure(t *testing.T) {
	subscriber := new(MockRedisClient)
	subscriber.On("Subscribe", mock.Anything, testChannel).Return(nil, errors.New("connection refused"))

	worker := NewWorker(subscriber, new(MockProcessor), WorkerConfig{Channel: testChannel}, zap.NewNop())

	assert.Error(t, worker.Start(context.Background()))
	assert.NoError(t, worker.Stop(context.Background()))
}
