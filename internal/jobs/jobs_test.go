package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/dto"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	info, _ := args.Get(0).(*asynq.TaskInfo)
	return info, args.Error(1)
}

type mockInspector struct {
	mock.Mock
}

func (m *mockInspector) GetTaskInfo(queue, id string) (*asynq.TaskInfo, error) {
	args := m.Called(queue, id)
	info, _ := args.Get(0).(*asynq.TaskInfo)
	return info, args.Error(1)
}

func (m *mockInspector) DeleteTask(queue, id string) error {
	return m.Called(queue, id).Error(0)
}

type mockCalculator struct {
	mock.Mock
}

func (m *mockCalculator) CalculateShu(ctx context.Context, tenantID string, planID string, actorID string) (*dto.CalculateShuResponse, error) {
	args := m.Called(ctx, tenantID, planID, actorID)
	resp, _ := args.Get(0).(*dto.CalculateShuResponse)
	return resp, args.Error(1)
}

type mockRedis struct {
	mock.Mock
}

func (m *mockRedis) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	args := m.Called(key, values)
	return redis.NewIntResult(int64(len(values)/2), args.Error(0))
}

func (m *mockRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	args := m.Called(key, expiration)
	return redis.NewBoolResult(true, args.Error(0))
}

func (m *mockRedis) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	args := m.Called(key)
	fields, _ := args.Get(0).(map[string]string)
	return redis.NewMapStringStringResult(fields, args.Error(1))
}

func TestNewShuCalculateTask(t *testing.T) {
	task, err := NewShuCalculateTask(ShuCalculatePayload{TenantID: "t1", PlanID: "p1", ActorID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, TypeShuCalculate, task.Type())

	var payload ShuCalculatePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, ShuCalculatePayload{TenantID: "t1", PlanID: "p1", ActorID: "u1"}, payload)
	assert.Equal(t, "shu:calculate:t1:p1", shuTaskID("t1", "p1"))
}

func TestParseShuCalculatePayload_Invalid(t *testing.T) {
	_, err := parseShuCalculatePayload(asynq.NewTask(TypeShuCalculate, []byte("{")))
	assert.Error(t, err)

	_, err = parseShuCalculatePayload(asynq.NewTask(TypeShuCalculate, []byte(`{"tenant_id":"t1"}`)))
	assert.Error(t, err)
}

func TestEnqueuer_EnqueueShuCalculation(t *testing.T) {
	client := new(mockEnqueuer)
	client.On("EnqueueContext", mock.Anything, mock.MatchedBy(func(task *asynq.Task) bool {
		return task.Type() == TypeShuCalculate
	})).Return(&asynq.TaskInfo{ID: "shu:calculate:t1:p1", Queue: "default"}, nil).Once()

	id, err := NewEnqueuer(client, new(mockInspector), discardLogger()).EnqueueShuCalculation(context.Background(), "t1", "p1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "shu:calculate:t1:p1", id)
	client.AssertExpectations(t)
}

func TestEnqueuer_ConflictMeansInProgress(t *testing.T) {
	client := new(mockEnqueuer)
	client.On("EnqueueContext", mock.Anything, mock.Anything).Return(nil, asynq.ErrTaskIDConflict).Once()
	client.On("EnqueueContext", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: refused")).Once()
	inspector := new(mockInspector)
	inspector.On("GetTaskInfo", "default", "shu:calculate:t1:p1").
		Return(&asynq.TaskInfo{ID: "shu:calculate:t1:p1", State: asynq.TaskStateActive}, nil).Once()
	enq := NewEnqueuer(client, inspector, discardLogger())

	_, err := enq.EnqueueShuCalculation(context.Background(), "t1", "p1", "u1")
	assert.ErrorIs(t, err, apperrors.ErrCalculationInProgress)
	inspector.AssertNotCalled(t, "DeleteTask", mock.Anything, mock.Anything)

	_, err = enq.EnqueueShuCalculation(context.Background(), "t1", "p1", "u1")
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	assert.True(t, apperrors.IsTransient(err))
	inspector.AssertExpectations(t)
}

func TestEnqueuer_ReplacesFinishedTask(t *testing.T) {
	for _, state := range []asynq.TaskState{asynq.TaskStateArchived, asynq.TaskStateCompleted} {
		t.Run(state.String(), func(t *testing.T) {
			client := new(mockEnqueuer)
			client.On("EnqueueContext", mock.Anything, mock.Anything).Return(nil, asynq.ErrTaskIDConflict).Once()
			client.On("EnqueueContext", mock.Anything, mock.Anything).
				Return(&asynq.TaskInfo{ID: "shu:calculate:t1:p1", Queue: "default"}, nil).Once()
			inspector := new(mockInspector)
			inspector.On("GetTaskInfo", "default", "shu:calculate:t1:p1").
				Return(&asynq.TaskInfo{ID: "shu:calculate:t1:p1", State: state, LastErr: "calculation timeout"}, nil).Once()
			inspector.On("DeleteTask", "default", "shu:calculate:t1:p1").Return(nil).Once()

			id, err := NewEnqueuer(client, inspector, discardLogger()).EnqueueShuCalculation(context.Background(), "t1", "p1", "u1")
			require.NoError(t, err)
			assert.Equal(t, "shu:calculate:t1:p1", id)
			client.AssertExpectations(t)
			inspector.AssertExpectations(t)
		})
	}
}

func TestEnqueuer_InspectorFailure(t *testing.T) {
	client := new(mockEnqueuer)
	client.On("EnqueueContext", mock.Anything, mock.Anything).Return(nil, asynq.ErrTaskIDConflict).Once()
	inspector := new(mockInspector)
	inspector.On("GetTaskInfo", "default", "shu:calculate:t1:p1").Return(nil, errors.New("redis: connection refused")).Once()

	_, err := NewEnqueuer(client, inspector, discardLogger()).EnqueueShuCalculation(context.Background(), "t1", "p1", "u1")
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	client.AssertNumberOfCalls(t, "EnqueueContext", 1)
}

func newTask(t *testing.T) *asynq.Task {
	t.Helper()
	task, err := NewShuCalculateTask(ShuCalculatePayload{TenantID: "t1", PlanID: "p1", ActorID: "u1"})
	require.NoError(t, err)
	return task
}

func TestHandler_Success(t *testing.T) {
	calc := new(mockCalculator)
	calc.On("CalculateShu", mock.Anything, "t1", "p1", "u1").
		Return(&dto.CalculateShuResponse{Stats: dto.CalculationStats{RunID: "run-1", MembersProcessed: 3}}, nil)

	err := NewShuCalculationHandler(calc, discardLogger()).ProcessTask(context.Background(), newTask(t))
	assert.NoError(t, err)
	calc.AssertExpectations(t)
}

func TestHandler_RetryPolicy(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		skipRetry bool
	}{
		{"lock timeout is retried", apperrors.NewAppError(apperrors.ErrLockTimeout, "plan row", nil), false},
		{"store unavailable is retried", apperrors.NewAppError(apperrors.ErrStoreUnavailable, "db down", nil), false},
		{"plan lock held is retried", apperrors.NewAppError(apperrors.ErrCalculationInProgress, "p1", nil), false},
		{"timeout skips retry", apperrors.NewAppError(apperrors.ErrCalculationTimeout, "p1", nil), true},
		{"bad transition skips retry", apperrors.NewAppError(apperrors.ErrInvalidStatusTransition, "approved", nil), true},
		{"missing plan skips retry", apperrors.NewNotFoundError("shu plan p1"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := new(mockCalculator)
			calc.On("CalculateShu", mock.Anything, "t1", "p1", "u1").Return(nil, tt.err)

			err := NewShuCalculationHandler(calc, discardLogger()).ProcessTask(context.Background(), newTask(t))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestHandler_MalformedPayloadSkipsRetry(t *testing.T) {
	calc := new(mockCalculator)
	err := NewShuCalculationHandler(calc, discardLogger()).ProcessTask(context.Background(), asynq.NewTask(TypeShuCalculate, []byte("not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	calc.AssertNotCalled(t, "CalculateShu", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterHandlers(t *testing.T) {
	calc := new(mockCalculator)
	calc.On("CalculateShu", mock.Anything, "t1", "p1", "u1").Return(&dto.CalculateShuResponse{}, nil)

	mux := asynq.NewServeMux()
	RegisterHandlers(mux, calc, discardLogger())
	assert.NoError(t, mux.ProcessTask(context.Background(), newTask(t)))
	calc.AssertExpectations(t)
}

func TestRedisProgress_RoundTrip(t *testing.T) {
	client := new(mockRedis)
	key := "shu:progress:t1:p1"
	client.On("HSet", key, mock.Anything).Return(nil).Once()
	client.On("Expire", key, time.Hour).Return(nil).Once()
	client.On("HGetAll", key).Return(map[string]string{
		"run_id":             "run-1",
		"chunks":             "3",
		"members_processed":  "250",
		"flushes":            "7",
		"peak_buffered_rows": "40",
		"peak_chunk_size":    "100",
		"duration_ms":        "12",
	}, nil).Once()

	progress := NewRedisProgress(client, time.Hour, discardLogger())
	progress.ChunkProcessed(context.Background(), "t1", "p1", dto.CalculationStats{RunID: "run-1", Chunks: 3})

	stats, err := progress.Progress(context.Background(), "t1", "p1")
	require.NoError(t, err)
	assert.Equal(t, dto.CalculationStats{
		RunID:            "run-1",
		Chunks:           3,
		MembersProcessed: 250,
		Flushes:          7,
		PeakBufferedRows: 40,
		PeakChunkSize:    100,
		DurationMillis:   12,
	}, *stats)
	client.AssertExpectations(t)
}

func TestRedisProgress_FailuresAreBestEffort(t *testing.T) {
	client := new(mockRedis)
	client.On("HSet", mock.Anything, mock.Anything).Return(errors.New("connection reset"))
	client.On("HGetAll", mock.Anything).Return(map[string]string{}, nil).Once()
	client.On("HGetAll", mock.Anything).Return(nil, errors.New("connection reset")).Once()

	progress := NewRedisProgress(client, 0, discardLogger())
	assert.NotPanics(t, func() {
		progress.ChunkProcessed(context.Background(), "t1", "p1", dto.CalculationStats{})
	})
	client.AssertNotCalled(t, "Expire", mock.Anything, mock.Anything)

	_, err := progress.Progress(context.Background(), "t1", "p1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = progress.Progress(context.Background(), "t1", "p1")
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
}
