package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/hibiken/asynq"
)

// TaskEnqueuer is the part of *asynq.Client used to queue tasks.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskInspector is the part of *asynq.Inspector used to clear finished tasks
// that still hold a plan's task id.
type TaskInspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
	DeleteTask(queue, id string) error
}

var (
	_ TaskEnqueuer  = (*asynq.Client)(nil)
	_ TaskInspector = (*asynq.Inspector)(nil)
)

// Enqueuer queues SHU calculations for the worker.
type Enqueuer struct {
	client    TaskEnqueuer
	inspector TaskInspector
	logger    *slog.Logger
}

func NewEnqueuer(client TaskEnqueuer, inspector TaskInspector, logger *slog.Logger) *Enqueuer {
	return &Enqueuer{client: client, inspector: inspector, logger: logger}
}

// EnqueueShuCalculation queues the plan and returns the task id. A plan that
// is already queued or running fails with ErrCalculationInProgress. An
// archived or completed task of the same plan is deleted and replaced.
func (e *Enqueuer) EnqueueShuCalculation(ctx context.Context, tenantID, planID, actorID string) (string, error) {
	task, err := NewShuCalculateTask(ShuCalculatePayload{TenantID: tenantID, PlanID: planID, ActorID: actorID})
	if err != nil {
		return "", err
	}

	info, err := e.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		var cleared bool
		cleared, err = e.clearFinished(ctx, shuTaskID(tenantID, planID))
		if err == nil && cleared {
			info, err = e.client.EnqueueContext(ctx, task)
		} else if err == nil {
			err = asynq.ErrTaskIDConflict
		}
	}
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return "", apperrors.NewAppError(apperrors.ErrCalculationInProgress,
				fmt.Sprintf("calculation of plan %s is already queued", planID), err)
		}
		return "", apperrors.NewAppError(apperrors.ErrStoreUnavailable, "failed to queue SHU calculation", err)
	}

	e.logger.InfoContext(ctx, "SHU calculation queued",
		slog.String("tenant_id", tenantID),
		slog.String("plan_id", planID),
		slog.String("task_id", info.ID),
		slog.String("queue", info.Queue),
	)
	return info.ID, nil
}

// clearFinished deletes the task holding taskID when it can no longer run.
// It reports false when the task is still pending, scheduled, retrying or
// active.
func (e *Enqueuer) clearFinished(ctx context.Context, taskID string) (bool, error) {
	existing, err := e.inspector.GetTaskInfo(defaultQueue, taskID)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) {
			// finished and pruned between the two calls
			return true, nil
		}
		return false, err
	}
	if existing.State != asynq.TaskStateArchived && existing.State != asynq.TaskStateCompleted {
		return false, nil
	}

	if err := e.inspector.DeleteTask(defaultQueue, taskID); err != nil && !errors.Is(err, asynq.ErrTaskNotFound) {
		return false, err
	}
	e.logger.InfoContext(ctx, "Cleared finished SHU task",
		slog.String("task_id", taskID),
		slog.String("state", existing.State.String()),
		slog.String("last_error", existing.LastErr),
	)
	return true, nil
}
