// Package jobs runs SHU calculations as background tasks on asynq and
// publishes their progress to Redis.
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TypeShuCalculate is the asynq task type of a SHU calculation.
const TypeShuCalculate = "shu:calculate"

const (
	defaultQueue    = "default"
	defaultMaxRetry = 3
	// taskRetention keeps completed tasks inspectable; the enqueuer replaces
	// them when the plan is queued again.
	taskRetention = 10 * time.Minute
)

// ShuCalculatePayload identifies the plan to calculate.
type ShuCalculatePayload struct {
	TenantID string `json:"tenant_id"`
	PlanID   string `json:"plan_id"`
	ActorID  string `json:"actor_id"`
}

// shuTaskID dedupes tasks per plan; a second enqueue while one is pending,
// scheduled or running conflicts.
func shuTaskID(tenantID, planID string) string {
	return fmt.Sprintf("%s:%s:%s", TypeShuCalculate, tenantID, planID)
}

// NewShuCalculateTask builds the task for payload.
func NewShuCalculateTask(payload ShuCalculatePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", TypeShuCalculate, err)
	}
	return asynq.NewTask(TypeShuCalculate, data,
		asynq.Queue(defaultQueue),
		asynq.MaxRetry(defaultMaxRetry),
		asynq.TaskID(shuTaskID(payload.TenantID, payload.PlanID)),
		asynq.Retention(taskRetention),
	), nil
}

func parseShuCalculatePayload(task *asynq.Task) (ShuCalculatePayload, error) {
	var payload ShuCalculatePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to decode %s payload: %w", TypeShuCalculate, err)
	}
	if payload.TenantID == "" || payload.PlanID == "" || payload.ActorID == "" {
		return payload, fmt.Errorf("%s payload requires tenant_id, plan_id and actor_id", TypeShuCalculate)
	}
	return payload, nil
}
