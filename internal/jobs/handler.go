package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/dto"
	"github.com/SscSPs/koperasi_core/internal/platform/logging"
	"github.com/hibiken/asynq"
)

// ShuCalculator is the service operation the worker runs.
type ShuCalculator interface {
	CalculateShu(ctx context.Context, tenantID string, planID string, actorID string) (*dto.CalculateShuResponse, error)
}

// ShuCalculationHandler processes TypeShuCalculate tasks.
type ShuCalculationHandler struct {
	shu    ShuCalculator
	logger *slog.Logger
}

func NewShuCalculationHandler(shu ShuCalculator, logger *slog.Logger) *ShuCalculationHandler {
	return &ShuCalculationHandler{shu: shu, logger: logger}
}

// ProcessTask implements asynq.Handler. Only transient failures and a run
// still holding the plan lock are retried; rule violations skip retry.
func (h *ShuCalculationHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := parseShuCalculatePayload(task)
	if err != nil {
		h.logger.ErrorContext(ctx, "Dropping malformed task", slog.String("type", task.Type()), slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	logger := h.logger.With(
		slog.String("tenant_id", payload.TenantID),
		slog.String("plan_id", payload.PlanID),
	)
	ctx = logging.WithLogger(ctx, logger)

	logger.InfoContext(ctx, "Starting SHU calculation")
	resp, err := h.shu.CalculateShu(ctx, payload.TenantID, payload.PlanID, payload.ActorID)
	if err != nil {
		if retryable(err) {
			logger.WarnContext(ctx, "SHU calculation will be retried", slog.String("error", err.Error()))
			return err
		}
		logger.ErrorContext(ctx, "SHU calculation failed", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	logger.InfoContext(ctx, "SHU calculation finished",
		slog.String("run_id", resp.Stats.RunID),
		slog.Int("members", resp.Stats.MembersProcessed),
		slog.Int("chunks", resp.Stats.Chunks),
		slog.String("distributed", resp.Summary.DistributedAmount.String()),
		slog.Int64("duration_ms", resp.Stats.DurationMillis),
	)
	return nil
}

func retryable(err error) bool {
	return apperrors.IsTransient(err) || errors.Is(err, apperrors.ErrCalculationInProgress)
}

// RegisterHandlers mounts every task handler of this package on mux.
func RegisterHandlers(mux *asynq.ServeMux, shu ShuCalculator, logger *slog.Logger) {
	mux.Handle(TypeShuCalculate, NewShuCalculationHandler(shu, logger))
}
