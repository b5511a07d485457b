package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/core/domain"
	portsrepo "github.com/SscSPs/koperasi_core/internal/core/ports/repositories"
	"github.com/SscSPs/koperasi_core/internal/core/statemachine"
	"github.com/SscSPs/koperasi_core/internal/dto"
	"github.com/SscSPs/koperasi_core/internal/platform/lock"
)

// CalculationObserver receives progress while a SHU calculation streams
// through the member list. Implementations must not block.
type CalculationObserver interface {
	ChunkProcessed(ctx context.Context, tenantID, planID string, stats dto.CalculationStats)
}

// PlanLockKey is the Locker key guarding a plan's calculation.
func PlanLockKey(planID string) string {
	return "shu:plan:" + planID
}

// calculationRun carries the state of one CalculateShu invocation.
type calculationRun struct {
	tenantID string
	plan     domain.ShuPlan
	period   domain.ShuPeriod
	runID    string
	stats    dto.CalculationStats
	buffer   []domain.ShuMemberCalculation
}

// CalculateShu computes every eligible member's share of the plan. Members are
// read in keyset chunks and results written in batches, so memory stays
// bounded by the chunk and batch sizes whatever the member count.
func (s *shuService) CalculateShu(ctx context.Context, tenantID string, planID string, actorID string) (*dto.CalculateShuResponse, error) {
	lease, err := s.locker.Acquire(ctx, PlanLockKey(planID), s.cfg.LockTTL, s.cfg.LockWait)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, apperrors.NewAppError(apperrors.ErrCalculationInProgress,
				fmt.Sprintf("plan %s is being calculated", planID), err)
		}
		return nil, fmt.Errorf("failed to acquire plan lock: %w", err)
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.LogError(ctx, err, "Failed to release SHU plan lock", slog.String("shu_plan_id", planID))
		}
	}()

	started := s.clock.Now()
	run, err := s.beginRun(ctx, tenantID, planID, actorID)
	if err != nil {
		s.LogError(ctx, err, "Failed to start SHU calculation", slog.String("shu_plan_id", planID))
		return nil, err
	}
	s.LogInfo(ctx, "SHU calculation started",
		slog.String("shu_plan_id", planID),
		slog.String("run_id", run.runID))

	calcCtx, cancel := context.WithTimeout(ctx, s.cfg.CalculationTimeout)
	defer cancel()

	resp, err := s.streamAndFinalize(calcCtx, run, actorID)
	if err != nil {
		s.abortRun(context.WithoutCancel(ctx), run, actorID)
		if errors.Is(calcCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = apperrors.NewAppError(apperrors.ErrCalculationTimeout,
				fmt.Sprintf("plan %s exceeded %s", planID, s.cfg.CalculationTimeout), err)
		} else {
			err = apperrors.NewAppError(apperrors.ErrShuCalculationFailed, fmt.Sprintf("plan %s", planID), err)
		}
		s.LogError(ctx, err, "SHU calculation failed",
			slog.String("shu_plan_id", planID),
			slog.String("run_id", run.runID),
			slog.Int("members_processed", run.stats.MembersProcessed))
		return nil, err
	}

	resp.Stats.DurationMillis = s.clock.Now().Sub(started).Milliseconds()
	s.LogInfo(ctx, "SHU calculation finished",
		slog.String("shu_plan_id", planID),
		slog.String("run_id", run.runID),
		slog.Int("members", resp.Stats.MembersProcessed),
		slog.Int("chunks", resp.Stats.Chunks),
		slog.Int64("duration_ms", resp.Stats.DurationMillis))
	return resp, nil
}

// beginRun moves the plan to calculating, drops earlier results and stamps a
// fresh run id, all in one transaction. A calculated plan is recalculated.
// The caller holds the plan lock, so a plan already in calculating belongs to
// a run that died before cleaning up; it is failed and restarted.
func (s *shuService) beginRun(ctx context.Context, tenantID, planID, actorID string) (*calculationRun, error) {
	run := &calculationRun{tenantID: tenantID, runID: s.newID()}
	err := s.store.WithinTransaction(ctx, tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
		plan, err := repos.ShuPlans().LockShuPlan(ctx, planID)
		if err != nil {
			return err
		}
		switch plan.Status {
		case domain.ShuCalculated:
			if err := statemachine.Transition(ctx, plan, statemachine.EventEdit); err != nil {
				return err
			}
		case domain.ShuCalculating:
			s.LogInfo(ctx, "Recovering SHU plan left calculating by a dead run",
				slog.String("shu_plan_id", planID),
				slog.String("stale_run_id", derefRunID(plan.CalculationRunID)))
			if err := statemachine.Transition(ctx, plan, statemachine.EventFail); err != nil {
				return err
			}
		}
		if err := statemachine.Transition(ctx, plan, statemachine.EventCalculate); err != nil {
			return err
		}

		period, err := repos.FiscalPeriods().FindFiscalPeriodByID(ctx, plan.FiscalPeriodID)
		if err != nil {
			return fmt.Errorf("failed to load fiscal period: %w", err)
		}
		if err := s.discardResults(ctx, repos, plan); err != nil {
			return err
		}

		plan.CalculationRunID = &run.runID
		plan.Touch(actorID, s.now())
		if err := repos.ShuPlans().UpdateShuPlan(ctx, *plan); err != nil {
			return fmt.Errorf("failed to update SHU plan: %w", err)
		}

		run.plan = *plan
		run.period = domain.NewShuPeriod(*period)
		return nil
	})
	if err != nil {
		return nil, err
	}
	run.stats.RunID = run.runID
	run.buffer = make([]domain.ShuMemberCalculation, 0, s.cfg.BatchSize)
	return run, nil
}

func (s *shuService) streamAndFinalize(ctx context.Context, run *calculationRun, actorID string) (*dto.CalculateShuResponse, error) {
	repos := s.store.Tenant(run.tenantID)

	totals, err := repos.ShuMetrics().TenantShuTotals(ctx, run.period)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate tenant totals: %w", err)
	}
	s.LogDebug(ctx, "SHU tenant totals",
		slog.String("shu_plan_id", run.plan.ShuPlanID),
		slog.Int64("members", totals.MemberCount),
		slog.String("savings", totals.TotalSavings.String()),
		slog.String("loan_payments", totals.TotalLoanPayments.String()))

	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		members, err := repos.Members().ListEligibleMembers(ctx, run.period.End, after, s.cfg.ChunkSize)
		if err != nil {
			return nil, fmt.Errorf("failed to load member chunk: %w", err)
		}
		if len(members) == 0 {
			break
		}
		if err := s.processChunk(ctx, repos, run, totals, members); err != nil {
			return nil, err
		}
		after = members[len(members)-1].MemberID
		if len(members) < s.cfg.ChunkSize {
			break
		}
	}
	if err := s.flush(ctx, repos, run); err != nil {
		return nil, err
	}

	return s.finalizeRun(ctx, run, actorID)
}

// processChunk computes the shares of one chunk of members, flushing the
// write buffer whenever it reaches the batch size.
func (s *shuService) processChunk(ctx context.Context, repos portsrepo.TenantRepositories, run *calculationRun,
	totals domain.ShuTenantTotals, members []domain.Member) error {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.MemberID
	}
	metrics, err := repos.ShuMetrics().MemberShuMetrics(ctx, run.period, ids)
	if err != nil {
		return fmt.Errorf("failed to load member metrics: %w", err)
	}

	now := s.now()
	for _, id := range ids {
		m, ok := metrics[id]
		if !ok {
			m = domain.MemberShuMetrics{MemberID: id}
		}
		calc := run.plan.ComputeMemberShare(totals, m)
		calc.ShuMemberCalculationID = s.newID()
		calc.RunID = run.runID
		calc.CreatedAt = now

		run.buffer = append(run.buffer, calc)
		run.stats.PeakBufferedRows = max(run.stats.PeakBufferedRows, len(run.buffer))
		if len(run.buffer) >= s.cfg.BatchSize {
			if err := s.flush(ctx, repos, run); err != nil {
				return err
			}
		}
	}

	run.stats.Chunks++
	run.stats.MembersProcessed += len(members)
	run.stats.PeakChunkSize = max(run.stats.PeakChunkSize, len(members))
	if s.observer != nil {
		s.observer.ChunkProcessed(ctx, run.tenantID, run.plan.ShuPlanID, run.stats)
	}
	return nil
}

func (s *shuService) flush(ctx context.Context, repos portsrepo.TenantRepositories, run *calculationRun) error {
	if len(run.buffer) == 0 {
		return nil
	}
	if err := repos.ShuCalculations().InsertShuCalculations(ctx, run.buffer); err != nil {
		return fmt.Errorf("failed to insert SHU calculations: %w", err)
	}
	run.stats.Flushes++
	run.buffer = run.buffer[:0]
	return nil
}

// finalizeRun summarizes the persisted rows and moves the plan to calculated.
func (s *shuService) finalizeRun(ctx context.Context, run *calculationRun, actorID string) (*dto.CalculateShuResponse, error) {
	var resp *dto.CalculateShuResponse
	err := s.store.WithinTransaction(ctx, run.tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
		plan, err := repos.ShuPlans().LockShuPlan(ctx, run.plan.ShuPlanID)
		if err != nil {
			return err
		}
		if plan.CalculationRunID == nil || *plan.CalculationRunID != run.runID {
			return fmt.Errorf("run %s was superseded", run.runID)
		}

		agg, err := repos.ShuCalculations().SummarizeShuCalculations(ctx, plan.ShuPlanID, run.runID)
		if err != nil {
			return fmt.Errorf("failed to summarize SHU calculations: %w", err)
		}
		if err := statemachine.Transition(ctx, plan, statemachine.EventComplete); err != nil {
			return err
		}

		now := s.now()
		plan.CalculatedAt = &now
		plan.Touch(actorID, now)
		if err := repos.ShuPlans().UpdateShuPlan(ctx, *plan); err != nil {
			return fmt.Errorf("failed to update SHU plan: %w", err)
		}

		resp = &dto.CalculateShuResponse{
			Plan:    *plan,
			Summary: domain.NewShuSummary(*plan, agg),
			Stats:   run.stats,
		}
		return nil
	})
	return resp, err
}

// abortRun removes the rows of a failed run and returns the plan to draft.
// It runs on a context detached from the caller's deadline.
func (s *shuService) abortRun(ctx context.Context, run *calculationRun, actorID string) {
	err := s.store.WithinTransaction(ctx, run.tenantID, func(ctx context.Context, repos portsrepo.TenantRepositories) error {
		deleted, err := repos.ShuCalculations().DeleteShuCalculationsByRun(ctx, run.plan.ShuPlanID, run.runID)
		if err != nil {
			return fmt.Errorf("failed to delete run rows: %w", err)
		}

		plan, err := repos.ShuPlans().LockShuPlan(ctx, run.plan.ShuPlanID)
		if err != nil {
			return err
		}
		if plan.Status != domain.ShuCalculating || plan.CalculationRunID == nil || *plan.CalculationRunID != run.runID {
			return nil
		}
		if err := statemachine.Transition(ctx, plan, statemachine.EventFail); err != nil {
			return err
		}
		plan.CalculationRunID = nil
		plan.Touch(actorID, s.now())
		if err := repos.ShuPlans().UpdateShuPlan(ctx, *plan); err != nil {
			return fmt.Errorf("failed to revert SHU plan: %w", err)
		}

		s.LogInfo(ctx, "SHU calculation rolled back",
			slog.String("shu_plan_id", plan.ShuPlanID),
			slog.String("run_id", run.runID),
			slog.Int64("rows_deleted", deleted))
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to clean up SHU calculation",
			slog.String("shu_plan_id", run.plan.ShuPlanID),
			slog.String("run_id", run.runID))
	}
}

func derefRunID(runID *string) string {
	if runID == nil {
		return ""
	}
	return *runID
}
