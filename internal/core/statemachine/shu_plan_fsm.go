// Package statemachine holds the lifecycle machines of stateful records.
package statemachine

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/core/domain"
	"github.com/looplab/fsm"
)

// SHU plan events.
const (
	EventCalculate  = "calculate"
	EventComplete   = "complete"
	EventFail       = "fail"
	EventApprove    = "approve"
	EventDistribute = "distribute"
	EventCancel     = "cancel"
	EventReopen     = "reopen"
	EventEdit       = "edit"
)

// ShuPlanFSM wraps a plan with its state machine. Successful events write the
// new status back into the plan.
type ShuPlanFSM struct {
	plan *domain.ShuPlan
	fsm  *fsm.FSM
}

// NewShuPlanFSM creates a state machine starting at the plan's status.
func NewShuPlanFSM(plan *domain.ShuPlan) *ShuPlanFSM {
	draft := string(domain.ShuDraft)
	calculating := string(domain.ShuCalculating)
	calculated := string(domain.ShuCalculated)
	approved := string(domain.ShuApproved)

	return &ShuPlanFSM{
		plan: plan,
		fsm: fsm.NewFSM(
			string(plan.Status),
			fsm.Events{
				{Name: EventCalculate, Src: []string{draft}, Dst: calculating},
				{Name: EventComplete, Src: []string{calculating}, Dst: calculated},
				// a failed or timed out run goes back to draft
				{Name: EventFail, Src: []string{calculating}, Dst: draft},
				{Name: EventApprove, Src: []string{calculated}, Dst: approved},
				{Name: EventDistribute, Src: []string{approved}, Dst: string(domain.ShuDistributed)},
				{Name: EventCancel, Src: []string{draft, approved}, Dst: string(domain.ShuCancelled)},
				{Name: EventReopen, Src: []string{string(domain.ShuCancelled)}, Dst: draft},
				// editing a calculated plan discards its results
				{Name: EventEdit, Src: []string{draft, calculated}, Dst: draft},
			},
			fsm.Callbacks{},
		),
	}
}

// Fire applies event, failing with ErrInvalidStatusTransition when the plan's
// current status does not allow it.
func (s *ShuPlanFSM) Fire(ctx context.Context, event string) error {
	from := s.fsm.Current()
	if !s.fsm.Can(event) {
		return apperrors.NewAppError(apperrors.ErrInvalidStatusTransition,
			fmt.Sprintf("cannot %s a plan in status %s", event, from), nil)
	}
	if err := s.fsm.Event(ctx, event); err != nil {
		// draft -> draft on edit reports NoTransitionError, which is fine
		var noTransition fsm.NoTransitionError
		if !errors.As(err, &noTransition) {
			return fmt.Errorf("failed to %s plan: %w", event, err)
		}
	}
	s.plan.Status = domain.ShuPlanStatus(s.fsm.Current())
	return nil
}

// Current returns the current status.
func (s *ShuPlanFSM) Current() domain.ShuPlanStatus {
	return domain.ShuPlanStatus(s.fsm.Current())
}

// Can reports whether event is allowed from the current status.
func (s *ShuPlanFSM) Can(event string) bool {
	return s.fsm.Can(event)
}

// Transition is a convenience for one-off transitions on a plan value.
func Transition(ctx context.Context, plan *domain.ShuPlan, event string) error {
	return NewShuPlanFSM(plan).Fire(ctx, event)
}
