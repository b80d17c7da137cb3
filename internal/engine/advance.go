package engine

import (
	"context"
	"fmt"
	"strings"

	"groovy/internal/logging"
	"groovy/internal/tracking"
)

// AdvanceRequest moves an item directly to a target stage without a scan
// gate. The move must be permitted by the current stage's transition graph.
type AdvanceRequest struct {
	ItemID    string
	ToStageID string
	UserID    string
	Notes     string
}

// AdvanceToStage performs a direct stage transition. Archival only happens
// through the scan-gated completion path; a direct advance onto a terminal
// stage leaves the item live on that stage.
func (e *Engine) AdvanceToStage(ctx context.Context, req AdvanceRequest) (*Result, error) {
	result, err := e.advance(ctx, req, false)
	if err != nil {
		e.metrics.ObserveTransitionFailure(FailureReason(err))
		return nil, err
	}
	return result, nil
}

// OverrideRequest forces an item onto a stage outside the transition graph.
// A reason is mandatory; it becomes the notes of the override ledger entry.
type OverrideRequest struct {
	ItemID    string
	ToStageID string
	UserID    string
	Reason    string
}

// OverrideStage moves an item to any stage of its workflow, bypassing the
// transition graph. The departing ledger entry is recorded as an override so
// the bypass is permanently visible in the item's history.
func (e *Engine) OverrideStage(ctx context.Context, req OverrideRequest) (*Result, error) {
	if strings.TrimSpace(req.Reason) == "" {
		e.metrics.ObserveTransitionFailure(FailureReason(ErrOverrideReason))
		return nil, ErrOverrideReason
	}
	result, err := e.advance(ctx, AdvanceRequest{
		ItemID:    req.ItemID,
		ToStageID: req.ToStageID,
		UserID:    req.UserID,
		Notes:     req.Reason,
	}, true)
	if err != nil {
		e.metrics.ObserveTransitionFailure(FailureReason(err))
		return nil, err
	}
	return result, nil
}

func (e *Engine) advance(ctx context.Context, req AdvanceRequest, override bool) (*Result, error) {
	item, err := e.resolveItem(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	def, err := e.resolveWorkflow(ctx, item.WorkflowID)
	if err != nil {
		return nil, err
	}
	current, ok := def.StageByID(item.CurrentStageID)
	if !ok {
		return nil, fmt.Errorf("%w: current stage %s of item %s", ErrStageNotFound, item.CurrentStageID, item.ItemID)
	}
	target, ok := def.StageByID(req.ToStageID)
	if !ok {
		return nil, fmt.Errorf("%w: %s in workflow %s", ErrStageNotFound, req.ToStageID, def.ID)
	}
	if !override && !current.AllowsNext(target.ID) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, current.ID, target.ID)
	}

	mode := "advance"
	departAction := tracking.HistoryCompleted
	if override {
		mode = "override"
		departAction = tracking.HistoryOverride
	}

	if err := e.store.ApplyTransition(ctx, tracking.TransitionUpdate{
		ItemRef:       item.Ref,
		FromStageID:   current.ID,
		FromStageName: current.Name,
		ToStageID:     target.ID,
		ToStageName:   target.Name,
		UserID:        req.UserID,
		Notes:         req.Notes,
		DepartAction:  departAction,
	}); err != nil {
		return nil, err
	}
	e.metrics.ObserveTransition(mode)
	attrs := []logging.Attr{
		logging.String(logging.FieldItemID, item.ItemID),
		logging.String(logging.FieldWorkflowID, def.ID),
		logging.String("from_stage", current.ID),
		logging.String("to_stage", target.ID),
		logging.String("mode", mode),
		logging.String(logging.FieldUserID, req.UserID),
	}
	if override {
		attrs = append(attrs, logging.String("reason", req.Notes))
	}
	e.logger.Info("stage transition", logging.Args(attrs...)...)

	updated, err := e.store.GetByRef(ctx, item.Ref)
	if err != nil {
		return nil, err
	}
	return &Result{Status: StatusAdvanced, Item: updated, NextStage: target}, nil
}
