package engine

import (
	"context"
	"fmt"

	"groovy/internal/logging"
	"groovy/internal/scanner"
	"groovy/internal/tracking"
	"groovy/internal/workflow"
)

// CompleteScanRequest gates a stage completion behind a physical scan.
type CompleteScanRequest struct {
	ItemID     string
	StageID    string
	QRData     string
	UserID     string
	DeviceInfo tracking.Metadata
}

// CompleteStageWithScan validates a scan against the item's current stage and
// completes the stage on success. Completing the last stage archives the item
// instead of advancing it.
//
// Every rejection writes a failed scan row before the error is returned, so
// the audit trail records attempts the workflow never accepted. Rate-limit
// rejections are the one exception: nothing is written and the transition
// never starts.
func (e *Engine) CompleteStageWithScan(ctx context.Context, req CompleteScanRequest) (*Result, error) {
	item, err := e.resolveItem(ctx, req.ItemID)
	if err != nil {
		return nil, e.rejectScan(ctx, req, nil, err)
	}
	def, err := e.resolveWorkflow(ctx, item.WorkflowID)
	if err != nil {
		return nil, e.rejectScan(ctx, req, item, err)
	}
	current, ok := def.StageByID(item.CurrentStageID)
	if !ok {
		err := fmt.Errorf("%w: current stage %s of item %s", ErrStageNotFound, item.CurrentStageID, item.ItemID)
		return nil, e.rejectScan(ctx, req, item, err)
	}

	if req.StageID != current.ID {
		err := fmt.Errorf("%w: scanned for %s, item %s is at %s", ErrWrongStage, req.StageID, item.ItemID, current.ID)
		return nil, e.rejectScanMeta(ctx, req, item, err, tracking.Metadata{
			"expectedStage": current.ID,
			"actualStage":   req.StageID,
		})
	}

	action, ok := current.ScanAction()
	if !ok {
		err := fmt.Errorf("%w: stage %s", ErrNoScanAction, current.ID)
		return nil, e.rejectScan(ctx, req, item, err)
	}

	scanID, err := e.scans.LogScan(ctx, scanner.Request{
		QRData:     req.QRData,
		Type:       tracking.ScanStageCompletion,
		Success:    true,
		UserID:     req.UserID,
		ItemID:     item.ItemID,
		StageID:    current.ID,
		WorkflowID: def.ID,
		DeviceInfo: req.DeviceInfo,
		Metadata:   tracking.Metadata{"actionId": action.ID},
	})
	if err != nil {
		// Rate limit or storage failure; no transition state has changed.
		e.metrics.ObserveTransitionFailure(FailureReason(err))
		return nil, err
	}

	next, ok := def.StageAfter(current.Order)
	if !ok {
		return e.archive(ctx, item, current, req.UserID, scanID)
	}

	if err := e.store.ApplyTransition(ctx, tracking.TransitionUpdate{
		ItemRef:       item.Ref,
		FromStageID:   current.ID,
		FromStageName: current.Name,
		ToStageID:     next.ID,
		ToStageName:   next.Name,
		UserID:        req.UserID,
		DepartAction:  tracking.HistoryCompleted,
	}); err != nil {
		e.metrics.ObserveTransitionFailure(FailureReason(err))
		return nil, err
	}
	e.metrics.ObserveTransition("scan_complete")
	e.logger.Info("stage completed by scan",
		logging.FieldItemID, item.ItemID,
		logging.FieldWorkflowID, def.ID,
		"from_stage", current.ID,
		"to_stage", next.ID,
		logging.FieldUserID, req.UserID)

	updated, err := e.store.GetByRef(ctx, item.Ref)
	if err != nil {
		return nil, err
	}
	return &Result{Status: StatusAdvanced, Item: updated, NextStage: next}, nil
}

func (e *Engine) archive(ctx context.Context, item *tracking.Item, final *workflow.Stage, userID string, scanID int64) (*Result, error) {
	completed, err := e.store.Archive(ctx, tracking.ArchiveRequest{
		Item:            item,
		FinalStageID:    final.ID,
		FinalStageName:  final.Name,
		CompletionNotes: fmt.Sprintf("completed by scan %d", scanID),
		CompletedBy:     userID,
	})
	if err != nil {
		e.metrics.ObserveTransitionFailure(FailureReason(err))
		return nil, err
	}
	e.metrics.ObserveArchival()
	e.logger.Info("item archived",
		logging.FieldItemID, item.ItemID,
		logging.FieldWorkflowID, item.WorkflowID,
		logging.FieldStage, final.ID,
		logging.FieldUserID, userID)
	return &Result{Status: StatusCompleted, Completed: completed}, nil
}

// rejectScan records a failed scan attempt for a transition error, then
// returns the original error. The scan write is best-effort; its failure is
// joined to the original so neither is lost.
func (e *Engine) rejectScan(ctx context.Context, req CompleteScanRequest, item *tracking.Item, cause error) error {
	return e.rejectScanMeta(ctx, req, item, cause, nil)
}

func (e *Engine) rejectScanMeta(ctx context.Context, req CompleteScanRequest, item *tracking.Item, cause error, meta tracking.Metadata) error {
	e.metrics.ObserveTransitionFailure(FailureReason(cause))

	scanReq := scanner.Request{
		QRData:       req.QRData,
		Type:         tracking.ScanStageCompletion,
		Success:      false,
		ErrorMessage: cause.Error(),
		UserID:       req.UserID,
		StageID:      req.StageID,
		DeviceInfo:   req.DeviceInfo,
		Metadata:     meta,
	}
	if item != nil {
		scanReq.ItemID = item.ItemID
		scanReq.WorkflowID = item.WorkflowID
	}
	if _, err := e.scans.LogScan(ctx, scanReq); err != nil {
		return fmt.Errorf("%w (recording rejection: %v)", cause, err)
	}
	return cause
}
