package engine

import "errors"

// Transition error taxonomy. Every failure is propagated to the caller; the
// only local recovery is that scan-gate failures are recorded as failed scan
// audit rows before the error is raised.
var (
	ErrItemNotFound         = errors.New("item not found")
	ErrWorkflowNotFound     = errors.New("workflow not found")
	ErrStageNotFound        = errors.New("stage not found")
	ErrWrongStage           = errors.New("scan does not match the item's current stage")
	ErrNoScanAction         = errors.New("current stage declares no scan action")
	ErrTransitionNotAllowed = errors.New("transition not allowed by workflow graph")
	ErrOverrideReason       = errors.New("administrative override requires a reason")
)

// FailureReason maps a transition error to a short label used in metrics.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrItemNotFound):
		return "item_not_found"
	case errors.Is(err, ErrWorkflowNotFound):
		return "workflow_not_found"
	case errors.Is(err, ErrStageNotFound):
		return "stage_not_found"
	case errors.Is(err, ErrWrongStage):
		return "wrong_stage"
	case errors.Is(err, ErrNoScanAction):
		return "no_scan_action"
	case errors.Is(err, ErrTransitionNotAllowed):
		return "transition_not_allowed"
	case errors.Is(err, ErrOverrideReason):
		return "override_reason_missing"
	default:
		return "internal"
	}
}
