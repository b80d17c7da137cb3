package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDefinition tags every definition validation failure.
var ErrInvalidDefinition = errors.New("invalid workflow definition")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidDefinition, fmt.Sprintf(format, args...))
}

// Validate checks the structural invariants of a workflow definition: stage
// ids and orders must be unique, the transition graph may only reference
// stages inside the same workflow, and every action must carry a known type.
func (d *Definition) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return invalid("workflow id is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		return invalid("workflow %s: name is required", d.ID)
	}
	if len(d.Stages) == 0 {
		return invalid("workflow %s: at least one stage is required", d.ID)
	}

	stageIDs := make(map[string]struct{}, len(d.Stages))
	orders := make(map[int]string, len(d.Stages))
	for i := range d.Stages {
		stage := &d.Stages[i]
		if strings.TrimSpace(stage.ID) == "" {
			return invalid("workflow %s: stage %d has no id", d.ID, i)
		}
		if strings.TrimSpace(stage.Name) == "" {
			return invalid("workflow %s: stage %s has no name", d.ID, stage.ID)
		}
		if _, dup := stageIDs[stage.ID]; dup {
			return invalid("workflow %s: duplicate stage id %s", d.ID, stage.ID)
		}
		stageIDs[stage.ID] = struct{}{}
		if other, dup := orders[stage.Order]; dup {
			return invalid("workflow %s: stages %s and %s share order %d", d.ID, other, stage.ID, stage.Order)
		}
		orders[stage.Order] = stage.ID

		if err := validateActions(d.ID, stage); err != nil {
			return err
		}
	}

	for i := range d.Stages {
		stage := &d.Stages[i]
		for _, next := range stage.AllowedNext {
			if _, ok := stageIDs[next]; !ok {
				return invalid("workflow %s: stage %s allows unknown next stage %s", d.ID, stage.ID, next)
			}
		}
	}

	return nil
}

func validateActions(workflowID string, stage *Stage) error {
	actionIDs := make(map[string]struct{}, len(stage.Actions))
	for i := range stage.Actions {
		action := &stage.Actions[i]
		if strings.TrimSpace(action.ID) == "" {
			return invalid("workflow %s: stage %s action %d has no id", workflowID, stage.ID, i)
		}
		if _, dup := actionIDs[action.ID]; dup {
			return invalid("workflow %s: stage %s duplicate action id %s", workflowID, stage.ID, action.ID)
		}
		actionIDs[action.ID] = struct{}{}
		if _, ok := knownActionTypes[action.Type]; !ok {
			return invalid("workflow %s: stage %s action %s has unknown type %q", workflowID, stage.ID, action.ID, action.Type)
		}
	}
	return nil
}
