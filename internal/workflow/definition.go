package workflow

import (
	"sort"
	"strings"
)

// ActionType enumerates the kinds of work a stage can require before exit.
type ActionType string

const (
	ActionScan        ActionType = "scan"
	ActionPhoto       ActionType = "photo"
	ActionNote        ActionType = "note"
	ActionApproval    ActionType = "approval"
	ActionMeasurement ActionType = "measurement"
	ActionInspection  ActionType = "inspection"
)

var knownActionTypes = map[ActionType]struct{}{
	ActionScan:        {},
	ActionPhoto:       {},
	ActionNote:        {},
	ActionApproval:    {},
	ActionMeasurement: {},
	ActionInspection:  {},
}

// ParseActionType converts a string into a known ActionType.
func ParseActionType(value string) (ActionType, bool) {
	normalized := ActionType(strings.ToLower(strings.TrimSpace(value)))
	_, ok := knownActionTypes[normalized]
	return normalized, ok
}

// Action describes one unit of work attached to a stage.
type Action struct {
	ID       string     `toml:"id" json:"id"`
	Type     ActionType `toml:"type" json:"type"`
	Label    string     `toml:"label" json:"label"`
	Required bool       `toml:"required" json:"required"`
}

// Stage is one step in a workflow's ordered sequence.
type Stage struct {
	ID          string   `toml:"id" json:"id"`
	Name        string   `toml:"name" json:"name"`
	Order       int      `toml:"order" json:"order"`
	Actions     []Action `toml:"actions" json:"actions"`
	AllowedNext []string `toml:"allowed_next" json:"allowedNext"`
}

// ScanAction returns the first scan-type action declared on the stage.
func (s *Stage) ScanAction() (*Action, bool) {
	for i := range s.Actions {
		if s.Actions[i].Type == ActionScan {
			return &s.Actions[i], true
		}
	}
	return nil, false
}

// AllowsNext reports whether the stage's transition graph permits moving to
// the given stage id.
func (s *Stage) AllowsNext(stageID string) bool {
	for _, id := range s.AllowedNext {
		if id == stageID {
			return true
		}
	}
	return false
}

// Definition is a complete workflow: an ordered stage list plus its
// transition graph.
type Definition struct {
	ID     string  `toml:"id" json:"id"`
	Name   string  `toml:"name" json:"name"`
	Stages []Stage `toml:"stages" json:"stages"`
}

// StageByID looks a stage up by identifier.
func (d *Definition) StageByID(stageID string) (*Stage, bool) {
	for i := range d.Stages {
		if d.Stages[i].ID == stageID {
			return &d.Stages[i], true
		}
	}
	return nil, false
}

// FirstStage returns the stage with the lowest order, where new items start.
func (d *Definition) FirstStage() (*Stage, bool) {
	if len(d.Stages) == 0 {
		return nil, false
	}
	first := &d.Stages[0]
	for i := range d.Stages {
		if d.Stages[i].Order < first.Order {
			first = &d.Stages[i]
		}
	}
	return first, true
}

// StageAfter returns the stage whose order immediately follows the given
// order. Absence means the given order belongs to a terminal stage.
func (d *Definition) StageAfter(order int) (*Stage, bool) {
	for i := range d.Stages {
		if d.Stages[i].Order == order+1 {
			return &d.Stages[i], true
		}
	}
	return nil, false
}

// IsTerminal reports whether a stage has no sequence successor.
func (d *Definition) IsTerminal(stage *Stage) bool {
	if stage == nil {
		return true
	}
	_, ok := d.StageAfter(stage.Order)
	return !ok
}

// OrderedStages returns the stages sorted by order.
func (d *Definition) OrderedStages() []Stage {
	sorted := make([]Stage, len(d.Stages))
	copy(sorted, d.Stages)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	return sorted
}
