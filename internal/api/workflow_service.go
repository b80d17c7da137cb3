package api

import (
	"context"

	"groovy/internal/workflow"
)

// WorkflowStore abstracts workflow definition persistence.
type WorkflowStore interface {
	ListWorkflows(ctx context.Context) ([]*workflow.Definition, error)
	GetWorkflow(ctx context.Context, workflowID string) (*workflow.Definition, error)
	SaveWorkflow(ctx context.Context, def *workflow.Definition) error
}

// WorkflowService exposes workflow definition operations returning API DTOs.
type WorkflowService struct {
	store WorkflowStore
}

// NewWorkflowService constructs a WorkflowService around the store.
func NewWorkflowService(store WorkflowStore) *WorkflowService {
	if store == nil {
		return nil
	}
	return &WorkflowService{store: store}
}

// List returns every stored workflow summary.
func (s *WorkflowService) List(ctx context.Context) ([]Workflow, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	defs, err := s.store.ListWorkflows(ctx)
	if err != nil {
		return nil, err
	}
	return FromWorkflows(defs), nil
}

// Describe fetches one workflow summary. A missing workflow returns
// (nil, nil).
func (s *WorkflowService) Describe(ctx context.Context, workflowID string) (*Workflow, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	def, err := s.store.GetWorkflow(ctx, workflowID)
	if err != nil || def == nil {
		return nil, err
	}
	dto := FromWorkflow(def)
	return &dto, nil
}

// Define validates and stores a workflow definition. Existing definitions
// with the same id are replaced.
func (s *WorkflowService) Define(ctx context.Context, def *workflow.Definition) (*Workflow, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.SaveWorkflow(ctx, def); err != nil {
		return nil, err
	}
	dto := FromWorkflow(def)
	return &dto, nil
}
