package api

import (
	"context"

	"groovy/internal/tracking"
)

// ItemReader abstracts the tracking store interactions needed for item
// queries.
type ItemReader interface {
	List(ctx context.Context, statuses ...tracking.ItemStatus) ([]*tracking.Item, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]*tracking.Item, error)
	GetByItemID(ctx context.Context, itemID string) (*tracking.Item, error)
	HistoryForRef(ctx context.Context, ref int64) ([]*tracking.HistoryEntry, error)
	Stats(ctx context.Context) (map[tracking.ItemStatus]int, error)
}

// ItemService exposes read-only live item operations returning API DTOs.
type ItemService struct {
	store ItemReader
}

// NewItemService constructs an ItemService around the provided reader.
func NewItemService(store ItemReader) *ItemService {
	if store == nil {
		return nil
	}
	return &ItemService{store: store}
}

// List returns live items filtered by status.
func (s *ItemService) List(ctx context.Context, statuses ...tracking.ItemStatus) ([]Item, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	items, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromItems(items), nil
}

// ListByWorkflow returns live items attached to one workflow.
func (s *ItemService) ListByWorkflow(ctx context.Context, workflowID string) ([]Item, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	items, err := s.store.ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	return FromItems(items), nil
}

// Describe fetches a single live item by business key. A missing item returns
// (nil, nil).
func (s *ItemService) Describe(ctx context.Context, itemID string) (*Item, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	item, err := s.store.GetByItemID(ctx, itemID)
	if err != nil || item == nil {
		return nil, err
	}
	dto := FromItem(item)
	return &dto, nil
}

// History returns a live item's ledger oldest first, or nil when the item
// does not exist.
func (s *ItemService) History(ctx context.Context, itemID string) (*HistoryResponse, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	item, err := s.store.GetByItemID(ctx, itemID)
	if err != nil || item == nil {
		return nil, err
	}
	entries, err := s.store.HistoryForRef(ctx, item.Ref)
	if err != nil {
		return nil, err
	}
	resp := &HistoryResponse{ItemID: item.ItemID, Entries: make([]HistoryEntry, 0, len(entries))}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, FromHistoryEntry(entry))
	}
	return resp, nil
}

// Stats returns live item counts keyed by status string.
func (s *ItemService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeItemStats(stats), nil
}
