package api

import (
	"context"

	"groovy/internal/tracking"
)

// CompletedReader abstracts the archive-side queries.
type CompletedReader interface {
	ListCompleted(ctx context.Context, limit int) ([]*tracking.CompletedItem, error)
	CompletedByItemID(ctx context.Context, itemID string) (*tracking.CompletedItem, error)
	CompletedHistory(ctx context.Context, itemID string) ([]*tracking.CompletedHistoryEntry, error)
}

// CompletedService exposes read-only archive operations returning API DTOs.
type CompletedService struct {
	store CompletedReader
}

// NewCompletedService constructs a CompletedService around the reader.
func NewCompletedService(store CompletedReader) *CompletedService {
	if store == nil {
		return nil
	}
	return &CompletedService{store: store}
}

// List returns the newest archived items up to limit.
func (s *CompletedService) List(ctx context.Context, limit int) ([]CompletedItem, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	items, err := s.store.ListCompleted(ctx, limit)
	if err != nil {
		return nil, err
	}
	return FromCompletedItems(items), nil
}

// Describe fetches a single archived item. A missing item returns (nil, nil).
func (s *CompletedService) Describe(ctx context.Context, itemID string) (*CompletedItem, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	item, err := s.store.CompletedByItemID(ctx, itemID)
	if err != nil || item == nil {
		return nil, err
	}
	dto := FromCompletedItem(item)
	return &dto, nil
}

// History returns an archived item's full ledger, or nil when the item does
// not exist.
func (s *CompletedService) History(ctx context.Context, itemID string) (*HistoryResponse, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	item, err := s.store.CompletedByItemID(ctx, itemID)
	if err != nil || item == nil {
		return nil, err
	}
	entries, err := s.store.CompletedHistory(ctx, itemID)
	if err != nil {
		return nil, err
	}
	resp := &HistoryResponse{ItemID: item.ItemID, Entries: make([]HistoryEntry, 0, len(entries))}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, FromCompletedHistoryEntry(entry))
	}
	return resp, nil
}
