package tracking_test

import (
	"context"
	"testing"

	"groovy/internal/testsupport"
	"groovy/internal/tracking"
)

func advanceToFinish(t *testing.T, store *tracking.Store, item *tracking.Item) {
	t.Helper()
	ctx := context.Background()
	steps := []tracking.TransitionUpdate{
		{ItemRef: item.Ref, FromStageID: "cut", FromStageName: "Cutting", ToStageID: "sew", ToStageName: "Sewing", UserID: "operator-1"},
		{ItemRef: item.Ref, FromStageID: "sew", FromStageName: "Sewing", ToStageID: "finish", ToStageName: "Finishing", UserID: "operator-1"},
	}
	for _, step := range steps {
		if err := store.ApplyTransition(ctx, step); err != nil {
			t.Fatalf("ApplyTransition %s->%s: %v", step.FromStageID, step.ToStageID, err)
		}
	}
}

func TestArchiveMigratesItemAndLedger(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	def := testsupport.SeedWorkflow(t, store, nil)
	item := testsupport.SeedItem(t, store, def, "GRV-0400")
	advanceToFinish(t, store, item)

	ctx := context.Background()
	live, err := store.GetByRef(ctx, item.Ref)
	if err != nil {
		t.Fatalf("GetByRef: %v", err)
	}
	liveEntries, err := store.HistoryForRef(ctx, item.Ref)
	if err != nil {
		t.Fatalf("HistoryForRef: %v", err)
	}

	completed, err := store.Archive(ctx, tracking.ArchiveRequest{
		Item:            live,
		FinalStageID:    "finish",
		FinalStageName:  "Finishing",
		CompletionNotes: "passed final inspection",
		CompletedBy:     "operator-1",
	})
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}

	if completed.FinalStageID != "finish" || completed.FinalStageName != "Finishing" {
		t.Fatalf("unexpected completed record: %+v", completed)
	}
	if completed.CompletionNotes != "passed final inspection" || completed.CompletedBy != "operator-1" {
		t.Fatalf("completion metadata not carried: %+v", completed)
	}
	if completed.CompletedAt.IsZero() || completed.StartedAt.IsZero() {
		t.Fatalf("timestamps missing: %+v", completed)
	}

	// Live side must be gone entirely.
	gone, err := store.GetByItemID(ctx, "GRV-0400")
	if err != nil {
		t.Fatalf("GetByItemID: %v", err)
	}
	if gone != nil {
		t.Fatalf("live item survived archival: %+v", gone)
	}
	orphaned, err := store.HistoryForRef(ctx, item.Ref)
	if err != nil {
		t.Fatalf("HistoryForRef after archive: %v", err)
	}
	if len(orphaned) != 0 {
		t.Fatalf("live history survived archival: %d entries", len(orphaned))
	}

	// Completed ledger: every original entry plus one terminal completed entry.
	archived, err := store.CompletedHistory(ctx, "GRV-0400")
	if err != nil {
		t.Fatalf("CompletedHistory: %v", err)
	}
	if len(archived) != len(liveEntries)+1 {
		t.Fatalf("expected %d archived entries, got %d", len(liveEntries)+1, len(archived))
	}
	for i, entry := range liveEntries {
		if archived[i].StageID != entry.StageID || archived[i].Action != entry.Action {
			t.Fatalf("archived entry %d diverges: %+v vs %+v", i, archived[i], entry)
		}
		if archived[i].ItemID != "GRV-0400" {
			t.Fatalf("archived entry %d not re-keyed: %+v", i, archived[i])
		}
	}
	terminal := archived[len(archived)-1]
	if terminal.Action != tracking.HistoryCompleted || terminal.StageID != "finish" {
		t.Fatalf("unexpected terminal entry: %+v", terminal)
	}
}

func TestArchiveFreesBusinessKeyOnlyInCompletedStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	def := testsupport.SeedWorkflow(t, store, nil)
	item := testsupport.SeedItem(t, store, def, "GRV-0401")
	advanceToFinish(t, store, item)

	ctx := context.Background()
	live, _ := store.GetByRef(ctx, item.Ref)
	if _, err := store.Archive(ctx, tracking.ArchiveRequest{Item: live, FinalStageID: "finish", FinalStageName: "Finishing"}); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	// The business key is still taken: re-registering must fail.
	if _, err := store.NewItem(ctx, tracking.NewItemParams{
		ItemID:     "GRV-0401",
		WorkflowID: def.ID,
		StageID:    "cut",
		StageName:  "Cutting",
	}); err == nil {
		t.Fatal("expected duplicate rejection against completed store")
	}

	listed, err := store.ListCompleted(ctx, 10)
	if err != nil {
		t.Fatalf("ListCompleted: %v", err)
	}
	if len(listed) != 1 || listed[0].ItemID != "GRV-0401" {
		t.Fatalf("unexpected completed list: %+v", listed)
	}
}
