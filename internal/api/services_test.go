package api_test

import (
	"context"
	"testing"

	"groovy/internal/api"
	"groovy/internal/testsupport"
	"groovy/internal/tracking"
	"groovy/internal/workflow"
)

func TestItemServiceDescribeAndHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	def := testsupport.SeedWorkflow(t, store, nil)
	testsupport.SeedItem(t, store, def, "JKT-1")
	ctx := context.Background()

	svc := api.NewItemService(store)

	dto, err := svc.Describe(ctx, "JKT-1")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if dto == nil || dto.ItemID != "JKT-1" || dto.CurrentStageID != "cut" {
		t.Fatalf("item dto = %+v", dto)
	}
	if dto.Status != string(tracking.StatusActive) {
		t.Errorf("status = %q, want active", dto.Status)
	}
	if dto.StartedAt == "" || dto.UpdatedAt == "" {
		t.Errorf("timestamps missing: %+v", dto)
	}

	missing, err := svc.Describe(ctx, "ghost")
	if err != nil {
		t.Fatalf("Describe missing: %v", err)
	}
	if missing != nil {
		t.Errorf("missing item dto = %+v, want nil", missing)
	}

	history, err := svc.History(ctx, "JKT-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if history == nil || len(history.Entries) != 1 {
		t.Fatalf("history = %+v, want single entry", history)
	}
	if history.Entries[0].Action != string(tracking.HistoryStarted) {
		t.Errorf("entry action = %q, want started", history.Entries[0].Action)
	}
}

func TestItemServiceListAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	def := testsupport.SeedWorkflow(t, store, nil)
	testsupport.SeedItem(t, store, def, "JKT-1")
	item := testsupport.SeedItem(t, store, def, "JKT-2")
	ctx := context.Background()

	if err := store.SetStatus(ctx, item.Ref, tracking.StatusPaused); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	svc := api.NewItemService(store)
	active, err := svc.List(ctx, tracking.StatusActive)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(active) != 1 || active[0].ItemID != "JKT-1" {
		t.Fatalf("active items = %+v", active)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["active"] != 1 || stats["paused"] != 1 {
		t.Errorf("stats = %v", stats)
	}
}

func TestWorkflowServiceDefineRejectsInvalid(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewWorkflowService(store)
	ctx := context.Background()

	bad := &workflow.Definition{
		ID:   "dup",
		Name: "Duplicate stages",
		Stages: []workflow.Stage{
			{ID: "a", Name: "A", Order: 1},
			{ID: "a", Name: "A again", Order: 2},
		},
	}
	if _, err := svc.Define(ctx, bad); err == nil {
		t.Fatal("Define accepted a definition with duplicate stage ids")
	}

	good := testsupport.GarmentWorkflow()
	dto, err := svc.Define(ctx, good)
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	if dto.ID != good.ID || len(dto.Stages) != 3 {
		t.Fatalf("workflow dto = %+v", dto)
	}
	if !dto.Stages[0].ScanRequired {
		t.Error("cut stage should require a scan")
	}
	if dto.Stages[2].ScanRequired {
		t.Error("finish stage should not require a scan")
	}

	listed, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("workflow count = %d, want 1", len(listed))
	}
}
