package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"groovy/internal/engine"
	"groovy/internal/logging"
	"groovy/internal/scanner"
	"groovy/internal/testsupport"
	"groovy/internal/tracking"
	"groovy/internal/workflow"
)

func newTestEngine(t *testing.T, opts ...testsupport.ConfigOption) (*engine.Engine, *tracking.Store) {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	scans := scanner.New(cfg, store, logging.NewNop(), nil)
	return engine.New(store, scans, logging.NewNop(), nil), store
}

func TestCreateItemGeneratesIdentifier(t *testing.T) {
	eng, store := newTestEngine(t)
	def := testsupport.SeedWorkflow(t, store, nil)
	ctx := context.Background()

	item, err := eng.CreateItem(ctx, engine.CreateItemRequest{WorkflowID: def.ID, UserID: "maria"})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if !strings.HasPrefix(item.ItemID, "GRV-") {
		t.Errorf("generated item id = %q, want GRV- prefix", item.ItemID)
	}
	if item.QRCode != "item:"+item.ItemID {
		t.Errorf("qr code = %q, want item:%s", item.QRCode, item.ItemID)
	}
	if item.CurrentStageID != "cut" {
		t.Errorf("current stage = %q, want cut", item.CurrentStageID)
	}
	if item.Status != tracking.StatusActive {
		t.Errorf("status = %q, want active", item.Status)
	}

	history, err := store.HistoryForRef(ctx, item.Ref)
	if err != nil {
		t.Fatalf("HistoryForRef: %v", err)
	}
	if len(history) != 1 || history[0].Action != tracking.HistoryStarted {
		t.Fatalf("initial history = %+v, want single started entry", history)
	}
}

func TestCreateItemUnknownWorkflow(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.CreateItem(context.Background(), engine.CreateItemRequest{WorkflowID: "ghost"})
	if !errors.Is(err, engine.ErrWorkflowNotFound) {
		t.Fatalf("err = %v, want ErrWorkflowNotFound", err)
	}
}

func TestAdvanceToStageFollowsGraph(t *testing.T) {
	eng, store := newTestEngine(t)
	def := testsupport.SeedWorkflow(t, store, nil)
	item := testsupport.SeedItem(t, store, def, "JKT-100")
	ctx := context.Background()

	result, err := eng.AdvanceToStage(ctx, engine.AdvanceRequest{
		ItemID:    "JKT-100",
		ToStageID: "sew",
		UserID:    "maria",
		Notes:     "bundle complete",
	})
	if err != nil {
		t.Fatalf("AdvanceToStage: %v", err)
	}
	if result.Status != engine.StatusAdvanced {
		t.Errorf("status = %q, want advanced", result.Status)
	}
	if result.NextStage == nil || result.NextStage.ID != "sew" {
		t.Errorf("next stage = %+v, want sew", result.NextStage)
	}
	if result.Item.CurrentStageID != "sew" {
		t.Errorf("item stage = %q, want sew", result.Item.CurrentStageID)
	}

	history, err := store.HistoryForRef(ctx, item.Ref)
	if err != nil {
		t.Fatalf("HistoryForRef: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	depart, arrive := history[1], history[2]
	if depart.Action != tracking.HistoryCompleted || depart.StageID != "cut" || depart.Notes != "bundle complete" {
		t.Errorf("departing entry = %+v", depart)
	}
	if arrive.Action != tracking.HistoryStarted || arrive.StageID != "sew" {
		t.Errorf("arriving entry = %+v", arrive)
	}
	if !depart.Timestamp.Equal(arrive.Timestamp) {
		t.Errorf("departing/arriving timestamps differ: %v vs %v", depart.Timestamp, arrive.Timestamp)
	}
}

func TestAdvanceToStageRejectsOffGraph(t *testing.T) {
	eng, store := newTestEngine(t)
	def := testsupport.SeedWorkflow(t, store, nil)
	item := testsupport.SeedItem(t, store, def, "JKT-101")
	ctx := context.Background()

	_, err := eng.AdvanceToStage(ctx, engine.AdvanceRequest{ItemID: "JKT-101", ToStageID: "finish"})
	if !errors.Is(err, engine.ErrTransitionNotAllowed) {
		t.Fatalf("err = %v, want ErrTransitionNotAllowed", err)
	}

	// A rejected transition must leave no trace on the item or its ledger.
	reloaded, err := store.GetByItemID(ctx, "JKT-101")
	if err != nil {
		t.Fatalf("GetByItemID: %v", err)
	}
	if reloaded.CurrentStageID != "cut" {
		t.Errorf("item stage = %q, want cut", reloaded.CurrentStageID)
	}
	history, err := store.HistoryForRef(ctx, item.Ref)
	if err != nil {
		t.Fatalf("HistoryForRef: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("history length = %d, want 1", len(history))
	}
}

func TestAdvanceToStageUnknownTarget(t *testing.T) {
	eng, store := newTestEngine(t)
	def := testsupport.SeedWorkflow(t, store, nil)
	testsupport.SeedItem(t, store, def, "JKT-102")

	_, err := eng.AdvanceToStage(context.Background(), engine.AdvanceRequest{ItemID: "JKT-102", ToStageID: "press"})
	if !errors.Is(err, engine.ErrStageNotFound) {
		t.Fatalf("err = %v, want ErrStageNotFound", err)
	}
}

func TestOverrideStageRequiresReason(t *testing.T) {
	eng, store := newTestEngine(t)
	def := testsupport.SeedWorkflow(t, store, nil)
	testsupport.SeedItem(t, store, def, "JKT-103")

	_, err := eng.OverrideStage(context.Background(), engine.OverrideRequest{
		ItemID:    "JKT-103",
		ToStageID: "finish",
		UserID:    "supervisor",
		Reason:    "   ",
	})
	if !errors.Is(err, engine.ErrOverrideReason) {
		t.Fatalf("err = %v, want ErrOverrideReason", err)
	}
}

func TestOverrideStageBypassesGraph(t *testing.T) {
	eng, store := newTestEngine(t)
	def := testsupport.SeedWorkflow(t, store, nil)
	item := testsupport.SeedItem(t, store, def, "JKT-104")
	ctx := context.Background()

	result, err := eng.OverrideStage(ctx, engine.OverrideRequest{
		ItemID:    "JKT-104",
		ToStageID: "finish",
		UserID:    "supervisor",
		Reason:    "rework skipped after customer approval",
	})
	if err != nil {
		t.Fatalf("OverrideStage: %v", err)
	}
	if result.Item.CurrentStageID != "finish" {
		t.Errorf("item stage = %q, want finish", result.Item.CurrentStageID)
	}

	history, err := store.HistoryForRef(ctx, item.Ref)
	if err != nil {
		t.Fatalf("HistoryForRef: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	depart := history[1]
	if depart.Action != tracking.HistoryOverride {
		t.Errorf("departing action = %q, want override", depart.Action)
	}
	if depart.Notes != "rework skipped after customer approval" {
		t.Errorf("override notes = %q", depart.Notes)
	}
}

func TestCompleteStageWithScanAdvances(t *testing.T) {
	eng, store := newTestEngine(t)
	def := testsupport.SeedWorkflow(t, store, nil)
	testsupport.SeedItem(t, store, def, "JKT-200")
	ctx := context.Background()

	result, err := eng.CompleteStageWithScan(ctx, engine.CompleteScanRequest{
		ItemID:  "JKT-200",
		StageID: "cut",
		QRData:  "item:JKT-200",
		UserID:  "maria",
	})
	if err != nil {
		t.Fatalf("CompleteStageWithScan: %v", err)
	}
	if result.Status != engine.StatusAdvanced {
		t.Errorf("status = %q, want advanced", result.Status)
	}
	if result.NextStage == nil || result.NextStage.ID != "sew" {
		t.Errorf("next stage = %+v, want sew", result.NextStage)
	}

	scans, err := store.ScansByItem(ctx, "JKT-200")
	if err != nil {
		t.Fatalf("ScansByItem: %v", err)
	}
	if len(scans) != 1 {
		t.Fatalf("scan count = %d, want 1", len(scans))
	}
	scan := scans[0]
	if !scan.Success || scan.Type != tracking.ScanStageCompletion || scan.StageID != "cut" {
		t.Errorf("gate scan = %+v", scan)
	}
	if scan.Metadata["actionId"] != "cut-scan" {
		t.Errorf("scan action reference = %v, want cut-scan", scan.Metadata["actionId"])
	}
}

func TestCompleteStageWithScanWrongStage(t *testing.T) {
	eng, store := newTestEngine(t)
	def := testsupport.SeedWorkflow(t, store, nil)
	item := testsupport.SeedItem(t, store, def, "JKT-201")
	ctx := context.Background()

	_, err := eng.CompleteStageWithScan(ctx, engine.CompleteScanRequest{
		ItemID:  "JKT-201",
		StageID: "sew",
		QRData:  "item:JKT-201",
		UserID:  "maria",
	})
	if !errors.Is(err, engine.ErrWrongStage) {
		t.Fatalf("err = %v, want ErrWrongStage", err)
	}

	// The rejection itself is audited: exactly one failed scan carrying the
	// stage mismatch, and no transition state change.
	scans, err := store.ScansByItem(ctx, "JKT-201")
	if err != nil {
		t.Fatalf("ScansByItem: %v", err)
	}
	if len(scans) != 1 {
		t.Fatalf("scan count = %d, want 1", len(scans))
	}
	scan := scans[0]
	if scan.Success {
		t.Error("rejection scan marked successful")
	}
	// expectedStage is where the item actually is; actualStage is what the
	// scan claimed.
	if scan.Metadata["expectedStage"] != "cut" {
		t.Errorf("expectedStage = %v, want cut (item's current stage)", scan.Metadata["expectedStage"])
	}
	if scan.Metadata["actualStage"] != "sew" {
		t.Errorf("actualStage = %v, want sew (stage the scan claimed)", scan.Metadata["actualStage"])
	}

	reloaded, err := store.GetByItemID(ctx, "JKT-201")
	if err != nil {
		t.Fatalf("GetByItemID: %v", err)
	}
	if reloaded.CurrentStageID != "cut" {
		t.Errorf("item stage = %q, want cut", reloaded.CurrentStageID)
	}
	history, err := store.HistoryForRef(ctx, item.Ref)
	if err != nil {
		t.Fatalf("HistoryForRef: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("history length = %d, want 1", len(history))
	}
}

func TestCompleteStageWithScanNoScanAction(t *testing.T) {
	eng, store := newTestEngine(t)
	def := testsupport.SeedWorkflow(t, store, nil)
	testsupport.SeedItem(t, store, def, "JKT-202")
	ctx := context.Background()

	if _, err := eng.OverrideStage(ctx, engine.OverrideRequest{
		ItemID:    "JKT-202",
		ToStageID: "finish",
		UserID:    "supervisor",
		Reason:    "expedite",
	}); err != nil {
		t.Fatalf("OverrideStage: %v", err)
	}

	_, err := eng.CompleteStageWithScan(ctx, engine.CompleteScanRequest{
		ItemID:  "JKT-202",
		StageID: "finish",
		QRData:  "item:JKT-202",
		UserID:  "maria",
	})
	if !errors.Is(err, engine.ErrNoScanAction) {
		t.Fatalf("err = %v, want ErrNoScanAction", err)
	}

	scans, err := store.ScansByItem(ctx, "JKT-202")
	if err != nil {
		t.Fatalf("ScansByItem: %v", err)
	}
	if len(scans) != 1 || scans[0].Success {
		t.Fatalf("scans = %+v, want single failed record", scans)
	}
}

func TestCompleteStageWithScanUnknownItem(t *testing.T) {
	eng, store := newTestEngine(t)
	testsupport.SeedWorkflow(t, store, nil)
	ctx := context.Background()

	_, err := eng.CompleteStageWithScan(ctx, engine.CompleteScanRequest{
		ItemID:  "JKT-999",
		StageID: "cut",
		QRData:  "item:JKT-999",
		UserID:  "maria",
	})
	if !errors.Is(err, engine.ErrItemNotFound) {
		t.Fatalf("err = %v, want ErrItemNotFound", err)
	}

	scans, err := store.RecentScansByUser(ctx, "maria", 10)
	if err != nil {
		t.Fatalf("RecentScansByUser: %v", err)
	}
	if len(scans) != 1 || scans[0].Success {
		t.Fatalf("scans = %+v, want single failed record", scans)
	}
}

func twoStageScanWorkflow() *workflow.Definition {
	return &workflow.Definition{
		ID:   "pack-ship",
		Name: "Pack and Ship",
		Stages: []workflow.Stage{
			{
				ID: "pack", Name: "Packing", Order: 1,
				Actions:     []workflow.Action{{ID: "pack-scan", Type: workflow.ActionScan, Label: "Scan carton", Required: true}},
				AllowedNext: []string{"ship"},
			},
			{
				ID: "ship", Name: "Shipping", Order: 2,
				Actions: []workflow.Action{{ID: "ship-scan", Type: workflow.ActionScan, Label: "Scan label", Required: true}},
			},
		},
	}
}

func TestCompleteStageWithScanArchivesTerminal(t *testing.T) {
	eng, store := newTestEngine(t)
	def := testsupport.SeedWorkflow(t, store, twoStageScanWorkflow())
	testsupport.SeedItem(t, store, def, "BOX-1")
	ctx := context.Background()

	if _, err := eng.CompleteStageWithScan(ctx, engine.CompleteScanRequest{
		ItemID: "BOX-1", StageID: "pack", QRData: "item:BOX-1", UserID: "li",
	}); err != nil {
		t.Fatalf("complete pack: %v", err)
	}

	result, err := eng.CompleteStageWithScan(ctx, engine.CompleteScanRequest{
		ItemID: "BOX-1", StageID: "ship", QRData: "item:BOX-1", UserID: "li",
	})
	if err != nil {
		t.Fatalf("complete ship: %v", err)
	}
	if result.Status != engine.StatusCompleted {
		t.Fatalf("status = %q, want completed", result.Status)
	}
	if result.Completed == nil || result.Completed.FinalStageID != "ship" {
		t.Fatalf("completed record = %+v", result.Completed)
	}
	if result.Completed.CompletedBy != "li" {
		t.Errorf("completed by = %q, want li", result.Completed.CompletedBy)
	}

	// The live side must be fully vacated.
	live, err := store.GetByItemID(ctx, "BOX-1")
	if err != nil {
		t.Fatalf("GetByItemID: %v", err)
	}
	if live != nil {
		t.Fatalf("live item still present after archival: %+v", live)
	}

	// Ledger: started(pack), completed(pack), started(ship) copied from the
	// live table, plus the terminal completed(ship) entry.
	history, err := store.CompletedHistory(ctx, "BOX-1")
	if err != nil {
		t.Fatalf("CompletedHistory: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("completed history length = %d, want 4", len(history))
	}
	last := history[len(history)-1]
	if last.Action != tracking.HistoryCompleted || last.StageID != "ship" {
		t.Errorf("terminal entry = %+v", last)
	}
}

func TestCompleteStageWithScanRateLimited(t *testing.T) {
	eng, store := newTestEngine(t, testsupport.WithRateLimit(60, 1))
	def := testsupport.SeedWorkflow(t, store, nil)
	item := testsupport.SeedItem(t, store, def, "JKT-300")
	ctx := context.Background()

	if _, err := eng.CompleteStageWithScan(ctx, engine.CompleteScanRequest{
		ItemID: "JKT-300", StageID: "cut", QRData: "item:JKT-300", UserID: "maria",
	}); err != nil {
		t.Fatalf("first completion: %v", err)
	}

	_, err := eng.CompleteStageWithScan(ctx, engine.CompleteScanRequest{
		ItemID: "JKT-300", StageID: "sew", QRData: "item:JKT-300", UserID: "maria",
	})
	if !errors.Is(err, scanner.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}

	// The throttled attempt changed nothing: the item sits where the first
	// completion left it and only that completion's scan exists.
	reloaded, err := store.GetByItemID(ctx, "JKT-300")
	if err != nil {
		t.Fatalf("GetByItemID: %v", err)
	}
	if reloaded.CurrentStageID != "sew" {
		t.Errorf("item stage = %q, want sew", reloaded.CurrentStageID)
	}
	scans, err := store.ScansByItem(ctx, "JKT-300")
	if err != nil {
		t.Fatalf("ScansByItem: %v", err)
	}
	if len(scans) != 1 {
		t.Errorf("scan count = %d, want 1", len(scans))
	}
	history, err := store.HistoryForRef(ctx, item.Ref)
	if err != nil {
		t.Fatalf("HistoryForRef: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("history length = %d, want 3", len(history))
	}
}

func TestPauseResumeFlag(t *testing.T) {
	eng, store := newTestEngine(t)
	def := testsupport.SeedWorkflow(t, store, nil)
	item := testsupport.SeedItem(t, store, def, "JKT-400")
	ctx := context.Background()

	paused, err := eng.PauseItem(ctx, "JKT-400")
	if err != nil {
		t.Fatalf("PauseItem: %v", err)
	}
	if paused.Status != tracking.StatusPaused {
		t.Errorf("status = %q, want paused", paused.Status)
	}

	flagged, err := eng.FlagItem(ctx, "JKT-400", "broken needle", "maria")
	if err != nil {
		t.Fatalf("FlagItem: %v", err)
	}
	if flagged.Status != tracking.StatusError {
		t.Errorf("status = %q, want error", flagged.Status)
	}
	history, err := store.HistoryForRef(ctx, item.Ref)
	if err != nil {
		t.Fatalf("HistoryForRef: %v", err)
	}
	var flagEntry *tracking.HistoryEntry
	for _, entry := range history {
		if entry.Action == tracking.HistoryFlagged {
			flagEntry = entry
		}
	}
	if flagEntry == nil {
		t.Fatal("flag entry missing from history")
	}
	if flagEntry.Notes != "broken needle" {
		t.Errorf("flag notes = %q", flagEntry.Notes)
	}
	// The ledger row names the stage, not just its id.
	if flagEntry.StageID != "cut" || flagEntry.StageName != "Cutting" {
		t.Errorf("flag stage = %q/%q, want cut/Cutting", flagEntry.StageID, flagEntry.StageName)
	}
	if flagEntry.UserID != "maria" {
		t.Errorf("flag user = %q, want maria", flagEntry.UserID)
	}

	resumed, err := eng.ResumeItem(ctx, "JKT-400")
	if err != nil {
		t.Fatalf("ResumeItem: %v", err)
	}
	if resumed.Status != tracking.StatusActive {
		t.Errorf("status = %q, want active", resumed.Status)
	}
}
