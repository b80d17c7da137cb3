package testsupport

import (
	"context"
	"testing"

	"groovy/internal/config"
	"groovy/internal/tracking"
	"groovy/internal/workflow"
)

// MustOpenStore opens a tracking.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *tracking.Store {
	t.Helper()

	store, err := tracking.Open(cfg)
	if err != nil {
		t.Fatalf("tracking.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// GarmentWorkflow returns a three-stage linear workflow used across tests:
// cut (scan) -> sew (scan) -> finish (inspection, no scan action).
func GarmentWorkflow() *workflow.Definition {
	return &workflow.Definition{
		ID:   "garment-basic",
		Name: "Garment Basic",
		Stages: []workflow.Stage{
			{
				ID: "cut", Name: "Cutting", Order: 1,
				Actions:     []workflow.Action{{ID: "cut-scan", Type: workflow.ActionScan, Label: "Scan bundle", Required: true}},
				AllowedNext: []string{"sew"},
			},
			{
				ID: "sew", Name: "Sewing", Order: 2,
				Actions:     []workflow.Action{{ID: "sew-scan", Type: workflow.ActionScan, Label: "Scan garment", Required: true}},
				AllowedNext: []string{"finish"},
			},
			{
				ID: "finish", Name: "Finishing", Order: 3,
				Actions: []workflow.Action{{ID: "final-check", Type: workflow.ActionInspection, Label: "Final inspection", Required: true}},
			},
		},
	}
}

// SeedWorkflow stores the provided definition, defaulting to GarmentWorkflow.
func SeedWorkflow(t testing.TB, store *tracking.Store, def *workflow.Definition) *workflow.Definition {
	t.Helper()

	if def == nil {
		def = GarmentWorkflow()
	}
	if err := def.Validate(); err != nil {
		t.Fatalf("workflow fixture invalid: %v", err)
	}
	if err := store.SaveWorkflow(context.Background(), def); err != nil {
		t.Fatalf("SaveWorkflow: %v", err)
	}
	return def
}

// SeedItem registers a live item at the workflow's first stage.
func SeedItem(t testing.TB, store *tracking.Store, def *workflow.Definition, itemID string) *tracking.Item {
	t.Helper()

	first, ok := def.FirstStage()
	if !ok {
		t.Fatalf("workflow %s has no stages", def.ID)
	}
	item, err := store.NewItem(context.Background(), tracking.NewItemParams{
		ItemID:     itemID,
		WorkflowID: def.ID,
		StageID:    first.ID,
		StageName:  first.Name,
		QRCode:     "item:" + itemID,
	})
	if err != nil {
		t.Fatalf("store.NewItem: %v", err)
	}
	return item
}
