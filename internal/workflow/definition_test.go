package workflow_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"groovy/internal/workflow"
)

func garmentWorkflow() workflow.Definition {
	return workflow.Definition{
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

func TestValidateAcceptsWellFormedDefinition(t *testing.T) {
	def := garmentWorkflow()
	if err := def.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsDuplicateOrder(t *testing.T) {
	def := garmentWorkflow()
	def.Stages[1].Order = 1
	err := def.Validate()
	if !errors.Is(err, workflow.ErrInvalidDefinition) {
		t.Fatalf("expected ErrInvalidDefinition, got %v", err)
	}
}

func TestValidateRejectsUnknownNextStage(t *testing.T) {
	def := garmentWorkflow()
	def.Stages[0].AllowedNext = []string{"press"}
	if err := def.Validate(); !errors.Is(err, workflow.ErrInvalidDefinition) {
		t.Fatalf("expected ErrInvalidDefinition, got %v", err)
	}
}

func TestValidateRejectsUnknownActionType(t *testing.T) {
	def := garmentWorkflow()
	def.Stages[0].Actions[0].Type = workflow.ActionType("teleport")
	if err := def.Validate(); !errors.Is(err, workflow.ErrInvalidDefinition) {
		t.Fatalf("expected ErrInvalidDefinition, got %v", err)
	}
}

func TestStageLookups(t *testing.T) {
	def := garmentWorkflow()

	first, ok := def.FirstStage()
	if !ok || first.ID != "cut" {
		t.Fatalf("unexpected first stage: %+v", first)
	}

	next, ok := def.StageAfter(first.Order)
	if !ok || next.ID != "sew" {
		t.Fatalf("unexpected stage after cut: %+v", next)
	}

	last, ok := def.StageByID("finish")
	if !ok {
		t.Fatal("finish stage missing")
	}
	if !def.IsTerminal(last) {
		t.Fatal("finish should be terminal")
	}
	if def.IsTerminal(first) {
		t.Fatal("cut should not be terminal")
	}

	if _, ok := first.ScanAction(); !ok {
		t.Fatal("cut should declare a scan action")
	}
	if _, ok := last.ScanAction(); ok {
		t.Fatal("finish should not declare a scan action")
	}
	if !first.AllowsNext("sew") || first.AllowsNext("finish") {
		t.Fatal("allowed-next graph not honored")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	content := `
id = "garment-basic"
name = "Garment Basic"

[[stages]]
id = "cut"
name = "Cutting"
order = 1
allowed_next = ["sew"]

[[stages.actions]]
id = "cut-scan"
type = "scan"
label = "Scan bundle"
required = true

[[stages]]
id = "sew"
name = "Sewing"
order = 2
`
	if err := os.WriteFile(filepath.Join(dir, "garment.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write definition: %v", err)
	}

	defs, err := workflow.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(defs) != 1 || defs[0].ID != "garment-basic" || len(defs[0].Stages) != 2 {
		t.Fatalf("unexpected definitions: %+v", defs)
	}
}

func TestLoadDirMissingIsNotError(t *testing.T) {
	defs, err := workflow.LoadDir(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if defs != nil {
		t.Fatalf("expected nil definitions, got %+v", defs)
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.toml")
	content := `
name = "Broken"

[[stages]]
id = "a"
name = "A"
order = 1

[[stages]]
id = "a"
name = "A again"
order = 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write definition: %v", err)
	}
	if _, err := workflow.LoadFile(path); !errors.Is(err, workflow.ErrInvalidDefinition) {
		t.Fatalf("expected ErrInvalidDefinition, got %v", err)
	}
}
