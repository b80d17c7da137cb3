package main

import (
	"context"

	"log/slog"

	"groovy/internal/config"
	"groovy/internal/logging"
	"groovy/internal/tracking"
	"groovy/internal/workflow"
)

// seedWorkflows loads TOML definitions from the configured directory into the
// store so deployments can ship workflows as files. Definitions registered
// over the API with the same id are replaced on restart.
func seedWorkflows(ctx context.Context, cfg *config.Config, store *tracking.Store, logger *slog.Logger) error {
	defs, err := workflow.LoadDir(cfg.Workflow.DefinitionsDir)
	if err != nil {
		return err
	}
	for _, def := range defs {
		if err := store.SaveWorkflow(ctx, def); err != nil {
			return err
		}
		logger.Info("workflow definition loaded",
			logging.FieldWorkflowID, def.ID,
			logging.Int("stages", len(def.Stages)))
	}
	return nil
}
