package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"groovy/internal/ipc"
)

func newWorkflowCommand(ctx *commandContext) *cobra.Command {
	workflowCmd := &cobra.Command{
		Use:   "workflow",
		Short: "Manage workflow definitions",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored workflow definitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.WorkflowList()
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				if len(resp.Workflows) == 0 {
					fmt.Fprintln(stdout, "No workflows defined")
					return nil
				}

				rows := make([][]string, 0, len(resp.Workflows))
				for _, wf := range resp.Workflows {
					stages := make([]string, 0, len(wf.Stages))
					scanGated := 0
					for _, stage := range wf.Stages {
						stages = append(stages, stage.ID)
						if stage.ScanRequired {
							scanGated++
						}
					}
					rows = append(rows, []string{
						wf.ID,
						wf.Name,
						strings.Join(stages, " > "),
						fmt.Sprintf("%d/%d", scanGated, len(wf.Stages)),
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"ID", "Name", "Stages", "Scan-Gated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	applyCmd := &cobra.Command{
		Use:   "apply <file...>",
		Short: "Store workflow definitions from TOML files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				stdout := cmd.OutOrStdout()
				for _, path := range args {
					data, err := os.ReadFile(path)
					if err != nil {
						return fmt.Errorf("read %s: %w", path, err)
					}
					resp, err := client.WorkflowDefine(string(data))
					if err != nil {
						return fmt.Errorf("apply %s: %w", path, err)
					}
					fmt.Fprintf(stdout, "Stored workflow %s (%d stages)\n",
						resp.Workflow.ID, len(resp.Workflow.Stages))
				}
				return nil
			})
		},
	}

	workflowCmd.AddCommand(listCmd, applyCmd)
	return workflowCmd
}
