package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"groovy/internal/ipc"
)

func newCompletedCommand(ctx *commandContext) *cobra.Command {
	completedCmd := &cobra.Command{
		Use:   "completed",
		Short: "Inspect archived items",
	}

	var listLimit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the newest archived items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CompletedList(listLimit)
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				if len(resp.Items) == 0 {
					fmt.Fprintln(stdout, "No completed items")
					return nil
				}

				rows := make([][]string, 0, len(resp.Items))
				for _, item := range resp.Items {
					rows = append(rows, []string{
						item.ItemID,
						item.WorkflowID,
						item.FinalStageName,
						item.CompletedBy,
						item.CompletedAt,
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"Item", "Workflow", "Final Stage", "Completed By", "Completed At"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "Maximum number of items to list")

	completedCmd.AddCommand(listCmd)
	return completedCmd
}
