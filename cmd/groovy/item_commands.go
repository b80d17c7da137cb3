package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"groovy/internal/ipc"
)

func newItemCommand(ctx *commandContext) *cobra.Command {
	itemCmd := &cobra.Command{
		Use:   "item",
		Short: "Inspect and register tracked items",
	}

	var listStatuses []string
	var listWorkflow string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List live items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ItemList(ipc.ItemListRequest{
					Statuses:   listStatuses,
					WorkflowID: listWorkflow,
				})
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				if len(resp.Items) == 0 {
					fmt.Fprintln(stdout, "No live items")
					return nil
				}

				rows := make([][]string, 0, len(resp.Items))
				for _, item := range resp.Items {
					rows = append(rows, []string{
						item.ItemID,
						item.WorkflowID,
						item.CurrentStageID,
						titleCase(item.Status),
						item.AssignedTo,
						item.UpdatedAt,
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"Item", "Workflow", "Stage", "Status", "Assigned", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	listCmd.Flags().StringSliceVar(&listStatuses, "status", nil, "Filter by item status (repeatable)")
	listCmd.Flags().StringVar(&listWorkflow, "workflow", "", "Filter by workflow ID")

	showCmd := &cobra.Command{
		Use:   "show <item-id>",
		Short: "Show a single live item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ItemDescribe(args[0])
				if err != nil {
					return err
				}

				item := resp.Item
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Item:     %s\n", item.ItemID)
				fmt.Fprintf(stdout, "Workflow: %s\n", item.WorkflowID)
				fmt.Fprintf(stdout, "Stage:    %s\n", item.CurrentStageID)
				fmt.Fprintf(stdout, "Status:   %s\n", titleCase(item.Status))
				if item.AssignedTo != "" {
					fmt.Fprintf(stdout, "Assigned: %s\n", item.AssignedTo)
				}
				if item.QRCode != "" {
					fmt.Fprintf(stdout, "QR code:  %s\n", item.QRCode)
				}
				fmt.Fprintf(stdout, "Started:  %s\n", item.StartedAt)
				fmt.Fprintf(stdout, "Updated:  %s\n", item.UpdatedAt)
				return nil
			})
		},
	}

	historyCmd := &cobra.Command{
		Use:   "history <item-id>",
		Short: "Show an item's stage ledger, live or archived",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ItemHistory(args[0])
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				if resp.Completed {
					fmt.Fprintf(stdout, "Item %s is archived\n", resp.ItemID)
				}
				if len(resp.Entries) == 0 {
					fmt.Fprintln(stdout, "No history recorded")
					return nil
				}

				rows := make([][]string, 0, len(resp.Entries))
				for _, entry := range resp.Entries {
					rows = append(rows, []string{
						entry.Timestamp,
						entry.StageName,
						titleCase(entry.Action),
						entry.UserID,
						entry.Notes,
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"Time", "Stage", "Action", "User", "Notes"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	var addItemID string
	var addAssignedTo string
	var addUserID string
	addCmd := &cobra.Command{
		Use:   "add <workflow-id>",
		Short: "Register a new item on a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ItemAdd(ipc.ItemAddRequest{
					WorkflowID: args[0],
					ItemID:     addItemID,
					AssignedTo: addAssignedTo,
					UserID:     addUserID,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered %s on %s at stage %s\n",
					resp.Item.ItemID, resp.Item.WorkflowID, resp.Item.CurrentStageID)
				return nil
			})
		},
	}
	addCmd.Flags().StringVar(&addItemID, "id", "", "Business item ID (generated when omitted)")
	addCmd.Flags().StringVar(&addAssignedTo, "assign", "", "User the item is assigned to")
	addCmd.Flags().StringVar(&addUserID, "user", "", "User registering the item")

	itemCmd.AddCommand(listCmd, showCmd, historyCmd, addCmd)
	return itemCmd
}
