package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"groovy/internal/ipc"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start item processing on the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Start()
				if err != nil {
					return err
				}
				if !resp.Started && resp.Message != "" {
					fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon started")
				return nil
			})
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the groovy daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Stop(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopped")
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and item status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				running := "no"
				if resp.Running {
					running = "yes"
				}
				fmt.Fprintf(stdout, "Running:   %s (pid %d)\n", running, resp.PID)
				fmt.Fprintf(stdout, "Database:  %s\n", resp.DatabasePath)
				if resp.APIAddr != "" {
					fmt.Fprintf(stdout, "API:       http://%s\n", resp.APIAddr)
				}
				fmt.Fprintf(stdout, "Live:      %d\n", resp.LiveItems)
				fmt.Fprintf(stdout, "Completed: %d\n", resp.CompletedItems)
				fmt.Fprintf(stdout, "Scans:     %d\n", resp.Scans)
				fmt.Fprintln(stdout)

				statuses := make([]string, 0, len(resp.ItemStats))
				for status := range resp.ItemStats {
					statuses = append(statuses, status)
				}
				sort.Strings(statuses)

				rows := make([][]string, 0, len(statuses))
				for _, status := range statuses {
					rows = append(rows, []string{titleCase(status), strconv.Itoa(resp.ItemStats[status])})
				}
				if len(rows) == 0 {
					fmt.Fprintln(stdout, "No live items")
					return nil
				}
				fmt.Fprintln(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}
