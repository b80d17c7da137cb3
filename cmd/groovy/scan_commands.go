package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"groovy/internal/ipc"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Inspect scan activity",
	}

	var window int
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show scan volume and success rate over a trailing window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ScanStats(window)
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Window:       %ds\n", resp.WindowSeconds)
				fmt.Fprintf(stdout, "Total scans:  %d\n", resp.Total)
				fmt.Fprintf(stdout, "Succeeded:    %d\n", resp.Succeeded)
				fmt.Fprintf(stdout, "Failed:       %d\n", resp.Failed)
				fmt.Fprintf(stdout, "Success rate: %.1f%%\n", resp.SuccessRate*100)
				return nil
			})
		},
	}
	statsCmd.Flags().IntVar(&window, "window", 86400, "Window size in seconds")

	scanCmd.AddCommand(statsCmd)
	return scanCmd
}
