package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/kvault/pkg/snapshotmgr"
)

var restoreCmd = &cobra.Command{
	Use:   "restore SNAPSHOT_ID",
	Short: "Import a snapshot's artifacts into the live realm",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := buildOrchestrator(cmd)
		if err != nil {
			return err
		}

		services, _ := cmd.Flags().GetStringSlice("service")

		result, _, err := o.Restore(context.Background(), snapshotmgr.RestoreRequest{
			SnapshotID:      args[0],
			ServiceSelector: services,
		})
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}

		for name, report := range result.Reports {
			fmt.Printf("service %s:\n", name)
			for kind, kr := range report.Kinds {
				fmt.Printf("  %-20s created=%d existing=%d failed=%d skipped=%d\n", kind, kr.Created, kr.Existing, kr.Failed, kr.Skipped)
				if kr.Reason != "" {
					fmt.Printf("    reason: %s\n", kr.Reason)
				}
			}
		}
		return nil
	},
}

func init() {
	restoreCmd.Flags().StringSlice("service", nil, "Services to restore (default: every service present in the snapshot)")
}
