package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := buildOrchestrator(cmd)
		if err != nil {
			return err
		}

		summaries, err := o.List(context.Background())
		if err != nil {
			return fmt.Errorf("list failed: %w", err)
		}
		if len(summaries) == 0 {
			fmt.Println("no snapshots found")
			return nil
		}

		fmt.Printf("%-34s %-25s %-10s %s\n", "SNAPSHOT_ID", "CREATED_AT", "DEGRADED", "SERVICES")
		for _, s := range summaries {
			fmt.Printf("%-34s %-25s %-10t %s\n", s.SnapshotID, s.CreatedAt.Format("2006-01-02T15:04:05Z"), s.Degraded, strings.Join(s.Services, ","))
		}
		return nil
	},
}
