package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info SNAPSHOT_ID",
	Short: "Show a snapshot's manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := buildOrchestrator(cmd)
		if err != nil {
			return err
		}

		manifest, err := o.Info(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("info failed: %w", err)
		}

		fmt.Printf("snapshot:    %s\n", manifest.SnapshotID)
		fmt.Printf("created_at:  %s\n", manifest.CreatedAt.Format("2006-01-02T15:04:05Z"))
		fmt.Printf("description: %s\n", manifest.Description)
		fmt.Printf("degraded:    %t\n", manifest.Degraded)
		fmt.Println("services:")
		for name, svc := range manifest.Services {
			fmt.Printf("  %s (type=%s, version=%s, priority=%d)\n", name, svc.Type, svc.Version, svc.Priority)
			for _, kind := range svc.Data {
				fmt.Printf("    - %s\n", kind)
			}
		}
		return nil
	},
}
