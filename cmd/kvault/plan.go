package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan SNAPSHOT_ID",
	Short: "Show the actions a restore would take, without applying them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := buildOrchestrator(cmd)
		if err != nil {
			return err
		}

		services, _ := cmd.Flags().GetStringSlice("service")

		plans, err := o.Plan(context.Background(), args[0], services)
		if err != nil {
			return fmt.Errorf("plan failed: %w", err)
		}

		for name, svcPlan := range plans {
			fmt.Printf("service %s:\n", name)
			for _, kindPlan := range svcPlan.Kinds {
				fmt.Printf("  %s:\n", kindPlan.Kind)
				for _, action := range kindPlan.Actions {
					if action.Type == "skip" {
						continue
					}
					fmt.Printf("    %-6s %s\n", action.Type, action.Identity)
					if len(action.DiffFields) > 0 {
						fmt.Printf("      fields: %v\n", action.DiffFields)
					}
				}
			}
		}
		return nil
	},
}

func init() {
	planCmd.Flags().StringSlice("service", nil, "Services to plan (default: every service present in the snapshot)")
}
