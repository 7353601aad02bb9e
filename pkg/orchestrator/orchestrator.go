// Package orchestrator is the entry point for backup, restore, plan,
// list, and info: it validates configured services against their schema
// registries and composes snapshotmgr.Manager.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/cuemby/kvault/pkg/differ"
	"github.com/cuemby/kvault/pkg/errs"
	"github.com/cuemby/kvault/pkg/planner"
	"github.com/cuemby/kvault/pkg/snapshotmgr"
	"github.com/cuemby/kvault/pkg/types"
)

// Orchestrator wires configuration to a snapshotmgr.Manager.
type Orchestrator struct {
	manager *snapshotmgr.Manager
}

// New validates each service's registry (the kind graph must have no
// cycles; an invalid graph fails fast here rather than mid-operation)
// and returns an Orchestrator ready to dispatch.
func New(manager *snapshotmgr.Manager, services []snapshotmgr.ServiceConfig) (*Orchestrator, error) {
	for _, svc := range services {
		if _, err := planner.Order(svc.Registry); err != nil {
			return nil, fmt.Errorf("%w: service %q: %w", errs.ErrConfig, svc.Name, err)
		}
	}
	return &Orchestrator{manager: manager}, nil
}

// Backup runs a backup across the selected services.
func (o *Orchestrator) Backup(ctx context.Context, req snapshotmgr.BackupRequest) (*snapshotmgr.BackupResult, error) {
	return o.manager.Backup(ctx, req)
}

// Restore runs a restore or, when req.Plan is set, a dry-run plan.
func (o *Orchestrator) Restore(ctx context.Context, req snapshotmgr.RestoreRequest) (*snapshotmgr.RestoreResult, *snapshotmgr.PlanResult, error) {
	return o.manager.Restore(ctx, req)
}

// Plan is a convenience wrapper over Restore(Plan: true).
func (o *Orchestrator) Plan(ctx context.Context, snapshotID string, services []string) (map[string]differ.Plan, error) {
	_, plan, err := o.manager.Restore(ctx, snapshotmgr.RestoreRequest{SnapshotID: snapshotID, ServiceSelector: services, Plan: true})
	if err != nil {
		return nil, err
	}
	return plan.Plans, nil
}

// List returns every snapshot's summary.
func (o *Orchestrator) List(ctx context.Context) ([]types.SnapshotSummary, error) {
	return o.manager.List(ctx)
}

// Info returns a single snapshot's manifest.
func (o *Orchestrator) Info(ctx context.Context, snapshotID string) (*types.Manifest, error) {
	return o.manager.Info(ctx, snapshotID)
}
