// Package orchestrator sits between cmd/kvault and pkg/snapshotmgr. It
// validates every configured service's schema.Registry up front — a
// cyclic dependency graph fails at startup, not mid-backup — then
// forwards Backup, Restore, Plan, List, and Info unchanged.
package orchestrator
