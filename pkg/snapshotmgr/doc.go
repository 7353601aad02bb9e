/*
Package snapshotmgr orchestrates backup and restore across one or more
configured services. Backup fans the exporter out across services in
parallel; restore handles the selected services one after another. Each
service's kinds stay strictly sequential.

# State machine

Each backup moves through an explicit, validated state machine (restore
does not use it):

	Init -> Selecting -> Exporting -> Writing -> Uploading -> Done
	                         |            |
	                         v            +-----------------> Done
	                     Degraded -> Writing

Writing -> Done directly is the ArchiveOnly=false path, which writes
nothing to the backend. Any state other than Done may move to Failed on
an unrecoverable error. Writing ->
Uploading is the commit point: the manifest is written last, so an
aborted backup never leaves a visible partial snapshot — only orphan
artifacts under snapshot_id/ that a separate sweep can garbage-collect
by the absence of a manifest.

# Backup

Generates a random snapshot_id, exports each selected service
concurrently via golang.org/x/sync/errgroup (kinds within a service stay
sequential, enforced by the planner order each export call uses), writes
artifacts to a scoped temp directory, uploads the tree to the backend,
then writes the manifest.

# Restore

Downloads a snapshot's tree, then either builds a differ.Plan against
live realm state (no side effects, no importer invocation) or invokes
the importer, depending on RestoreRequest.Plan.

Temp directories are always removed via a deferred cleanup, including on
context cancellation.
*/
package snapshotmgr
