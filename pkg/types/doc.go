/*
Package types defines the core data structures shared across kvault.

This package holds the wire and persisted shapes for snapshots: the
manifest, per-service manifest entries, per-kind artifacts, and the
summary view returned by list operations. Everything here is a plain
value type — no behavior, no I/O — so every other package can depend on
it without creating cycles.

# Core types

  - Manifest: the commit record of a snapshot — format version, snapshot
    id, creation time, description, degraded flag, and the set of
    services it covers.
  - ServiceManifest: one entry in Manifest.Services — the kinds present
    for that service, sorted by name.
  - Artifact: the per-kind JSON blob persisted under
    <snapshot_id>/<service>/<kind>.json — a message, the decoded
    entities, and an optional error/status pair when the kind's export
    or import failed without aborting the rest of the snapshot.
  - SnapshotSummary: the reduced view used by `kvault list`, carrying
    only what a listing needs; it is built from each fully parsed
    manifest.

All types are JSON-tagged to match the persisted format exactly; field
names are not renamed for Go convention where doing so would break
on-disk compatibility with existing snapshots.
*/
package types
