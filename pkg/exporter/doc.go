/*
Package exporter walks a realm's kinds in planner order and canonicalises
each kind's live collection into a snapshot artifact.

Failures are isolated per kind: Export never returns an error itself.
A kind whose fetch or decode fails is recorded as a degraded Artifact
(carrying the error message and an HTTP-shaped status) and the walk
continues to the next kind, so a partial snapshot is always produced.
The second return value reports whether any kind degraded, which the
snapshot manager propagates to the manifest.

Duplicate identities within a single kind's response are dropped,
keeping the first occurrence, matching the snapshot invariant that
identity keys are unique within a kind.
*/
package exporter
