/*
Package importer decodes a snapshot's per-kind artifacts and creates the
corresponding entities against a realm, in planner order, so that a
kind's dependencies exist before the kind itself is created.

# Failure isolation

  - A 409 from the provider is counted as Existing and does not fail the
    item.
  - A 4xx validation error is counted as Failed and the kind continues
    with its remaining items.
  - A 5xx or transport error aborts the current kind: every kind that
    (directly or transitively) depends on it is recorded Skipped with
    the failing dependency named in Reason, while independent branches
    of the kind graph continue unaffected.

Import returns a Report tree keyed by kind name with created/existing/
failed/skipped counts, matching the shape spec.md requires for restore
output.
*/
package importer
