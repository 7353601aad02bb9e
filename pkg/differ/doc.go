/*
Package differ computes a kind's three-way comparison between a
snapshot and live realm state.

For each identity present in either side:

	snapshot present, live absent             -> add
	snapshot absent,  live present             -> remove
	both present, equality_fn holds            -> skip
	both present, equality_fn fails            -> update (with field diff)

Kinds override the equality rule to tolerate benign differences (e.g. a
kind may treat two entries as equivalent despite differing server-only
fields) by supplying a schema.EqualityFunc that ignores those fields.

BuildPlan runs Diff for every kind in planner order and aggregates the
results into a Plan, which is a plain JSON-serialisable value with no
side effects — computing a plan never touches the provider's write API.
*/
package differ
