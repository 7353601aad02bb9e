/*
Package planner sequences schema kinds so that export and import always
visit a kind's dependencies before the kind itself.

Order computes in-degree over the reversed dependency edge set (an edge
dep -> dependent) and repeatedly dequeues zero-in-degree kinds, seeding
the initial queue in registry insertion order for a stable, repeatable
result. A kind graph containing a cycle fails with ErrCyclicDependency
naming every kind left unprocessed.
*/
package planner
