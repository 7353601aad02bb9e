// Package differ computes the per-kind three-way comparison between a
// snapshot and live realm state, producing the actions a restore plan
// would apply.
package differ

import (
	"github.com/cuemby/kvault/pkg/schema"
)

// ActionType is one of skip, add, update, or remove.
type ActionType string

const (
	ActionSkip   ActionType = "skip"
	ActionAdd    ActionType = "add"
	ActionUpdate ActionType = "update"
	ActionRemove ActionType = "remove"
)

// Action is one identity's outcome within a kind's diff.
type Action struct {
	Type       ActionType    `json:"type"`
	Identity   string        `json:"identity"`
	Entity     schema.Entity `json:"entity,omitempty"`
	DiffFields []string      `json:"diff_fields,omitempty"`
}

// Diff compares snapshotEntities against liveEntities for one kind, using
// its identity and equality functions, and returns one Action per
// identity present in either side.
func Diff(descriptor schema.Descriptor, snapshotEntities, liveEntities []schema.Entity) []Action {
	snapshotByID := index(descriptor, snapshotEntities)
	liveByID := index(descriptor, liveEntities)

	var actions []Action
	for id, snapshotEntity := range snapshotByID {
		liveEntity, present := liveByID[id]
		if !present {
			actions = append(actions, Action{Type: ActionAdd, Identity: id, Entity: snapshotEntity})
			continue
		}
		equal, diffFields := descriptor.EqualityFn(snapshotEntity, liveEntity)
		if equal {
			actions = append(actions, Action{Type: ActionSkip, Identity: id})
			continue
		}
		actions = append(actions, Action{Type: ActionUpdate, Identity: id, Entity: snapshotEntity, DiffFields: diffFields})
	}
	for id, liveEntity := range liveByID {
		if _, present := snapshotByID[id]; !present {
			actions = append(actions, Action{Type: ActionRemove, Identity: id, Entity: liveEntity})
		}
	}
	return actions
}

func index(descriptor schema.Descriptor, entities []schema.Entity) map[string]schema.Entity {
	out := make(map[string]schema.Entity, len(entities))
	for _, e := range entities {
		out[descriptor.IdentityFn(e)] = e
	}
	return out
}

// KindPlan is one kind's diff actions, grouped for reporting.
type KindPlan struct {
	Kind    string   `json:"kind"`
	Actions []Action `json:"actions"`
}

// Plan aggregates per-kind action lists in planner order.
type Plan struct {
	Kinds []KindPlan `json:"kinds"`
}

// BuildPlan runs Diff for each kind in order, using entities looked up by
// name from snapshotByKind/liveByKind.
func BuildPlan(registry *schema.Registry, order []string, snapshotByKind, liveByKind map[string][]schema.Entity) Plan {
	plan := Plan{Kinds: make([]KindPlan, 0, len(order))}
	for _, name := range order {
		descriptor, ok := registry.Lookup(name)
		if !ok {
			continue
		}
		actions := Diff(descriptor, snapshotByKind[name], liveByKind[name])
		plan.Kinds = append(plan.Kinds, KindPlan{Kind: name, Actions: actions})
	}
	return plan
}
