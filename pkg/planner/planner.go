// Package planner topologically sorts schema kinds by their declared
// dependencies so export and import visit prerequisites first.
package planner

import (
	"fmt"

	"github.com/cuemby/kvault/pkg/errs"
	"github.com/cuemby/kvault/pkg/schema"
)

// Order returns kind names such that every kind appears after all of the
// kinds it depends on, using Kahn's algorithm over the reversed edge set
// (dependency -> dependent) seeded in registry insertion order so repeated
// runs over the same registry are deterministic.
//
// The same ordering serves both export and import: dependents need their
// prerequisites materialised first in both directions.
func Order(registry *schema.Registry) ([]string, error) {
	descriptors := registry.Ordered()

	inDegree := make(map[string]int, len(descriptors))
	dependents := make(map[string][]string, len(descriptors))
	for _, d := range descriptors {
		inDegree[d.Name] = 0
	}
	for _, d := range descriptors {
		for _, dep := range d.DependsOn {
			inDegree[d.Name]++
			dependents[dep] = append(dependents[dep], d.Name)
		}
	}

	var queue []string
	for _, d := range descriptors {
		if inDegree[d.Name] == 0 {
			queue = append(queue, d.Name)
		}
	}

	order := make([]string, 0, len(descriptors))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		order = append(order, name)
		for _, dependent := range dependents[name] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(order) != len(descriptors) {
		var unprocessed []string
		for _, d := range descriptors {
			if inDegree[d.Name] > 0 {
				unprocessed = append(unprocessed, d.Name)
			}
		}
		return nil, fmt.Errorf("%w: kinds %v form a cycle", errs.ErrCyclicDependency, unprocessed)
	}

	return order, nil
}
