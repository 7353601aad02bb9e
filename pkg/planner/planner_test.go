package planner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/kvault/pkg/errs"
	"github.com/cuemby/kvault/pkg/planner"
	"github.com/cuemby/kvault/pkg/schema"
)

func indexOf(order []string, name string) int {
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return -1
}

func TestOrderRespectsDependencies(t *testing.T) {
	registry, err := schema.Default()
	require.NoError(t, err)

	order, err := planner.Order(registry)
	require.NoError(t, err)
	require.Len(t, order, registry.Len())

	assert.Less(t, indexOf(order, "groups"), indexOf(order, "users"))
	assert.Less(t, indexOf(order, "clients"), indexOf(order, "roles"))
}

func TestOrderIsDeterministic(t *testing.T) {
	registry, err := schema.Default()
	require.NoError(t, err)

	first, err := planner.Order(registry)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := planner.Order(registry)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestOrderDetectsCycle(t *testing.T) {
	registry, err := schema.NewRegistry(
		schema.Descriptor{Name: "a", DependsOn: []string{"b"}},
		schema.Descriptor{Name: "b", DependsOn: []string{"a"}},
	)
	require.NoError(t, err)

	_, err = planner.Order(registry)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrCyclicDependency)
	assert.Contains(t, err.Error(), "a")
	assert.Contains(t, err.Error(), "b")
}
