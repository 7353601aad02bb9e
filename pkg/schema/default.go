package schema

import (
	"reflect"
	"sort"
)

// serverOnlyFields are stripped from every entity on export and
// re-acquired from the provider on import, regardless of kind.
var serverOnlyFields = []string{"id", "createdTimestamp", "containerId"}

func stripServerFields(e Entity, extra ...string) (Entity, error) {
	out := e.Clone()
	for _, f := range serverOnlyFields {
		delete(out, f)
	}
	for _, f := range extra {
		delete(out, f)
	}
	return out, nil
}

func passthrough(e Entity) (Entity, error) {
	return e.Clone(), nil
}

// Default returns the five built-in kinds: clients, users, groups, roles,
// and identity_providers, wired with the identity keys, equality rules, and
// dependency edges from the realm's declarative schema. users depend on
// groups; roles depend on clients (a role's containerId names the client it
// scopes to); clients, groups, and identity_providers have no dependencies.
func Default() (*Registry, error) {
	return NewRegistry(
		Descriptor{
			Name:           "clients",
			IdentityFn:     func(e Entity) string { return e.String("clientId") },
			EqualityFn:     equalIgnoring("clientId", "id", "createdTimestamp"),
			EndpointList:   "/admin/realms/{realm}/clients",
			EndpointCreate: "/admin/realms/{realm}/clients",
			Codec: Codec{
				Decode: func(e Entity) (Entity, error) { return stripServerFields(e) },
				Encode: passthrough,
			},
		},
		Descriptor{
			Name:           "groups",
			IdentityFn:     func(e Entity) string { return e.String("name") },
			EqualityFn:     equalIgnoring("name", "id", "path", "subGroups"),
			EndpointList:   "/admin/realms/{realm}/groups",
			EndpointCreate: "/admin/realms/{realm}/groups",
			Codec: Codec{
				Decode: decodeGroup,
				Encode: passthrough,
			},
		},
		Descriptor{
			Name:           "users",
			IdentityFn:     func(e Entity) string { return e.String("username") },
			EqualityFn:     equalIgnoring("username", "id", "createdTimestamp"),
			EndpointList:   "/admin/realms/{realm}/users",
			EndpointCreate: "/admin/realms/{realm}/users",
			DependsOn:      []string{"groups"},
			Codec: Codec{
				Decode: func(e Entity) (Entity, error) { return stripServerFields(e) },
				Encode: passthrough,
			},
		},
		Descriptor{
			Name:           "roles",
			IdentityFn:     func(e Entity) string { return e.String("name") },
			EqualityFn:     equalIgnoring("name", "id", "containerId"),
			EndpointList:   "/admin/realms/{realm}/roles",
			EndpointCreate: "/admin/realms/{realm}/roles",
			DependsOn:      []string{"clients"},
			Codec: Codec{
				Decode: func(e Entity) (Entity, error) { return stripServerFields(e) },
				Encode: passthrough,
			},
		},
		Descriptor{
			Name:           "identity_providers",
			IdentityFn:     func(e Entity) string { return e.String("alias") },
			EqualityFn:     equalIgnoring("alias", "internalId"),
			EndpointList:   "/admin/realms/{realm}/identity-provider/instances",
			EndpointCreate: "/admin/realms/{realm}/identity-provider/instances",
			Codec: Codec{
				Decode: func(e Entity) (Entity, error) { return stripServerFields(e, "internalId") },
				Encode: passthrough,
			},
		},
	)
}

// decodeGroup strips server fields recursively through subGroups, since a
// group's children are nested inline rather than referenced by id.
func decodeGroup(e Entity) (Entity, error) {
	out, err := stripServerFields(e)
	if err != nil {
		return nil, err
	}
	sub, ok := out["subGroups"].([]any)
	if !ok {
		return out, nil
	}
	cleaned := make([]any, 0, len(sub))
	for _, raw := range sub {
		child, ok := raw.(map[string]any)
		if !ok {
			cleaned = append(cleaned, raw)
			continue
		}
		decodedChild, err := decodeGroup(Entity(child))
		if err != nil {
			return nil, err
		}
		cleaned = append(cleaned, map[string]any(decodedChild))
	}
	out["subGroups"] = cleaned
	return out, nil
}

// equalIgnoring compares two entities field-by-field, ignoring the named
// keys (identity and server-assigned fields), and returns the sorted list
// of differing field names when they are not equal.
func equalIgnoring(ignore ...string) EqualityFunc {
	skip := make(map[string]struct{}, len(ignore))
	for _, f := range ignore {
		skip[f] = struct{}{}
	}
	return func(a, b Entity) (bool, []string) {
		var diffs []string
		seen := make(map[string]struct{})
		for k := range a {
			seen[k] = struct{}{}
		}
		for k := range b {
			seen[k] = struct{}{}
		}
		for k := range seen {
			if _, skipped := skip[k]; skipped {
				continue
			}
			av, aok := a[k]
			bv, bok := b[k]
			if aok != bok || !reflect.DeepEqual(av, bv) {
				diffs = append(diffs, k)
			}
		}
		if len(diffs) == 0 {
			return true, nil
		}
		sort.Strings(diffs)
		return false, diffs
	}
}
