/*
Package schema declares the realm's entity kinds and builds the registry
every other kvault component reads from: identity keys, equality rules,
wire paths, dependency edges, and the decode/encode codec per kind.

Default returns the five built-in kinds (clients, users, groups, roles,
identity_providers) wired with the dependency edges the realm actually
has: users depend on groups, roles depend on clients. The registry is
immutable once built — NewRegistry validates names and dependency edges
up front and returns an error rather than a registry that could be
mutated later.
*/
package schema
