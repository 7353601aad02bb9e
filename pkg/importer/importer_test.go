package importer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/kvault/pkg/apiclient"
	"github.com/cuemby/kvault/pkg/importer"
	"github.com/cuemby/kvault/pkg/planner"
	"github.com/cuemby/kvault/pkg/schema"
	"github.com/cuemby/kvault/pkg/types"
)

func testClient(t *testing.T, roleStatus int) *apiclient.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/realms/test/protocol/openid-connect/token":
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok"})
		case r.URL.Path == "/realms/test/protocol/openid-connect/token/introspect":
			json.NewEncoder(w).Encode(map[string]bool{"active": true})
		case r.URL.Path == "/admin/realms/test/clients":
			w.WriteHeader(http.StatusCreated)
		case r.URL.Path == "/admin/realms/test/roles":
			w.WriteHeader(roleStatus)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	client, err := apiclient.New(apiclient.Config{AuthURL: srv.URL, Realm: "test", ClientID: "admin-cli", ClientSecret: "x"})
	require.NoError(t, err)
	return client
}

func TestImportCreatesEntities(t *testing.T) {
	client := testClient(t, http.StatusCreated)
	registry, err := schema.Default()
	require.NoError(t, err)
	order, err := planner.Order(registry)
	require.NoError(t, err)

	artifacts := map[string]types.Artifact{
		"clients": {Result: []map[string]any{{"clientId": "app1"}}},
		"roles":   {Result: []map[string]any{{"name": "viewer"}}},
	}

	report := importer.Import(context.Background(), client, "test", order, artifacts, registry)
	assert.Equal(t, 1, report.Kinds["clients"].Created)
	assert.Equal(t, 1, report.Kinds["roles"].Created)
}

func TestImportSkipsDependentsOnKindFailure(t *testing.T) {
	registry, err := schema.NewRegistry(
		schema.Descriptor{Name: "clients", EndpointCreate: "/admin/realms/{realm}/clients", IdentityFn: func(e schema.Entity) string { return e.String("clientId") }},
		schema.Descriptor{Name: "roles", EndpointCreate: "/admin/realms/{realm}/roles", DependsOn: []string{"clients"}, IdentityFn: func(e schema.Entity) string { return e.String("name") }},
	)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/realms/test/protocol/openid-connect/token":
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok"})
		case r.URL.Path == "/realms/test/protocol/openid-connect/token/introspect":
			json.NewEncoder(w).Encode(map[string]bool{"active": true})
		case r.URL.Path == "/admin/realms/test/clients":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	failingClient, err := apiclient.New(apiclient.Config{AuthURL: srv.URL, Realm: "test", ClientID: "admin-cli", ClientSecret: "x"})
	require.NoError(t, err)

	order, err := planner.Order(registry)
	require.NoError(t, err)

	artifacts := map[string]types.Artifact{
		"clients": {Result: []map[string]any{{"clientId": "app1"}}},
		"roles":   {Result: []map[string]any{{"name": "viewer"}}},
	}

	report := importer.Import(context.Background(), failingClient, "test", order, artifacts, registry)
	assert.Equal(t, 1, report.Kinds["clients"].Failed)
	assert.Equal(t, 1, report.Kinds["roles"].Skipped)
	assert.Contains(t, report.Kinds["roles"].Reason, "clients")
}
