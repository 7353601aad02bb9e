package orchestrator_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/kvault/pkg/apiclient"
	"github.com/cuemby/kvault/pkg/errs"
	"github.com/cuemby/kvault/pkg/orchestrator"
	"github.com/cuemby/kvault/pkg/schema"
	"github.com/cuemby/kvault/pkg/snapshotmgr"
	"github.com/cuemby/kvault/pkg/storage"
)

func fakeRealmServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/realms/test/protocol/openid-connect/token":
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok"})
		case r.URL.Path == "/realms/test/protocol/openid-connect/token/introspect":
			json.NewEncoder(w).Encode(map[string]bool{"active": true})
		case r.URL.Path == "/admin/realms/test/clients":
			json.NewEncoder(w).Encode([]map[string]string{{"clientId": "app1"}})
		default:
			json.NewEncoder(w).Encode([]map[string]string{})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestOrchestrator(t *testing.T) *orchestrator.Orchestrator {
	t.Helper()
	srv := fakeRealmServer(t)
	client, err := apiclient.New(apiclient.Config{AuthURL: srv.URL, Realm: "test", ClientID: "admin-cli", ClientSecret: "x"})
	require.NoError(t, err)

	registry, err := schema.Default()
	require.NoError(t, err)

	backend, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	services := []snapshotmgr.ServiceConfig{
		{Name: "keycloak", Type: "Serial", Version: "1.0", Priority: 10, Realm: "test", Client: client, Registry: registry},
	}
	mgr, err := snapshotmgr.NewManager(backend, services)
	require.NoError(t, err)

	o, err := orchestrator.New(mgr, services)
	require.NoError(t, err)
	return o
}

func TestNewRejectsCyclicRegistry(t *testing.T) {
	descriptors := []schema.Descriptor{
		{Name: "a", IdentityFn: func(schema.Entity) string { return "" }, DependsOn: []string{"b"}},
		{Name: "b", IdentityFn: func(schema.Entity) string { return "" }, DependsOn: []string{"a"}},
	}
	registry, err := schema.NewRegistry(descriptors...)
	require.NoError(t, err)

	client, err := apiclient.New(apiclient.Config{AuthURL: "http://example.invalid", Realm: "test", ClientID: "x", ClientSecret: "y"})
	require.NoError(t, err)
	backend, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	services := []snapshotmgr.ServiceConfig{{Name: "broken", Client: client, Registry: registry}}
	mgr, err := snapshotmgr.NewManager(backend, services)
	require.NoError(t, err)

	_, err = orchestrator.New(mgr, services)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrCyclicDependency)
}

func TestBackupListInfoRoundTrip(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()

	result, err := o.Backup(ctx, snapshotmgr.BackupRequest{Description: "smoke", ArchiveOnly: true})
	require.NoError(t, err)

	summaries, err := o.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, result.SnapshotID, summaries[0].SnapshotID)

	manifest, err := o.Info(ctx, result.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, "smoke", manifest.Description)
}

func TestPlanAgainstUnchangedRealmIsAllSkips(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()

	result, err := o.Backup(ctx, snapshotmgr.BackupRequest{ArchiveOnly: true})
	require.NoError(t, err)

	plans, err := o.Plan(ctx, result.SnapshotID, nil)
	require.NoError(t, err)
	require.Contains(t, plans, "keycloak")
	for _, kindPlan := range plans["keycloak"].Kinds {
		for _, action := range kindPlan.Actions {
			assert.Equal(t, "skip", string(action.Type))
		}
	}
}
