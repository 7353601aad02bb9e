package snapshotmgr_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/kvault/pkg/apiclient"
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
		case r.URL.Path == "/admin/realms/test/groups":
			json.NewEncoder(w).Encode([]map[string]string{})
		case r.URL.Path == "/admin/realms/test/users":
			json.NewEncoder(w).Encode([]map[string]string{})
		case r.URL.Path == "/admin/realms/test/roles":
			json.NewEncoder(w).Encode([]map[string]string{{"name": "viewer", "containerId": "app1"}})
		case r.URL.Path == "/admin/realms/test/identity-provider/instances":
			json.NewEncoder(w).Encode([]map[string]string{})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestManager(t *testing.T) (*snapshotmgr.Manager, *storage.Local) {
	t.Helper()
	srv := fakeRealmServer(t)
	client, err := apiclient.New(apiclient.Config{AuthURL: srv.URL, Realm: "test", ClientID: "admin-cli", ClientSecret: "x"})
	require.NoError(t, err)

	registry, err := schema.Default()
	require.NoError(t, err)

	backend, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	mgr, err := snapshotmgr.NewManager(backend, []snapshotmgr.ServiceConfig{
		{Name: "keycloak", Type: "Serial", Version: "1.0", Priority: 10, Realm: "test", Client: client, Registry: registry},
	})
	require.NoError(t, err)
	return mgr, backend
}

func TestBackupWritesManifest(t *testing.T) {
	mgr, _ := newTestManager(t)

	result, err := mgr.Backup(context.Background(), snapshotmgr.BackupRequest{Description: "nightly", ArchiveOnly: true})
	require.NoError(t, err)
	assert.False(t, result.Degraded)
	assert.NotEmpty(t, result.SnapshotID)

	manifest, err := mgr.Get(context.Background(), result.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, "nightly", manifest.Description)
	assert.Contains(t, manifest.Services, "keycloak")
	assert.Contains(t, manifest.Services["keycloak"].Data, "clients")
}

func TestBackupArchiveOnlyFalseReturnsDataInlineWithoutWriting(t *testing.T) {
	mgr, backend := newTestManager(t)

	result, err := mgr.Backup(context.Background(), snapshotmgr.BackupRequest{Description: "inline"})
	require.NoError(t, err)
	assert.Empty(t, result.MetadataKey)
	require.Contains(t, result.Artifacts, "keycloak")
	assert.Contains(t, result.Artifacts["keycloak"], "clients")

	keys, err := backend.List(context.Background(), "", "")
	require.NoError(t, err)
	assert.Empty(t, keys, "archive_only=false must not write anything to the backend")

	_, err = mgr.Get(context.Background(), result.SnapshotID)
	assert.Error(t, err, "no manifest was ever written for this snapshot id")
}

func TestBackupThenListIncludesSummary(t *testing.T) {
	mgr, _ := newTestManager(t)

	result, err := mgr.Backup(context.Background(), snapshotmgr.BackupRequest{ArchiveOnly: true})
	require.NoError(t, err)

	summaries, err := mgr.List(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, result.SnapshotID, summaries[0].SnapshotID)
}

func TestRestorePlanProducesNoActionsAgainstIdenticalRealm(t *testing.T) {
	mgr, _ := newTestManager(t)

	result, err := mgr.Backup(context.Background(), snapshotmgr.BackupRequest{ArchiveOnly: true})
	require.NoError(t, err)

	_, plan, err := mgr.Restore(context.Background(), snapshotmgr.RestoreRequest{SnapshotID: result.SnapshotID, Plan: true})
	require.NoError(t, err)
	require.Contains(t, plan.Plans, "keycloak")

	for _, kindPlan := range plan.Plans["keycloak"].Kinds {
		for _, action := range kindPlan.Actions {
			assert.Equalf(t, "skip", string(action.Type), "kind %s identity %s", kindPlan.Kind, action.Identity)
		}
	}
}

func TestRestoreImportsIntoEmptyRealm(t *testing.T) {
	mgr, _ := newTestManager(t)

	result, err := mgr.Backup(context.Background(), snapshotmgr.BackupRequest{ArchiveOnly: true})
	require.NoError(t, err)

	restoreResult, _, err := mgr.Restore(context.Background(), snapshotmgr.RestoreRequest{SnapshotID: result.SnapshotID})
	require.NoError(t, err)
	require.Contains(t, restoreResult.Reports, "keycloak")
	assert.Equal(t, 1, restoreResult.Reports["keycloak"].Kinds["clients"].Created)
}
