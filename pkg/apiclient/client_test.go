package apiclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/kvault/pkg/apiclient"
	"github.com/cuemby/kvault/pkg/errs"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*apiclient.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := apiclient.New(apiclient.Config{
		AuthURL:      srv.URL,
		Realm:        "test",
		ClientID:     "admin-cli",
		ClientSecret: "secret",
	})
	require.NoError(t, err)
	return client, srv
}

func TestClientGetAuthenticatesThenFetches(t *testing.T) {
	var tokenRequests int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/realms/test/protocol/openid-connect/token":
			atomic.AddInt32(&tokenRequests, 1)
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-1"})
		case r.URL.Path == "/realms/test/protocol/openid-connect/token/introspect":
			json.NewEncoder(w).Encode(map[string]bool{"active": true})
		case r.URL.Path == "/admin/realms/test/clients":
			json.NewEncoder(w).Encode([]map[string]string{{"clientId": "app1"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	raw, err := client.Get(context.Background(), "/admin/realms/{realm}/clients")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "app1")
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenRequests))
}

func TestClientRetriesOnceOn401(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/realms/test/protocol/openid-connect/token":
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok"})
		case r.URL.Path == "/realms/test/protocol/openid-connect/token/introspect":
			json.NewEncoder(w).Encode(map[string]bool{"active": true})
		case r.URL.Path == "/admin/realms/test/clients":
			n := atomic.AddInt32(&calls, 1)
			if n == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode([]map[string]string{{"clientId": "app1"}})
		}
	})

	raw, err := client.Get(context.Background(), "/admin/realms/{realm}/clients")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "app1")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClientForbiddenIsPermissionDenied(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/realms/test/protocol/openid-connect/token":
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok"})
		case r.URL.Path == "/realms/test/protocol/openid-connect/token/introspect":
			json.NewEncoder(w).Encode(map[string]bool{"active": true})
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	})

	_, err := client.Get(context.Background(), "/admin/realms/{realm}/clients")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrPermissionDenied)
	assert.Contains(t, err.Error(), "test")
}
