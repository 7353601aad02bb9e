/*
Package apiclient speaks to the identity provider's REST surface on
behalf of the exporter and importer: client-credentials token
acquisition, introspection before use, and the 401/403 response handling
spec.md mandates.

# Token lifecycle

  - No cached token: authenticate via client_credentials grant.
  - Cached token: introspect before use; a false result discards it and
    triggers one authentication.
  - A 401 from a call invalidates the token and retries the original
    call exactly once.
  - A 403 returns ErrPermissionDenied naming the realm; it is never
    retried.

Refresh is single-flighted via golang.org/x/sync/singleflight so a burst
of concurrent 401s across goroutines produces one authentication call,
not one per caller.

# Usage

	client, err := apiclient.New(apiclient.Config{
		AuthURL: cfg.AuthURL, Realm: cfg.Realm,
		ClientID: cfg.ClientID, ClientSecret: cfg.ClientSecret,
	})
	raw, err := client.Get(ctx, "/admin/realms/{realm}/clients")
*/
package apiclient
