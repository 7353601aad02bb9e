// Package apiclient is an authenticated REST client against the identity
// provider: token acquisition and introspection, 401 retry, and 403
// classification, on behalf of the exporter and importer.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cuemby/kvault/pkg/errs"
)

// Config configures a Client.
type Config struct {
	AuthURL      string
	Realm        string
	ClientID     string
	ClientSecret string
	VerifySSL    bool
	Timeout      time.Duration
}

const defaultTimeout = 30 * time.Second

// Client is safe for concurrent use; token refresh is single-flighted so a
// burst of parallel 401s triggers exactly one re-authentication.
type Client struct {
	httpClient *http.Client
	cfg        Config

	mu    sync.Mutex
	token *token

	refreshGroup singleflight.Group
}

type token struct {
	accessToken string
}

// New constructs a Client from cfg, applying the default 30s per-request
// timeout when none is configured.
func New(cfg Config) (*Client, error) {
	if cfg.AuthURL == "" || cfg.Realm == "" || cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: apiclient requires auth_url, realm, client_id", errs.ErrConfig)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
	}, nil
}

// Get issues an authenticated GET against path, with {realm} substituted,
// and decodes the JSON response body.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.doWithRetry(ctx, http.MethodGet, path, nil)
}

// Post issues an authenticated POST with a JSON body against path.
func (c *Client) Post(ctx context.Context, path string, body any) error {
	_, err := c.doWithRetry(ctx, http.MethodPost, path, body)
	return err
}

func (c *Client) doWithRetry(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	tok, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	raw, status, err := c.do(ctx, method, path, body, tok)
	if err == nil {
		return raw, nil
	}
	if status != http.StatusUnauthorized {
		return nil, err
	}

	c.invalidateToken()
	tok, err = c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}
	raw, _, err = c.do(ctx, method, path, body, tok)
	return raw, err
}

func (c *Client) do(ctx context.Context, method, path string, body any, tok *token) (json.RawMessage, int, error) {
	fullURL := c.resolveURL(path)

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: encoding request body: %v", errs.ErrInvalidEntity, err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errs.ErrTransport, err)
	}
	req.Header.Set("Authorization", "Bearer "+tok.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, fmt.Errorf("%w: %v", errs.ErrCanceled, err)
		}
		return nil, 0, fmt.Errorf("%w: %v", errs.ErrTransport, err)
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil && method == http.MethodGet {
			return nil, resp.StatusCode, fmt.Errorf("%w: decoding response: %v", errs.ErrTransport, err)
		}
		return raw, resp.StatusCode, nil
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return nil, resp.StatusCode, fmt.Errorf("%w: unauthorized", errs.ErrTransport)
	case http.StatusForbidden:
		return nil, resp.StatusCode, fmt.Errorf(
			"%w: realm %q denied access; grant the client's service account the required realm-management roles",
			errs.ErrPermissionDenied, c.cfg.Realm,
		)
	case http.StatusConflict:
		return nil, resp.StatusCode, fmt.Errorf("%w: %s", errs.ErrAlreadyExists, path)
	case http.StatusNotFound:
		return nil, resp.StatusCode, fmt.Errorf("%w: %s", errs.ErrNotFound, path)
	default:
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, resp.StatusCode, fmt.Errorf("%w: status %d from %s", errs.ErrInvalidEntity, resp.StatusCode, path)
		}
		return nil, resp.StatusCode, fmt.Errorf("%w: status %d from %s", errs.ErrTransport, resp.StatusCode, path)
	}
}

func (c *Client) resolveURL(path string) string {
	path = strings.ReplaceAll(path, "{realm}", c.cfg.Realm)
	return strings.TrimRight(c.cfg.AuthURL, "/") + path
}

// ensureToken returns the cached token after confirming it is still active,
// acquiring a fresh one when absent or inactive. Concurrent callers share a
// single in-flight refresh.
func (c *Client) ensureToken(ctx context.Context) (*token, error) {
	c.mu.Lock()
	cached := c.token
	c.mu.Unlock()

	if cached != nil {
		active, err := c.introspect(ctx, cached)
		if err != nil {
			return nil, err
		}
		if active {
			return cached, nil
		}
	}

	result, err, _ := c.refreshGroup.Do("token", func() (any, error) {
		return c.authenticate(ctx)
	})
	if err != nil {
		return nil, err
	}
	tok := result.(*token)

	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
	return tok, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
}

func (c *Client) authenticate(ctx context.Context) (*token, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	endpoint := c.resolveURL(fmt.Sprintf("/realms/%s/protocol/openid-connect/token", c.cfg.Realm))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: authentication failed with status %d", errs.ErrTransport, resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding token response: %v", errs.ErrTransport, err)
	}
	return &token{accessToken: body.AccessToken}, nil
}

func (c *Client) introspect(ctx context.Context, tok *token) (bool, error) {
	form := url.Values{"token": {tok.accessToken}}
	endpoint := c.resolveURL(fmt.Sprintf("/realms/%s/protocol/openid-connect/token/introspect", c.cfg.Realm))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("%w: %v", errs.ErrTransport, err)
	}
	req.Header.Set("Authorization", "Bearer "+tok.accessToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", errs.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}

	var body struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("%w: decoding introspection response: %v", errs.ErrTransport, err)
	}
	return body.Active, nil
}
