// Package dropbox implements domain.Backend against the Dropbox API v2
// RPC and content endpoints.
package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"dbxmcp/internal/domain"
)

const (
	defaultAPIBase     = "https://api.dropboxapi.com"
	defaultContentBase = "https://content.dropboxapi.com"

	// Refreshed bearer tokens are renewed this long before they expire.
	tokenExpirySlack = 30 * time.Second
)

type Options struct {
	// AccessToken is a long-lived token used as-is.
	AccessToken string

	// RefreshToken plus AppKey/AppSecret enable short-lived tokens with
	// automatic refresh; when all three are set they take precedence over
	// AccessToken.
	RefreshToken string
	AppKey       string
	AppSecret    string

	HTTPClient *http.Client
	Logger     *zap.Logger

	// APIBase and ContentBase override the Dropbox endpoints, for tests
	// and API-compatible stand-ins.
	APIBase     string
	ContentBase string
}

type Client struct {
	httpClient  *http.Client
	logger      *zap.Logger
	apiBase     string
	contentBase string

	accessToken  string
	refreshToken string
	appKey       string
	appSecret    string

	mu     sync.Mutex
	bearer string
	expiry time.Time
}

func New(opts Options) (*Client, error) {
	hasRefresh := opts.RefreshToken != "" && opts.AppKey != "" && opts.AppSecret != ""
	if !hasRefresh && opts.AccessToken == "" {
		return nil, errors.New("no dropbox credentials configured")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	apiBase := opts.APIBase
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	contentBase := opts.ContentBase
	if contentBase == "" {
		contentBase = defaultContentBase
	}

	client := &Client{
		httpClient:  httpClient,
		logger:      logger.Named("dropbox"),
		apiBase:     apiBase,
		contentBase: contentBase,
	}
	if hasRefresh {
		client.refreshToken = opts.RefreshToken
		client.appKey = opts.AppKey
		client.appSecret = opts.AppSecret
	} else {
		client.accessToken = opts.AccessToken
	}
	return client, nil
}

// token returns a usable bearer token, exchanging the refresh token for a
// short-lived one (memoized until shortly before expiry) when configured.
func (c *Client) token(ctx context.Context) (string, error) {
	if c.refreshToken == "" {
		return c.accessToken, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bearer != "" && time.Now().Before(c.expiry.Add(-tokenExpirySlack)) {
		return c.bearer, nil
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {c.refreshToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", domain.BackendFault(domain.FaultOther, "oauth2/token", "", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.appKey, c.appSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.BackendFault(domain.FaultOther, "oauth2/token", "", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.BackendFault(domain.FaultOther, "oauth2/token", "", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", domain.BackendFault(domain.FaultAuth, "oauth2/token",
			fmt.Sprintf("token refresh failed: %s: %s", resp.Status, strings.TrimSpace(string(body))), nil)
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &token); err != nil {
		return "", domain.BackendFault(domain.FaultOther, "oauth2/token", "decode token response", err)
	}
	if token.AccessToken == "" {
		return "", domain.BackendFault(domain.FaultAuth, "oauth2/token", "token refresh returned no access token", nil)
	}

	c.bearer = token.AccessToken
	c.expiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	c.logger.Debug("access token refreshed", zap.Time("expiry", c.expiry))
	return c.bearer, nil
}

// rpc performs one call against an api.dropboxapi.com RPC endpoint.
// params == nil sends the JSON null body those endpoints expect.
func (c *Client) rpc(ctx context.Context, endpoint string, params, out any) error {
	payload := []byte("null")
	if params != nil {
		var err error
		payload, err = json.Marshal(params)
		if err != nil {
			return domain.BackendFault(domain.FaultOther, endpoint, "encode request", err)
		}
	}

	bearer, err := c.token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/2/"+endpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.BackendFault(domain.FaultOther, endpoint, "", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.BackendFault(domain.FaultOther, endpoint, "", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.BackendFault(domain.FaultOther, endpoint, "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return apiError(endpoint, resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return domain.BackendFault(domain.FaultOther, endpoint, "decode response", err)
	}
	return nil
}

// contentDownload calls a content.dropboxapi.com download-style endpoint:
// the argument travels in the Dropbox-API-Arg header, file bytes come
// back in the body and metadata in the Dropbox-API-Result header.
func (c *Client) contentDownload(ctx context.Context, endpoint string, arg any) ([]byte, []byte, error) {
	argJSON, err := json.Marshal(arg)
	if err != nil {
		return nil, nil, domain.BackendFault(domain.FaultOther, endpoint, "encode request", err)
	}

	bearer, err := c.token(ctx)
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.contentBase+"/2/"+endpoint, nil)
	if err != nil {
		return nil, nil, domain.BackendFault(domain.FaultOther, endpoint, "", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Dropbox-API-Arg", string(argJSON))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, domain.BackendFault(domain.FaultOther, endpoint, "", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, domain.BackendFault(domain.FaultOther, endpoint, "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, apiError(endpoint, resp.StatusCode, body)
	}
	return []byte(resp.Header.Get("Dropbox-API-Result")), body, nil
}

// contentUpload calls a content.dropboxapi.com upload-style endpoint with
// raw bytes as the body.
func (c *Client) contentUpload(ctx context.Context, endpoint string, arg any, data []byte, out any) error {
	argJSON, err := json.Marshal(arg)
	if err != nil {
		return domain.BackendFault(domain.FaultOther, endpoint, "encode request", err)
	}

	bearer, err := c.token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.contentBase+"/2/"+endpoint, bytes.NewReader(data))
	if err != nil {
		return domain.BackendFault(domain.FaultOther, endpoint, "", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Dropbox-API-Arg", string(argJSON))
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.BackendFault(domain.FaultOther, endpoint, "", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.BackendFault(domain.FaultOther, endpoint, "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return apiError(endpoint, resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return domain.BackendFault(domain.FaultOther, endpoint, "decode response", err)
	}
	return nil
}

var _ domain.Backend = (*Client)(nil)
