// Package api implements the remote API client: per-collection REST
// endpoints carrying opaque ciphertext envelopes. Plaintext and the
// encryption key never pass through here.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sethvargo/go-retry"
)

// Client is the remote boundary consumed by the sync orchestrator and the
// per-entity services.
type Client interface {
	Ping(ctx context.Context) error
	Create(ctx context.Context, collection string, payload json.RawMessage) error
	Update(ctx context.Context, collection, id string, payload json.RawMessage) error
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string, since time.Time) ([]json.RawMessage, error)
}

// TokenSource supplies the current session token, "" when logged out.
type TokenSource func() string

// HTTPClient talks JSON over REST. Transient failures are retried in-call
// with bounded exponential backoff; what still fails surfaces through the
// RemoteError taxonomy and is handled by the queue's retry policy.
type HTTPClient struct {
	base    *url.URL
	http    *http.Client
	token   TokenSource
	backoff func() retry.Backoff
}

// NewHTTPClient builds a client for baseURL (e.g. "https://api.example.com").
func NewHTTPClient(baseURL string, token TokenSource) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	return &HTTPClient{
		base:  u,
		http:  &http.Client{Timeout: 15 * time.Second},
		token: token,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(2, retry.NewExponential(250*time.Millisecond))
		},
	}, nil
}

// ListResponse is the wire envelope of a delta fetch.
type ListResponse struct {
	Records []json.RawMessage `json:"records"`
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.call(ctx, "ping", "", http.MethodGet, "/health", nil, nil)
}

func (c *HTTPClient) Create(ctx context.Context, collection string, payload json.RawMessage) error {
	return c.call(ctx, "create", collection, http.MethodPost, "/api/"+collection, payload, nil)
}

func (c *HTTPClient) Update(ctx context.Context, collection, id string, payload json.RawMessage) error {
	return c.call(ctx, "update", collection, http.MethodPatch, "/api/"+collection+"/"+url.PathEscape(id), payload, nil)
}

func (c *HTTPClient) Delete(ctx context.Context, collection, id string) error {
	return c.call(ctx, "delete", collection, http.MethodDelete, "/api/"+collection+"/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) List(ctx context.Context, collection string, since time.Time) ([]json.RawMessage, error) {
	path := "/api/" + collection
	if !since.IsZero() {
		path += "?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339Nano))
	}
	var out ListResponse
	if err := c.call(ctx, "list", collection, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

func (c *HTTPClient) call(ctx context.Context, op, collection, method, path string, body json.RawMessage, out any) error {
	if err := c.checkToken(op, collection); err != nil {
		return err
	}

	return retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		err := c.doOnce(ctx, op, collection, method, path, body, out)
		if err == nil {
			return nil
		}
		if re, ok := err.(*RemoteError); ok && re.Kind == ErrRemoteRetryable {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *HTTPClient) doOnce(ctx context.Context, op, collection, method, path string, body json.RawMessage, out any) error {
	u := *c.base
	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("parse path: %w", err)
	}
	target := u.ResolveReference(ref)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &RemoteError{Op: op, Collection: collection, Detail: err.Error(), Kind: ErrRemoteRetryable}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &RemoteError{
			Op:         op,
			Collection: collection,
			Status:     resp.StatusCode,
			Detail:     string(detail),
			Kind:       classify(resp.StatusCode),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &RemoteError{Op: op, Collection: collection, Detail: "decode response: " + err.Error(), Kind: ErrRemoteRetryable}
		}
	}
	return nil
}

// checkToken fails fast on a locally expired session token so an obviously
// doomed request never hits the wire. The signature is not verified here;
// the server remains the authority.
func (c *HTTPClient) checkToken(op, collection string) error {
	token := c.token()
	if token == "" {
		return nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil // opaque tokens are passed through untouched
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if exp.Before(time.Now()) {
		return &RemoteError{Op: op, Collection: collection, Status: http.StatusUnauthorized,
			Detail: "session token expired", Kind: ErrRemoteRejected}
	}
	return nil
}

var _ Client = (*HTTPClient)(nil)
