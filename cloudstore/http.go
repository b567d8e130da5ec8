// Copyright 2026 Bizledger Labs
// SPDX-License-Identifier: Apache-2.0

package cloudstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPClient talks to a cloudserver instance over its REST surface. The
// tenant is carried by the JWT, so the token supplied by Token must match the
// tenant passed to Collection.
type HTTPClient struct {
	BaseURL string
	Token   func(ctx context.Context) (string, error) // returns a bearer JWT
	HTTP    *http.Client
}

// NewHTTPClient creates a cloud store client for the given server base URL.
func NewHTTPClient(baseURL string, token func(ctx context.Context) (string, error)) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Collection returns a collection handle. tenantID is informational on this
// implementation; the server derives the tenant from the JWT subject.
func (c *HTTPClient) Collection(tenantID, name string) Collection {
	return &httpCollection{client: c, name: name}
}

type httpCollection struct {
	client *HTTPClient
	name   string
}

type listResponse struct {
	Documents []Doc `json:"documents"`
}

func (h *httpCollection) GetAll(ctx context.Context) ([]Doc, error) {
	body, err := h.client.do(ctx, http.MethodGet, h.collectionPath(), nil)
	if err != nil {
		return nil, err
	}
	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode list response: %w", err)
	}
	return resp.Documents, nil
}

func (h *httpCollection) SetMerge(ctx context.Context, key string, patch any) error {
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to marshal patch for %s: %w", key, err)
	}
	_, err = h.client.do(ctx, http.MethodPut, h.docPath(key), data)
	return err
}

func (h *httpCollection) Delete(ctx context.Context, key string) error {
	_, err := h.client.do(ctx, http.MethodDelete, h.docPath(key), nil)
	return err
}

func (h *httpCollection) collectionPath() string {
	return "/v1/collections/" + url.PathEscape(h.name)
}

func (h *httpCollection) docPath(key string) string {
	return h.collectionPath() + "/" + url.PathEscape(key)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	token, err := c.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get bearer token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
