// Package directory is the HTTP client for the managed user-directory
// service. The directory owns credential storage and user attributes; this
// client only exposes what the authorization core needs.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/relaychat/auth-service/domain"
)

// Client talks to the directory service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a directory client. httpClient may carry timeouts and
// instrumentation; callers own that policy.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

type resolveRequest struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type resolveResponse struct {
	UserID string `json:"user_id"`
}

// ResolveOrCreateUser implements domain.Directory.
func (c *Client) ResolveOrCreateUser(ctx context.Context, input domain.LoginInput) (string, error) {
	var req resolveRequest
	switch v := input.(type) {
	case domain.EmailAddress:
		req.Email = string(v)
	case domain.PhoneNumber:
		req.Phone = string(v)
	default:
		return "", fmt.Errorf("unsupported login input %T", input)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal directory request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/users/resolve", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build directory request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	var body resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode directory response: %w", err)
	}
	if body.UserID == "" {
		return "", fmt.Errorf("directory returned no user id")
	}
	return body.UserID, nil
}

var _ domain.Directory = (*Client)(nil)
