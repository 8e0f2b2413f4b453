package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/complyhub/platform/pkg/tokens"
)

// ErrUnavailable means the auth service could not give an answer. Callers
// should treat it as retriable, unlike tokens.ErrInvalidToken.
var ErrUnavailable = errors.New("authentication service unavailable")

// ErrInvalidToken is returned when the auth service rejects the token.
var ErrInvalidToken = tokens.ErrInvalidToken

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(authServiceURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(authServiceURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type verifyResponse struct {
	Code    int                  `json:"code"`
	Message string               `json:"message"`
	Data    *tokens.AccessClaims `json:"data"`
}

// Verify asks the auth service to validate an access token.
func (c *Client) Verify(ctx context.Context, accessToken string) (*tokens.AccessClaims, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/verify", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrInvalidToken
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: verify returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var result verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}
	if result.Data == nil || result.Data.UserID == "" {
		return nil, fmt.Errorf("%w: verify response without claims", ErrUnavailable)
	}
	return result.Data, nil
}
