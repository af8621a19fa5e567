// Package authclient lets other services rotate and revoke sessions through the HTTP API.
package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// RefreshCookieName is the cookie the server reads the refresh token from.
const RefreshCookieName = "jwt"

// ErrRejected is returned when the server answers a refresh with 401 or 403.
var ErrRejected = errors.New("refresh rejected")

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type RefreshResponse struct {
	AccessToken  string
	RefreshToken string
	RefreshExp   time.Time
}

type apiError struct {
	Message string `json:"message"`
}

// RefreshTokens exchanges refreshToken for a new pair. The old token is dead afterwards.
func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	resp, err := c.post(ctx, "/api/auth/refresh", refreshToken)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var body struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := &RefreshResponse{AccessToken: body.AccessToken}
	for _, ck := range resp.Cookies() {
		if ck.Name == RefreshCookieName {
			out.RefreshToken = ck.Value
			if ck.MaxAge > 0 {
				out.RefreshExp = time.Now().Add(time.Duration(ck.MaxAge) * time.Second)
			}
		}
	}
	if out.AccessToken == "" || out.RefreshToken == "" {
		return nil, errors.New("refresh response missing tokens")
	}
	return out, nil
}

// Logout revokes refreshToken. Revoking an unknown token succeeds.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	resp, err := c.post(ctx, "/api/auth/logout", refreshToken)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, refreshToken string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if refreshToken != "" {
		req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: refreshToken})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	var body apiError
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %d %s", ErrRejected, resp.StatusCode, body.Message)
	}
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body.Message)
}
