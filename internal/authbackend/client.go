// Package authbackend calls the remote authority that can validate
// authorization codes this process did not itself issue.
package authbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrInvalidResponse means the remote accepted the code but its payload
// carried no user identity.
var ErrInvalidResponse = errors.New("invalid response from auth backend")

// RejectedError carries the remote authority's rejection message.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

const exchangePath = "/api/auth/extension/exchange-code"

// Client forwards code-exchange requests to the auth backend. One POST, one
// attempt: an expired or used code does not become valid on retry.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client with the given base URL and request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type exchangeRequest struct {
	AuthCode string `json:"auth_code"`
}

type exchangeResponse struct {
	UserID string `json:"user_id"`
	Error  string `json:"error"`
}

// Exchange forwards the code and returns the user ID the remote resolved it
// to. A *RejectedError means the remote refused the code; ErrInvalidResponse
// means it accepted but answered garbage; any other error is a transport
// failure.
func (c *Client) Exchange(ctx context.Context, authCode string) (string, error) {
	body, err := json.Marshal(exchangeRequest{AuthCode: authCode})
	if err != nil {
		return "", fmt.Errorf("failed to encode exchange request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+exchangePath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("exchange request to auth backend failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var rejection exchangeResponse
		if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
			if decodeErr := json.NewDecoder(resp.Body).Decode(&rejection); decodeErr != nil {
				log.Debug().Err(decodeErr).Int("status", resp.StatusCode).
					Msg("Auth backend rejection body not parseable")
			}
		}
		return "", &RejectedError{Message: rejection.Error}
	}

	var payload exchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		log.Warn().Err(err).Msg("Auth backend returned success with undecodable body")
		return "", ErrInvalidResponse
	}
	if payload.UserID == "" {
		return "", ErrInvalidResponse
	}
	return payload.UserID, nil
}
