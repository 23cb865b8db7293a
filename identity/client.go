package identity

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// PublicProfile is the subset of the identity service's user record that
// gets attached to conversation listings.
type PublicProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// Client fetches public profiles from the external identity service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client against IDENTITY_API_URL (the platform API
// that issues the bearer tokens this service validates).
func NewClient() *Client {
	baseURL := os.Getenv("IDENTITY_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8000/api/v1"
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 3 * time.Second},
	}
}

// GetProfile fetches a user's public profile, forwarding the caller's
// bearer token. Callers treat failures as non-fatal: conversation
// listings are returned without hydration when the identity service is
// unreachable.
func (c *Client) GetProfile(userID, bearerToken string) (*PublicProfile, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/auth/%s", c.baseURL, userID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+bearerToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity service returned %d for user %s", resp.StatusCode, userID)
	}

	var profile PublicProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
