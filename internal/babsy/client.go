// Package babsy is a client for the Babsy App API, used to accept sitter and
// parent sessions from the Babsy App as a login method.
package babsy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNotConfigured is returned when no API URL or key is set
	ErrNotConfigured = errors.New("babsy app api not configured")
	// ErrInvalidToken is returned when the API rejects the token
	ErrInvalidToken = errors.New("invalid babsy app token")
	// ErrUserNotFound is returned when the API does not know the user
	ErrUserNotFound = errors.New("babsy app user not found")
)

// UserType is the kind of Babsy App account
type UserType string

const (
	UserTypeSitter UserType = "SITTER"
	UserTypeParent UserType = "PARENT"
)

// User is an account as reported by the Babsy App
type User struct {
	ID       string
	Email    string
	Name     string
	Type     UserType
	Verified bool
}

type apiUser struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Type      UserType `json:"type"`
	Verified  bool     `json:"verified"`
}

func (u apiUser) toUser() *User {
	name := u.Name
	if name == "" {
		name = strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	return &User{
		ID:       u.ID,
		Email:    strings.ToLower(strings.TrimSpace(u.Email)),
		Name:     name,
		Type:     u.Type,
		Verified: u.Verified,
	}
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// Configured reports whether the client has an API URL and key
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// VerifyToken exchanges a Babsy App session token for the account it belongs to
func (c *Client) VerifyToken(ctx context.Context, token string) (*User, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/verify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.addAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusBadRequest:
		return nil, ErrInvalidToken
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("babsy app API error: %d - %s", resp.StatusCode, string(msg))
	}

	var result struct {
		User *apiUser `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.User == nil || result.User.ID == "" || result.User.Email == "" {
		return nil, ErrInvalidToken
	}

	return result.User.toUser(), nil
}

// GetUser fetches an account by its Babsy App ID
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/"+userID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.addAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrUserNotFound
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("babsy app API error: %d - %s", resp.StatusCode, string(msg))
	}

	var u apiUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return u.toUser(), nil
}

func (c *Client) addAuthHeader(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
}
