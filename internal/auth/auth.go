// Package auth provides brokerage credentials and session lifecycle.
//
// Credentials come from the environment (optionally a .env file). The Session
// is created once, shared read-only by all components, and destroyed by the
// caller that created it.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables holding the login credentials.
const (
	EnvUsername = "TASTY_USERNAME"
	EnvPassword = "TASTY_PASSWORD"
)

// Credentials holds the opaque identity/secret pair for session login.
// Never persisted.
type Credentials struct {
	Username string
	Password string
}

// LoadCredentials reads credentials from the environment. A .env file in the
// working directory is loaded first if present.
func LoadCredentials() (*Credentials, error) {
	// Best effort; absence of a .env file is fine.
	_ = godotenv.Load()

	username := os.Getenv(EnvUsername)
	password := os.Getenv(EnvPassword)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%s and %s must be set", EnvUsername, EnvPassword)
	}

	return &Credentials{Username: username, Password: password}, nil
}

// Session is an authenticated handle to the brokerage API.
type Session struct {
	Username string
	Token    string

	baseURL    string
	httpClient *http.Client
	valid      bool
}

type sessionRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Data struct {
		SessionToken string `json:"session-token"`
		User         struct {
			Email string `json:"email"`
		} `json:"user"`
	} `json:"data"`
}

// Login authenticates against the brokerage and returns a validated Session.
func Login(ctx context.Context, baseURL string, creds *Credentials) (*Session, error) {
	body, err := json.Marshal(sessionRequest{
		Login:    creds.Username,
		Password: creds.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal session request: %w", err)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do session request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("session login failed: status %d", resp.StatusCode)
	}

	var decoded sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode session response: %w", err)
	}
	if decoded.Data.SessionToken == "" {
		return nil, fmt.Errorf("session response missing token")
	}

	return &Session{
		Username:   creds.Username,
		Token:      decoded.Data.SessionToken,
		baseURL:    baseURL,
		httpClient: httpClient,
		valid:      true,
	}, nil
}

// IsValid reports whether the session is usable.
func (s *Session) IsValid() bool {
	return s != nil && s.valid && s.Token != ""
}

// Validate confirms the session token with the brokerage.
func (s *Session) Validate(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/sessions/validate", nil)
	if err != nil {
		return fmt.Errorf("create validate request: %w", err)
	}
	req.Header.Set("Authorization", s.Token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do validate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		s.valid = false
		return fmt.Errorf("session validation failed: status %d", resp.StatusCode)
	}

	s.valid = true
	return nil
}

// Destroy invalidates the session with the brokerage. The session is unusable
// afterwards regardless of the result.
func (s *Session) Destroy(ctx context.Context) error {
	s.valid = false

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.baseURL+"/sessions", nil)
	if err != nil {
		return fmt.Errorf("create destroy request: %w", err)
	}
	req.Header.Set("Authorization", s.Token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do destroy request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("session destroy failed: status %d", resp.StatusCode)
	}

	return nil
}
