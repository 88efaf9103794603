package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"powdercast/internal/store"
)

// Session is the auth collaborator's view of the current viewer. Roles
// feed access.FromTags; an unauthenticated session means guest.
type Session struct {
	Authenticated bool     `json:"authenticated"`
	Email         string   `json:"email,omitempty"`
	Roles         []string `json:"roles,omitempty"`
}

// AuthClient wraps the magic-link auth collaborator: session check, link
// request, token verify/refresh/logout. It owns the ephemeral token
// store and implements TokenSource for the weather client. It does not
// ride on BaseClient because BaseClient calls back into it on 401.
type AuthClient struct {
	baseURL string
	client  HTTPClient
	tokens  store.KV
	logger  *zap.Logger
}

func NewAuthClient(baseURL string, timeout time.Duration, tokens store.KV, logger *zap.Logger) *AuthClient {
	return &AuthClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		tokens:  tokens,
		logger:  logger,
	}
}

// Session checks the current session. Any auth failure degrades to a
// guest session instead of propagating an error; only transport failures
// are returned.
func (a *AuthClient) Session(ctx context.Context) (*Session, error) {
	if a.AccessToken() == "" {
		return &Session{Authenticated: false}, nil
	}

	var sess Session
	status, err := a.do(ctx, http.MethodGet, "/auth/session", nil, &sess)
	if err != nil {
		return nil, fmt.Errorf("session check failed: %w", err)
	}
	if status == http.StatusUnauthorized {
		// One refresh attempt, then give up and fall back to guest.
		if err := a.Refresh(ctx); err != nil {
			a.Invalidate()
			return &Session{Authenticated: false}, nil
		}
		status, err = a.do(ctx, http.MethodGet, "/auth/session", nil, &sess)
		if err != nil {
			return nil, fmt.Errorf("session check failed: %w", err)
		}
		if status != http.StatusOK {
			a.Invalidate()
			return &Session{Authenticated: false}, nil
		}
	} else if status != http.StatusOK {
		return nil, fmt.Errorf("session check: HTTP %d", status)
	}
	return &sess, nil
}

// RequestMagicLink asks the auth collaborator to mail a sign-in link.
func (a *AuthClient) RequestMagicLink(ctx context.Context, email, redirectPath string) error {
	body := map[string]string{"email": email, "redirectPath": redirectPath}
	status, err := a.do(ctx, http.MethodPost, "/auth/request-link", body, nil)
	if err != nil {
		return fmt.Errorf("magic link request failed: %w", err)
	}
	if status != http.StatusOK && status != http.StatusAccepted {
		return fmt.Errorf("magic link request: HTTP %d", status)
	}
	return nil
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Verify exchanges a magic-link token for a session token pair.
func (a *AuthClient) Verify(ctx context.Context, token string) error {
	var pair tokenPair
	status, err := a.do(ctx, http.MethodPost, "/auth/verify", map[string]string{"token": token}, &pair)
	if err != nil {
		return fmt.Errorf("token verify failed: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("token verify: HTTP %d", status)
	}
	return a.storePair(pair)
}

// Refresh exchanges the stored refresh token for a new pair. Implements
// TokenSource; BaseClient calls this exactly once per 401.
func (a *AuthClient) Refresh(ctx context.Context) error {
	refresh, ok := a.tokens.Get(store.KeyRefreshToken)
	if !ok || refresh == "" {
		return fmt.Errorf("no refresh token stored")
	}

	var pair tokenPair
	status, err := a.do(ctx, http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": refresh}, &pair)
	if err != nil {
		return fmt.Errorf("token refresh failed: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("token refresh: HTTP %d", status)
	}

	a.logger.Debug("Session tokens refreshed")
	return a.storePair(pair)
}

// Logout ends the session upstream and clears the token scope either way.
func (a *AuthClient) Logout(ctx context.Context) error {
	_, err := a.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	a.Invalidate()
	if err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	return nil
}

// AccessToken implements TokenSource.
func (a *AuthClient) AccessToken() string {
	tok, _ := a.tokens.Get(store.KeyAccessToken)
	return tok
}

// Invalidate implements TokenSource: wipes the ephemeral token scope.
func (a *AuthClient) Invalidate() {
	if err := a.tokens.Clear(); err != nil {
		a.logger.Warn("Failed to clear token store", zap.Error(err))
	}
}

func (a *AuthClient) storePair(pair tokenPair) error {
	if pair.AccessToken == "" {
		return fmt.Errorf("auth response carried no access token")
	}
	if err := a.tokens.Set(store.KeyAccessToken, pair.AccessToken); err != nil {
		return err
	}
	if pair.RefreshToken != "" {
		if err := a.tokens.Set(store.KeyRefreshToken, pair.RefreshToken); err != nil {
			return err
		}
	}
	return nil
}

func (a *AuthClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("creating request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := a.AccessToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}

	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
