package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RemoteProvider resolves sessions against a running console server.
type RemoteProvider struct {
	baseURL    string
	httpClient *http.Client
}

func NewRemoteProvider(baseURL string, timeout time.Duration) *RemoteProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RemoteProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (p *RemoteProvider) Current(ctx context.Context, token string) (*Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	resp, err := p.do(ctx, http.MethodGet, "/api/v1/auth/me", token)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, nil
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read identity response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("identity response status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("parse identity envelope failed: %w", err)
	}
	var who Identity
	if err := json.Unmarshal(env.Data, &who); err != nil {
		return nil, fmt.Errorf("parse identity failed: %w", err)
	}
	if who.UserID == 0 || who.Email == "" {
		return nil, nil
	}
	return &who, nil
}

func (p *RemoteProvider) SignOut(ctx context.Context, token string) error {
	resp, err := p.do(ctx, http.MethodPost, "/api/v1/auth/logout", token)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusUnauthorized {
		return fmt.Errorf("logout response status %d", resp.StatusCode)
	}
	return nil
}

func (p *RemoteProvider) do(ctx context.Context, method, path, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build identity request failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity request failed: %w", err)
	}
	return resp, nil
}
