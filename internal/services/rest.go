package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// restClient is shared by the HTTP-backed provisioners.
var restClient = &http.Client{Timeout: 30 * time.Second}

func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body any, wantStatus ...int) error {
	if client == nil {
		client = restClient
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	for _, want := range wantStatus {
		if resp.StatusCode == want {
			return nil
		}
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
}

// reachable reports whether the service answers HTTP at all. Any status
// code counts; readiness is about the listener, not authorization.
func reachable(ctx context.Context, client *http.Client, url string) bool {
	if client == nil {
		client = restClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// GitLab creates users through the admin REST API.
type GitLab struct {
	BaseURL string
	// Token is a personal access token of an admin (root) account.
	Token  string
	Client *http.Client
}

// Name implements Provisioner.
func (g *GitLab) Name() string { return "gitlab" }

// Ready implements Provisioner.
func (g *GitLab) Ready(ctx context.Context) bool {
	return reachable(ctx, g.Client, g.BaseURL+"/api/v4/version")
}

// CreateUser implements Provisioner.
func (g *GitLab) CreateUser(ctx context.Context, creds Credentials) error {
	if g.Token == "" {
		return fmt.Errorf("GITLAB_ROOT_TOKEN is not configured")
	}
	return postJSON(ctx, g.Client, g.BaseURL+"/api/v4/users",
		map[string]string{"Authorization": "Bearer " + g.Token},
		map[string]any{
			"username":          creds.Username,
			"password":          creds.Password,
			"email":             creds.Email,
			"name":              creds.Username,
			"skip_confirmation": true,
		},
		http.StatusCreated)
}

// Jellyfin creates users through the server API.
type Jellyfin struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// Name implements Provisioner.
func (j *Jellyfin) Name() string { return "jellyfin" }

// Ready implements Provisioner.
func (j *Jellyfin) Ready(ctx context.Context) bool {
	return reachable(ctx, j.Client, j.BaseURL+"/System/Ping")
}

// CreateUser implements Provisioner.
func (j *Jellyfin) CreateUser(ctx context.Context, creds Credentials) error {
	if j.APIKey == "" {
		return fmt.Errorf("JELLYFIN_API_KEY is not configured")
	}
	return postJSON(ctx, j.Client, j.BaseURL+"/Users/New",
		map[string]string{"Authorization": fmt.Sprintf("MediaBrowser Token=%q", j.APIKey)},
		map[string]any{
			"Name":     creds.Username,
			"Password": creds.Password,
		},
		http.StatusOK)
}

// Vaultwarden creates users through the admin API.
type Vaultwarden struct {
	BaseURL    string
	AdminToken string
	Client     *http.Client
}

// Name implements Provisioner.
func (v *Vaultwarden) Name() string { return "vaultwarden" }

// Ready implements Provisioner.
func (v *Vaultwarden) Ready(ctx context.Context) bool {
	return reachable(ctx, v.Client, v.BaseURL+"/alive")
}

// CreateUser implements Provisioner.
func (v *Vaultwarden) CreateUser(ctx context.Context, creds Credentials) error {
	if v.AdminToken == "" {
		return fmt.Errorf("VAULTWARDEN_ADMIN_TOKEN is not configured")
	}
	return postJSON(ctx, v.Client, v.BaseURL+"/admin/users",
		map[string]string{"Authorization": "Bearer " + v.AdminToken},
		map[string]any{
			"email":    creds.Email,
			"password": creds.Password,
		},
		http.StatusOK, http.StatusCreated)
}
