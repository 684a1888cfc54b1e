package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provizor/internal/runner/runnertest"
)

func TestGitLabCreateUser(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/users", r.URL.Path)
		assert.Equal(t, "Bearer glpat-abc", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	gl := &GitLab{BaseURL: srv.URL, Token: "glpat-abc", Client: srv.Client()}
	err := gl.CreateUser(context.Background(), Credentials{
		Username: "alice", Password: "pw", Email: "alice@example.local",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", got["username"])
	assert.Equal(t, "alice@example.local", got["email"])
	assert.Equal(t, true, got["skip_confirmation"])
}

func TestGitLabCreateUserRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"Email has already been taken"}`, http.StatusConflict)
	}))
	defer srv.Close()

	gl := &GitLab{BaseURL: srv.URL, Token: "glpat-abc", Client: srv.Client()}
	err := gl.CreateUser(context.Background(), Credentials{Username: "alice"})
	assert.ErrorContains(t, err, "409")
	assert.ErrorContains(t, err, "already been taken")
}

func TestGitLabRequiresToken(t *testing.T) {
	gl := &GitLab{BaseURL: "http://localhost"}
	err := gl.CreateUser(context.Background(), Credentials{Username: "alice"})
	assert.ErrorContains(t, err, "GITLAB_ROOT_TOKEN")
}

func TestJellyfinCreateUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Users/New", r.URL.Path)
		assert.Equal(t, `MediaBrowser Token="key"`, r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "bob", body["Name"])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	jf := &Jellyfin{BaseURL: srv.URL, APIKey: "key", Client: srv.Client()}
	require.NoError(t, jf.CreateUser(context.Background(), Credentials{Username: "bob", Password: "pw"}))
}

func TestVaultwardenCreateUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/users", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "carol@example.local", body["email"])
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	vw := &Vaultwarden{BaseURL: srv.URL, AdminToken: "tok", Client: srv.Client()}
	require.NoError(t, vw.CreateUser(context.Background(), Credentials{
		Username: "carol", Password: "pw", Email: "carol@example.local",
	}))
}

func TestGitLabReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/version", r.URL.Path)
		http.Error(w, "401 Unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	gl := &GitLab{BaseURL: srv.URL, Client: srv.Client()}
	assert.True(t, gl.Ready(context.Background()),
		"any HTTP answer means the listener is up")

	srv.Close()
	assert.False(t, gl.Ready(context.Background()))
}

func TestVaultwardenReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/alive", r.URL.Path)
	}))
	defer srv.Close()

	vw := &Vaultwarden{BaseURL: srv.URL, Client: srv.Client()}
	assert.True(t, vw.Ready(context.Background()))
}

func TestNextcloudReady(t *testing.T) {
	fake := runnertest.New()
	nc := &Nextcloud{Run: fake, Docker: true}
	assert.True(t, nc.Ready(context.Background()))
	assert.Equal(t,
		"docker exec -u www-data nextcloud php occ status",
		fake.Calls()[0].Spec.String())

	fake.Script("docker exec", runnertest.Response{Err: errors.New("no such container")})
	assert.False(t, nc.Ready(context.Background()))
}

func TestNextcloudDockerCommand(t *testing.T) {
	fake := runnertest.New()
	nc := &Nextcloud{Run: fake, Docker: true}
	require.NoError(t, nc.CreateUser(context.Background(), Credentials{Username: "dave", Password: "pw"}))

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t,
		"docker exec -e OC_PASS -u www-data nextcloud php occ user:add --password-from-env dave",
		calls[0].Spec.String())
	assert.Equal(t, "pw", calls[0].Spec.Env["OC_PASS"],
		"password travels via the environment")
}

func TestNextcloudNixOSCommand(t *testing.T) {
	fake := runnertest.New()
	nc := &Nextcloud{Run: fake, Docker: false}
	require.NoError(t, nc.CreateUser(context.Background(), Credentials{Username: "dave", Password: "pw"}))

	assert.Equal(t,
		"sudo -E -u nextcloud nextcloud-occ user:add --password-from-env dave",
		fake.Calls()[0].Spec.String())
}
