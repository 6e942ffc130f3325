package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragdesk/internal/identity"
)

type staticProvider struct {
	who      *identity.Identity
	signOuts int
}

func (p *staticProvider) Current(context.Context, string) (*identity.Identity, error) {
	return p.who, nil
}

func (p *staticProvider) SignOut(context.Context, string) error {
	p.signOuts++
	return nil
}

func fakeRAG(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Question string `json:"question"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]string{"answer": "echo: " + body.Question})
	})
	mux.HandleFunc("/api/admin-process-uploads", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		n := len(r.MultipartForm.File["files"])
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "added_chunks": n * 3})
	})
	mux.HandleFunc("/api/info", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, p *staticProvider, stdin string, args ...string) (string, error) {
	t.Helper()
	rag := fakeRAG(t)
	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out, func(string, time.Duration) identity.Provider { return p })
	cmd.SetArgs(append([]string{"--backend", rag.URL, "--admin-email", "admin@example.com", "--token", "tok"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestChatCommand(t *testing.T) {
	p := &staticProvider{who: &identity.Identity{UserID: 2, Email: "reader@example.com"}}

	out, err := run(t, p, "hello\n\n  \nsecond question\n/quit\nignored\n", "chat")

	require.NoError(t, err)
	assert.Contains(t, out, "bot: echo: hello\n")
	assert.Contains(t, out, "bot: echo: second question\n")
	assert.NotContains(t, out, "ignored")
	assert.Equal(t, 2, strings.Count(out, "bot: "))
}

func TestChatCommandRequiresSession(t *testing.T) {
	out, err := run(t, &staticProvider{}, "", "chat")

	assert.ErrorIs(t, err, errNotSignedIn)
	assert.Contains(t, out, "/auth")
}

func TestAdminCommandsDeniedForOrdinaryUser(t *testing.T) {
	p := &staticProvider{who: &identity.Identity{UserID: 2, Email: "reader@example.com"}}

	out, err := run(t, p, "", "admin", "status")

	assert.ErrorIs(t, err, errAccessDenied)
	assert.Contains(t, out, "Access Denied")
}

func TestAdminStatus(t *testing.T) {
	p := &staticProvider{who: &identity.Identity{UserID: 1, Email: "admin@example.com"}}

	out, err := run(t, p, "", "admin", "status")

	require.NoError(t, err)
	assert.Contains(t, out, "Vector Store Status: ready")
	assert.Contains(t, out, "Backend URL: http://127.0.0.1")
}

func TestAdminUpload(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.md")
	require.NoError(t, os.WriteFile(a, []byte("alpha"), 0o600))
	require.NoError(t, os.WriteFile(b, []byte("# beta"), 0o600))
	p := &staticProvider{who: &identity.Identity{UserID: 1, Email: "admin@example.com"}}

	out, err := run(t, p, "", "admin", "upload", a, b)

	require.NoError(t, err)
	assert.Contains(t, out, "2 files ready to upload")
	assert.Contains(t, out, "Successfully processed 2 files. Added 6 chunks.")
	assert.Contains(t, out, "Vector Store Status: ready")
}

func TestAdminUploadMissingFile(t *testing.T) {
	p := &staticProvider{who: &identity.Identity{UserID: 1, Email: "admin@example.com"}}

	_, err := run(t, p, "", "admin", "upload", filepath.Join(t.TempDir(), "missing.pdf"))

	assert.Error(t, err)
}

func TestLogoutCommand(t *testing.T) {
	p := &staticProvider{who: &identity.Identity{UserID: 2, Email: "reader@example.com"}}

	out, err := run(t, p, "", "logout")

	require.NoError(t, err)
	assert.Equal(t, 1, p.signOuts)
	assert.Contains(t, out, "Signed out.")
}
