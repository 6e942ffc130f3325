package identity

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRemote(t *testing.T, handler http.HandlerFunc) *RemoteProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRemoteProvider(srv.URL, 2*time.Second)
}

func TestRemoteCurrent(t *testing.T) {
	p := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/me", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"code":40100,"message":"unauthorized","data":{"redirect":"/auth"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"code":0,"message":"ok","data":{"id":3,"email":"reader@example.com","tier":"ordinary"}}`)
	})

	who, err := p.Current(context.Background(), "good")
	require.NoError(t, err)
	require.NotNil(t, who)
	assert.Equal(t, Identity{UserID: 3, Email: "reader@example.com"}, *who)

	who, err = p.Current(context.Background(), "bad")
	assert.NoError(t, err)
	assert.Nil(t, who)
}

func TestRemoteCurrentEmptyTokenSkipsCall(t *testing.T) {
	called := false
	p := newRemote(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	who, err := p.Current(context.Background(), " ")

	assert.NoError(t, err)
	assert.Nil(t, who)
	assert.False(t, called)
}

func TestRemoteCurrentErrors(t *testing.T) {
	for name, handler := range map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"bad envelope": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `not json`)
		},
	} {
		t.Run(name, func(t *testing.T) {
			p := newRemote(t, handler)
			who, err := p.Current(context.Background(), "token")
			assert.Error(t, err)
			assert.Nil(t, who)
		})
	}
}

func TestRemoteSignOut(t *testing.T) {
	var gotAuth, gotMethod string
	p := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/logout", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		_, _ = io.WriteString(w, `{"code":0,"message":"ok","data":{"redirect":"/auth"}}`)
	})

	require.NoError(t, p.SignOut(context.Background(), "tok"))
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, http.MethodPost, gotMethod)
}

func TestRemoteSignOutFailure(t *testing.T) {
	p := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	assert.Error(t, p.SignOut(context.Background(), "tok"))
}
