package console

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ragdesk/internal/identity"
)

func authorized(id uint, email string, tier Tier) Decision {
	return Decision{
		Outcome:  OutcomeAuthorized,
		Identity: &identity.Identity{UserID: id, Email: email},
		Tier:     tier,
	}
}

func TestRegistryKeepsOneConsolePerIdentity(t *testing.T) {
	r := NewRegistry(&fakeBackend{}, Options{}, nil, zap.NewNop())
	alice := identity.Identity{UserID: 1, Email: "alice@example.com"}
	bob := identity.Identity{UserID: 2, Email: "bob@example.com"}

	a1 := r.Get(alice)
	a2 := r.Get(alice)
	b := r.Get(bob)

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
	assert.Equal(t, 2, r.Len())

	require.True(t, a1.Chat.SubmitQuestion(context.Background(), "hi"))
	assert.Len(t, a2.Chat.Turns(), 2)
	assert.Empty(t, b.Chat.Turns())
}

func TestRegistryEnterFetchesStatusForPrivilegedView(t *testing.T) {
	api := &fakeBackend{}
	r := NewRegistry(api, Options{BackendBaseURL: "http://rag:9000"}, nil, nil)

	con, ok := r.Enter(context.Background(), authorized(1, adminAddress, TierPrivileged), ViewAdmin)

	require.True(t, ok)
	assert.Equal(t, int32(1), api.infoCalls.Load())
	assert.Equal(t, &IndexStatus{Status: "ready", BackendEndpoint: "http://rag:9000"}, con.Ingest.Info())
	assert.Equal(t, adminAddress, con.Identity.Email)
}

func TestRegistryEnterChatSkipsStatus(t *testing.T) {
	api := &fakeBackend{}
	r := NewRegistry(api, Options{}, nil, nil)

	con, ok := r.Enter(context.Background(), authorized(2, "user@example.com", TierOrdinary), ViewChat)

	require.True(t, ok)
	require.NotNil(t, con)
	assert.Equal(t, int32(0), api.infoCalls.Load())
}

func TestRegistryEnterRejectsUnauthorized(t *testing.T) {
	api := &fakeBackend{}
	r := NewRegistry(api, Options{}, nil, nil)

	for _, d := range []Decision{
		{Outcome: OutcomeUnauthenticated, Redirect: DefaultLoginPath},
		{Outcome: OutcomeForbidden, Identity: &identity.Identity{UserID: 2, Email: "user@example.com"}},
		{Outcome: OutcomeAuthorized},
	} {
		con, ok := r.Enter(context.Background(), d, ViewAdmin)
		assert.False(t, ok)
		assert.Nil(t, con)
	}
	assert.Zero(t, r.Len())
	assert.Equal(t, int32(0), api.infoCalls.Load())
}

func TestRegistryDrop(t *testing.T) {
	r := NewRegistry(&fakeBackend{}, Options{}, nil, nil)
	who := identity.Identity{UserID: 7, Email: "x@example.com"}
	first := r.Get(who)

	r.Drop(who)

	assert.Zero(t, r.Len())
	assert.NotSame(t, first, r.Get(who))
}

func TestRegistryWiresOptionsIntoConsole(t *testing.T) {
	sink := &recordingSink{}
	r := NewRegistry(&fakeBackend{}, Options{ClearSelectionOnSuccess: true}, sink, nil)
	con := r.Get(identity.Identity{UserID: 1, Email: adminAddress})
	con.Ingest.SelectFiles(testFiles("a.pdf"))

	require.True(t, con.Ingest.SubmitBatch(context.Background()))

	assert.Empty(t, con.Ingest.Selection())
	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, adminAddress, events[0].Actor)
	assert.Equal(t, DefaultBackendURL, con.Ingest.Info().BackendEndpoint)
}

func TestOptionsBackendURL(t *testing.T) {
	assert.Equal(t, DefaultBackendURL, Options{}.BackendURL())
	assert.Equal(t, DefaultBackendURL, Options{BackendBaseURL: "  "}.BackendURL())
	assert.Equal(t, "http://rag:8000", Options{BackendBaseURL: "http://rag:8000"}.BackendURL())
}
