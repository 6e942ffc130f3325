package console

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ragdesk/internal/identity"
)

const adminAddress = "admin@example.com"

func TestGuardEnter(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
		view     View
		want     Outcome
		wantTier Tier
	}{
		{
			name:     "no session",
			provider: &fakeProvider{},
			view:     ViewChat,
			want:     OutcomeUnauthenticated,
		},
		{
			name:     "provider error",
			provider: &fakeProvider{err: errors.New("identity service down")},
			view:     ViewAdmin,
			want:     OutcomeUnauthenticated,
		},
		{
			name:     "ordinary user on chat",
			provider: &fakeProvider{who: &identity.Identity{UserID: 2, Email: "user@example.com"}},
			view:     ViewChat,
			want:     OutcomeAuthorized,
			wantTier: TierOrdinary,
		},
		{
			name:     "ordinary user on admin",
			provider: &fakeProvider{who: &identity.Identity{UserID: 2, Email: "user@example.com"}},
			view:     ViewAdmin,
			want:     OutcomeForbidden,
			wantTier: TierOrdinary,
		},
		{
			name:     "privileged user on admin",
			provider: &fakeProvider{who: &identity.Identity{UserID: 1, Email: adminAddress}},
			view:     ViewAdmin,
			want:     OutcomeAuthorized,
			wantTier: TierPrivileged,
		},
		{
			name:     "privileged user on chat",
			provider: &fakeProvider{who: &identity.Identity{UserID: 1, Email: adminAddress}},
			view:     ViewChat,
			want:     OutcomeAuthorized,
			wantTier: TierPrivileged,
		},
		{
			name:     "address match is case sensitive",
			provider: &fakeProvider{who: &identity.Identity{UserID: 3, Email: "Admin@Example.com"}},
			view:     ViewAdmin,
			want:     OutcomeForbidden,
			wantTier: TierOrdinary,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGuard(tt.provider, adminAddress, zap.NewNop())

			d := g.Enter(context.Background(), "token-1", tt.view)

			assert.Equal(t, tt.want, d.Outcome)
			assert.Equal(t, "token-1", tt.provider.lastToken.Load())
			switch tt.want {
			case OutcomeUnauthenticated:
				assert.Equal(t, DefaultLoginPath, d.Redirect)
				assert.Nil(t, d.Identity)
			default:
				require.NotNil(t, d.Identity)
				assert.Equal(t, tt.wantTier, d.Tier)
				assert.Empty(t, d.Redirect)
			}
		})
	}
}

func TestGuardWithoutPrivilegedAddress(t *testing.T) {
	g := NewGuard(&fakeProvider{who: &identity.Identity{UserID: 1, Email: ""}}, "", nil)

	assert.Equal(t, TierOrdinary, g.TierOf(identity.Identity{UserID: 1, Email: ""}))
	assert.Equal(t, OutcomeForbidden, g.Enter(context.Background(), "t", ViewAdmin).Outcome)
}

func TestGuardLogout(t *testing.T) {
	t.Run("signs out", func(t *testing.T) {
		p := &fakeProvider{}
		g := NewGuard(p, adminAddress, nil)

		d := g.Logout(context.Background(), "token-2")

		assert.Equal(t, OutcomeUnauthenticated, d.Outcome)
		assert.Equal(t, DefaultLoginPath, d.Redirect)
		assert.Equal(t, int32(1), p.signOuts.Load())
		assert.Equal(t, "token-2", p.lastToken.Load())
	})

	t.Run("redirects even when sign out fails", func(t *testing.T) {
		p := &fakeProvider{signOutErr: errors.New("revocation store down")}
		g := NewGuard(p, adminAddress, nil)

		d := g.Logout(context.Background(), "token-3")

		assert.Equal(t, OutcomeUnauthenticated, d.Outcome)
		assert.Equal(t, DefaultLoginPath, d.Redirect)
	})
}

func TestOutcomeAndTierStrings(t *testing.T) {
	assert.Equal(t, "checking", OutcomeChecking.String())
	assert.Equal(t, "unauthenticated", OutcomeUnauthenticated.String())
	assert.Equal(t, "authorized", OutcomeAuthorized.String())
	assert.Equal(t, "forbidden", OutcomeForbidden.String())
	assert.Equal(t, "ordinary", TierOrdinary.String())
	assert.Equal(t, "privileged", TierPrivileged.String())
}
