package console

import (
	"context"

	"go.uber.org/zap"

	"ragdesk/internal/identity"
)

// DefaultLoginPath is where unauthenticated callers are sent.
const DefaultLoginPath = "/auth"

type Tier int

const (
	TierOrdinary Tier = iota
	TierPrivileged
)

func (t Tier) String() string {
	if t == TierPrivileged {
		return "privileged"
	}
	return "ordinary"
}

// View is a gated surface and the tier it requires.
type View struct {
	Name     string
	Required Tier
}

var (
	ViewChat  = View{Name: "chat", Required: TierOrdinary}
	ViewAdmin = View{Name: "admin", Required: TierPrivileged}
)

type Outcome int

const (
	OutcomeChecking Outcome = iota
	OutcomeUnauthenticated
	OutcomeAuthorized
	OutcomeForbidden
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnauthenticated:
		return "unauthenticated"
	case OutcomeAuthorized:
		return "authorized"
	case OutcomeForbidden:
		return "forbidden"
	default:
		return "checking"
	}
}

// Decision is the terminal result of one view entry.
type Decision struct {
	Outcome  Outcome
	Identity *identity.Identity
	Tier     Tier
	// Redirect is set for OutcomeUnauthenticated.
	Redirect string
}

// Guard gates views behind a resolved identity.
type Guard struct {
	provider   identity.Provider
	privileged string
	loginPath  string
	logger     *zap.Logger
}

func NewGuard(provider identity.Provider, privilegedAddress string, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		provider:   provider,
		privileged: privilegedAddress,
		loginPath:  DefaultLoginPath,
		logger:     logger,
	}
}

// TierOf compares the identity email with the privileged address exactly.
func (g *Guard) TierOf(who identity.Identity) Tier {
	if g.privileged != "" && who.Email == g.privileged {
		return TierPrivileged
	}
	return TierOrdinary
}

// Enter resolves the identity behind token once and decides whether view is
// reachable. A resolution error is treated like an absent identity.
func (g *Guard) Enter(ctx context.Context, token string, view View) Decision {
	who, err := g.provider.Current(ctx, token)
	if err != nil {
		g.logger.Warn("resolve identity failed", zap.String("view", view.Name), zap.Error(err))
		who = nil
	}
	if who == nil {
		return Decision{Outcome: OutcomeUnauthenticated, Redirect: g.loginPath}
	}

	tier := g.TierOf(*who)
	if tier < view.Required {
		g.logger.Info("view forbidden",
			zap.String("view", view.Name),
			zap.Uint("user_id", who.UserID),
		)
		return Decision{Outcome: OutcomeForbidden, Identity: who, Tier: tier}
	}
	return Decision{Outcome: OutcomeAuthorized, Identity: who, Tier: tier}
}

// Logout signs out with the provider and always sends the caller to the
// login surface, whatever state it was in.
func (g *Guard) Logout(ctx context.Context, token string) Decision {
	if err := g.provider.SignOut(ctx, token); err != nil {
		g.logger.Warn("sign out failed", zap.Error(err))
	}
	return Decision{Outcome: OutcomeUnauthenticated, Redirect: g.loginPath}
}
