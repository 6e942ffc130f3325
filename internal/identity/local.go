package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"ragdesk/internal/model"
	"ragdesk/internal/pkg/jwtutil"
)

const minPasswordLength = 8

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint) (*model.User, error)
}

// RevocationStore remembers signed-out token ids until they would have
// expired anyway.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// LocalProvider issues JWT sessions for users kept in the console database.
type LocalProvider struct {
	users         UserStore
	revocations   RevocationStore
	jwtSecret     string
	jwtExpiration time.Duration
	logger        *zap.Logger
}

type Credentials struct {
	Email    string
	Password string
}

type Session struct {
	Token    string    `json:"token"`
	Identity Identity  `json:"user"`
	Expires  time.Time `json:"expires_at"`
}

func NewLocalProvider(
	users UserStore,
	revocations RevocationStore,
	jwtSecret string,
	jwtExpiration time.Duration,
	logger *zap.Logger,
) *LocalProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalProvider{
		users:         users,
		revocations:   revocations,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		logger:        logger,
	}
}

// SignUp creates the user and opens a session. The email is kept as typed
// (trimmed) because the privileged address comparison is case-sensitive.
func (p *LocalProvider) SignUp(ctx context.Context, input Credentials) (*Session, error) {
	email := strings.TrimSpace(input.Email)
	password := strings.TrimSpace(input.Password)
	if email == "" || len(password) < minPasswordLength {
		return nil, ErrInvalidInput
	}

	existing, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}
	user := &model.User{
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := p.users.Create(ctx, user); err != nil {
		return nil, err
	}
	p.logger.Info("user registered", zap.Uint("user_id", user.ID))
	return p.issue(user)
}

func (p *LocalProvider) SignIn(ctx context.Context, input Credentials) (*Session, error) {
	email := strings.TrimSpace(input.Email)
	password := strings.TrimSpace(input.Password)
	if email == "" || password == "" {
		return nil, ErrInvalidInput
	}

	user, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}
	return p.issue(user)
}

// Current resolves the identity behind a session token. Malformed, expired
// and revoked tokens resolve to no identity; only store failures are errors.
func (p *LocalProvider) Current(ctx context.Context, token string) (*Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	claims, err := jwtutil.ParseToken(p.jwtSecret, token)
	if err != nil {
		return nil, nil
	}

	if p.revocations != nil {
		revoked, err := p.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check token revocation failed: %w", err)
		}
		if revoked {
			return nil, nil
		}
	}

	user, err := p.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return &Identity{UserID: user.ID, Email: user.Email}, nil
}

// SignOut revokes the token for the rest of its lifetime. Tokens that are
// already unusable are accepted silently.
func (p *LocalProvider) SignOut(ctx context.Context, token string) error {
	claims, err := jwtutil.ParseToken(p.jwtSecret, token)
	if err != nil {
		if errors.Is(err, jwtutil.ErrInvalidToken) {
			return nil
		}
		return err
	}
	if p.revocations == nil {
		return nil
	}
	ttl := claims.Remaining(time.Now())
	if ttl <= 0 {
		return nil
	}
	if err := p.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("revoke token failed: %w", err)
	}
	p.logger.Info("user signed out", zap.Uint("user_id", claims.UserID))
	return nil
}

func (p *LocalProvider) issue(user *model.User) (*Session, error) {
	token, claims, err := jwtutil.GenerateToken(p.jwtSecret, p.jwtExpiration, user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:    token,
		Identity: Identity{UserID: user.ID, Email: user.Email},
		Expires:  claims.ExpiresAt.Time,
	}, nil
}
