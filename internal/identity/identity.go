package identity

import (
	"context"
	"errors"
	"strconv"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrEmailExists       = errors.New("email already exists")
	ErrInvalidCredential = errors.New("invalid email or password")
)

// Identity is the signed-in subject as resolved by a Provider.
type Identity struct {
	UserID uint   `json:"id"`
	Email  string `json:"email"`
}

// Subject is a stable key for per-identity state.
func (i Identity) Subject() string {
	return strconv.FormatUint(uint64(i.UserID), 10)
}

// Provider resolves and terminates sessions. Current returns a nil identity
// with a nil error when the token carries no live session.
type Provider interface {
	Current(ctx context.Context, token string) (*Identity, error)
	SignOut(ctx context.Context, token string) error
}
