package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRevoked is returned for a well-formed token that was logged out.
var ErrRevoked = errors.New("token revoked")

// ErrInactiveUser is returned for a valid token whose user was deleted.
var ErrInactiveUser = errors.New("user no longer active")

// Session is the authenticated identity attached to a single request. It is
// built by the transport layer and passed down explicitly.
type Session struct {
	UserID    int64
	Username  string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

// Verifier turns a bearer token into a Session.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Session, error)
}

// RevocationFunc reports whether the token with the given JTI was revoked.
type RevocationFunc func(ctx context.Context, jti string) (bool, error)

// ActiveFunc reports whether the user still exists.
type ActiveFunc func(ctx context.Context, userID int64) (bool, error)

// JWTVerifier verifies HS256 tokens issued by GenerateToken and consults an
// optional revocation list and user check.
type JWTVerifier struct {
	Secret  string
	Revoked RevocationFunc
	Active  ActiveFunc
}

// Verify implements Verifier.
func (v *JWTVerifier) Verify(ctx context.Context, token string) (*Session, error) {
	claims, err := ValidateToken(v.Secret, token)
	if err != nil {
		return nil, err
	}

	if v.Revoked != nil && claims.ID != "" {
		revoked, err := v.Revoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("checking revocation: %w", err)
		}
		if revoked {
			return nil, ErrRevoked
		}
	}

	if v.Active != nil {
		active, err := v.Active(ctx, claims.UserID)
		if err != nil {
			return nil, fmt.Errorf("checking user: %w", err)
		}
		if !active {
			return nil, ErrInactiveUser
		}
	}

	s := &Session{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}
