// Package session holds the authenticated customer context: who is signed
// in and which bearer token authenticates their backend calls. It replaces
// the ambient browser-storage lookup with an explicit object that is
// injected where needed and has a load/save/clear lifecycle.
//
// The session is the only state that survives a storefront restart;
// checkout drafts are deliberately transient.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// ErrNoSession is returned by Store.Load when nobody is signed in.
var ErrNoSession = errors.New("session: not authenticated")

// Session is the durable record of an authenticated customer.
type Session struct {
	UserID  string
	Token   string
	SavedAt time.Time
}

// Store persists the session independently of any draft.
type Store interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error

	// Clear wipes the session. Called when the backend rejects the token,
	// forcing re-authentication.
	Clear(ctx context.Context) error
}

// ExpiresAt reads the expiry from the token's JWT exp claim. The signature
// is not checked: the backend owns verification, the storefront only needs
// to know when to stop presenting a token that can no longer work.
func (s *Session) ExpiresAt() (time.Time, error) {
	var claims jwt.StandardClaims
	parser := &jwt.Parser{}
	if _, _, err := parser.ParseUnverified(s.Token, &claims); err != nil {
		return time.Time{}, errors.New("session: malformed token")
	}
	if claims.ExpiresAt == 0 {
		return time.Time{}, nil
	}
	return time.Unix(claims.ExpiresAt, 0), nil
}

// ExpiredAt reports whether the token is past its exp claim at the given
// instant. Tokens without an exp claim never expire locally; the backend
// still gets the last word.
func (s *Session) ExpiredAt(now time.Time) bool {
	exp, err := s.ExpiresAt()
	if err != nil {
		return true
	}
	if exp.IsZero() {
		return false
	}
	return now.After(exp)
}
