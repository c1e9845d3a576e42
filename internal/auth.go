package internal

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserSession is the identity the guard hands to protected commands
type UserSession struct {
	Token     string
	Name      string
	Email     string
	ExpiresAt time.Time // zero when the token carries no expiry
}

// SessionLoader resolves the current session. A nil session with a nil
// error means nobody is signed in.
type SessionLoader func(ctx context.Context) (*UserSession, error)

// SessionFromConfig loads the session stored in the config file
func SessionFromConfig(cfg *Config) SessionLoader {
	return func(ctx context.Context) (*UserSession, error) {
		if cfg == nil || !cfg.IsAuthenticated() {
			return nil, nil
		}
		sess := &UserSession{Token: cfg.Token, Name: cfg.User.Name, Email: cfg.User.Email}
		if exp, ok := TokenExpiry(cfg.Token); ok {
			sess.ExpiresAt = exp
		}
		return sess, nil
	}
}

// TokenExpiry reads the exp claim of a JWT without verifying it. Tokens
// that are not JWTs report false.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Guard gates protected commands on a signed-in session. It only guides
// the user to log in; the backend enforces access.
type Guard struct {
	RequireAuth bool
	Load        SessionLoader
	// Progress wraps the session lookup, showing a spinner on terminals
	Progress func(ctx context.Context, message string, fn func() error) error

	now func() time.Time
}

// NewGuard creates a guard using load to find the session
func NewGuard(requireAuth bool, load SessionLoader) *Guard {
	return &Guard{
		RequireAuth: requireAuth,
		Load:        load,
		Progress:    ShowProgress,
		now:         time.Now,
	}
}

// Check resolves the session and applies the gate. With RequireAuth unset
// it returns whatever session exists, possibly nil.
func (g *Guard) Check(ctx context.Context) (*UserSession, error) {
	var sess *UserSession
	load := func() error {
		if g.Load == nil {
			return nil
		}
		var err error
		sess, err = g.Load(ctx)
		return err
	}

	var err error
	if g.Progress != nil {
		err = g.Progress(ctx, "Checking session", load)
	} else {
		err = load()
	}
	if err != nil {
		return nil, err
	}

	if sess != nil && !sess.ExpiresAt.IsZero() && !g.now().Before(sess.ExpiresAt) {
		LogDebug("Session for %s expired at %s", sess.Email, sess.ExpiresAt.Format(time.RFC3339))
		if g.RequireAuth {
			return nil, &AuthRequiredError{Reason: "session expired"}
		}
		return nil, nil
	}

	if sess == nil && g.RequireAuth {
		return nil, &AuthRequiredError{}
	}
	return sess, nil
}

// Run calls fn with the session once the gate passes
func (g *Guard) Run(ctx context.Context, fn func(*UserSession) error) error {
	sess, err := g.Check(ctx)
	if err != nil {
		return err
	}
	return fn(sess)
}

// TokenIdentity reads the name and email claims of a JWT without
// verifying it. Missing claims come back empty.
func TokenIdentity(token string) (name, email string) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", ""
	}
	name, _ = claims["name"].(string)
	email, _ = claims["email"].(string)
	return name, email
}
