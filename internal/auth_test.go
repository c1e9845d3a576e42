package internal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "user-1", "email": "taro@example.test"}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func staticLoader(sess *UserSession, err error) SessionLoader {
	return func(ctx context.Context) (*UserSession, error) { return sess, err }
}

func newTestGuard(required bool, load SessionLoader) *Guard {
	g := NewGuard(required, load)
	g.Progress = nil
	g.now = func() time.Time { return testEpoch }
	return g
}

func TestTokenExpiry(t *testing.T) {
	exp := testEpoch.Add(time.Hour)

	got, ok := TokenExpiry(signedToken(t, exp))
	assert.True(t, ok)
	assert.True(t, got.Equal(exp))

	_, ok = TokenExpiry(signedToken(t, time.Time{}))
	assert.False(t, ok, "token without exp")

	_, ok = TokenExpiry("opaque-session-token")
	assert.False(t, ok, "non-JWT token")
}

func TestGuard_Check(t *testing.T) {
	valid := &UserSession{Token: "t", Email: "a@b", ExpiresAt: testEpoch.Add(time.Hour)}
	expired := &UserSession{Token: "t", Email: "a@b", ExpiresAt: testEpoch.Add(-time.Minute)}
	noExpiry := &UserSession{Token: "opaque"}

	tests := []struct {
		name       string
		required   bool
		sess       *UserSession
		wantSess   bool
		wantAuth   bool
		wantReason string
	}{
		{"required and signed in", true, valid, true, false, ""},
		{"required without expiry", true, noExpiry, true, false, ""},
		{"required and signed out", true, nil, false, true, ""},
		{"required and expired", true, expired, false, true, "session expired"},
		{"optional and signed out", false, nil, false, false, ""},
		{"optional and expired", false, expired, false, false, ""},
		{"optional and signed in", false, valid, true, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGuard(tt.required, staticLoader(tt.sess, nil))
			sess, err := g.Check(context.Background())

			var authErr *AuthRequiredError
			assert.Equal(t, tt.wantAuth, errors.As(err, &authErr))
			if tt.wantAuth {
				assert.Equal(t, tt.wantReason, authErr.Reason)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantSess, sess != nil)
		})
	}
}

func TestGuard_LoaderError(t *testing.T) {
	boom := errors.New("keyring locked")
	g := newTestGuard(true, staticLoader(nil, boom))

	_, err := g.Check(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestGuard_UsesProgress(t *testing.T) {
	var shown string
	g := newTestGuard(true, staticLoader(&UserSession{Token: "t"}, nil))
	g.Progress = func(ctx context.Context, message string, fn func() error) error {
		shown = message
		return fn()
	}

	_, err := g.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Checking session", shown)
}

func TestGuard_Run(t *testing.T) {
	called := false
	g := newTestGuard(true, staticLoader(nil, nil))
	err := g.Run(context.Background(), func(*UserSession) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called, "protected function must not run without a session")

	g = newTestGuard(true, staticLoader(&UserSession{Name: "太郎", Token: "t"}, nil))
	err = g.Run(context.Background(), func(s *UserSession) error {
		called = true
		assert.Equal(t, "太郎", s.Name)
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
}

func TestSessionFromConfig(t *testing.T) {
	ctx := context.Background()

	sess, err := SessionFromConfig(nil)(ctx)
	assert.NoError(t, err)
	assert.Nil(t, sess)

	sess, err = SessionFromConfig(&Config{})(ctx)
	assert.NoError(t, err)
	assert.Nil(t, sess)

	exp := testEpoch.Add(24 * time.Hour)
	cfg := &Config{}
	cfg.SetSession(signedToken(t, exp), "太郎", "taro@example.test")
	sess, err = SessionFromConfig(cfg)(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "taro@example.test", sess.Email)
	assert.True(t, sess.ExpiresAt.Equal(exp))
}

func TestTokenIdentity(t *testing.T) {
	name, email := TokenIdentity(signedToken(t, time.Time{}))
	assert.Equal(t, "", name)
	assert.Equal(t, "taro@example.test", email)

	name, email = TokenIdentity("opaque-token")
	assert.Empty(t, name)
	assert.Empty(t, email)
}
