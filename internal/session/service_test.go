package session

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/errors"
	"github.com/golang-jwt/jwt/v5"
)

type fakeAuth struct {
	token string
	err   error
	calls int
}

func (f *fakeAuth) Login(_ context.Context, creds catalog.Credentials) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

type fakeReleaser struct {
	released []string
}

func (f *fakeReleaser) Release(_ context.Context, owner string) error {
	f.released = append(f.released, owner)
	return nil
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func upstreamToken(t *testing.T, user string) string {
	t.Helper()
	return signToken(t, jwt.MapClaims{"sub": 2, "user": user})
}

func newService(t *testing.T, a *fakeAuth, carts CartReleaser, now func() time.Time) *Service {
	t.Helper()
	store := NewMemoryStore()
	if now != nil {
		store.now = now
	}
	svc, err := NewService(Options{Auth: a, Store: store, Carts: carts, TTL: time.Hour, Now: now})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestLoginRequiresUsernameAndPassword(t *testing.T) {
	a := &fakeAuth{token: "t"}
	svc := newService(t, a, nil, nil)

	cases := []struct {
		creds catalog.Credentials
		msg   string
	}{
		{catalog.Credentials{Password: "p"}, "Username is required"},
		{catalog.Credentials{Username: "   ", Password: "p"}, "Username is required"},
		{catalog.Credentials{Username: "u"}, "Password is required"},
	}
	for _, tc := range cases {
		_, err := svc.Login(context.Background(), tc.creds)
		typed := errors.As(err)
		if typed == nil {
			t.Fatalf("expected typed error for %+v, got %v", tc.creds, err)
		}
		if typed.Code() != errors.CodeValidation || typed.Message() != tc.msg {
			t.Fatalf("expected %s %q, got %s %q", errors.CodeValidation, tc.msg, typed.Code(), typed.Message())
		}
	}
	if a.calls != 0 {
		t.Fatalf("upstream must not be called for invalid credentials, got %d calls", a.calls)
	}
}

func TestLoginStoresSessionAndResolvesUser(t *testing.T) {
	token := upstreamToken(t, "mor_2314")
	svc := newService(t, &fakeAuth{token: token}, nil, nil)

	sess, err := svc.Login(context.Background(), catalog.Credentials{Username: "mor_2314", Password: "83r5^_"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.Token != token || sess.User != "mor_2314" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if ttl := sess.ExpiresAt.Sub(sess.CreatedAt); ttl != time.Hour {
		t.Fatalf("expected 1h session, got %s", ttl)
	}

	got, err := svc.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.User != sess.User {
		t.Fatalf("expected user %q, got %q", sess.User, got.User)
	}
}

func TestLoginCapsSessionAtTokenExpiry(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tokenExp := now.Add(10 * time.Minute)
	token := signToken(t, jwt.MapClaims{"user": "mor_2314", "exp": tokenExp.Unix()})
	svc := newService(t, &fakeAuth{token: token}, nil, clock)

	sess, err := svc.Login(context.Background(), catalog.Credentials{Username: "mor_2314", Password: "p"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !sess.ExpiresAt.Equal(tokenExp) {
		t.Fatalf("expected session to end with the token at %s, got %s", tokenExp, sess.ExpiresAt)
	}

	now = now.Add(11 * time.Minute)
	if _, err := svc.Authenticate(context.Background(), token); !errors.IsCode(err, errors.CodeUnauthorized) {
		t.Fatalf("expected session to expire with the token, got %v", err)
	}
}

func TestLoginKeepsConfiguredTTLForLongLivedTokens(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	token := signToken(t, jwt.MapClaims{"user": "u", "exp": now.Add(48 * time.Hour).Unix()})
	svc := newService(t, &fakeAuth{token: token}, nil, func() time.Time { return now })

	sess, err := svc.Login(context.Background(), catalog.Credentials{Username: "u", Password: "p"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !sess.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("expected configured ttl, got %s", sess.ExpiresAt)
	}
}

func TestLoginRejectsExpiredUpstreamToken(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	token := signToken(t, jwt.MapClaims{"user": "u", "exp": now.Add(-time.Minute).Unix()})
	svc := newService(t, &fakeAuth{token: token}, nil, func() time.Time { return now })

	_, err := svc.Login(context.Background(), catalog.Credentials{Username: "u", Password: "p"})
	if !errors.IsCode(err, errors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), token); !errors.IsCode(err, errors.CodeUnauthorized) {
		t.Fatalf("expired token must not be stored, got %v", err)
	}
}

func TestLoginFallsBackToUsernameForOpaqueTokens(t *testing.T) {
	svc := newService(t, &fakeAuth{token: "opaque-token"}, nil, nil)

	sess, err := svc.Login(context.Background(), catalog.Credentials{Username: "johnd", Password: "m38rmF$"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.User != "johnd" {
		t.Fatalf("expected username fallback, got %q", sess.User)
	}
}

func TestLoginFailureMessages(t *testing.T) {
	const msg = "Login failed. Please check your credentials."

	rejected := newService(t, &fakeAuth{err: errors.New(errors.CodeUnauthorized, "login failed")}, nil, nil)
	_, err := rejected.Login(context.Background(), catalog.Credentials{Username: "u", Password: "bad"})
	if !errors.IsCode(err, errors.CodeUnauthorized) || errors.As(err).Message() != msg {
		t.Fatalf("unexpected rejection error %v", err)
	}

	down := newService(t, &fakeAuth{err: stderrors.New("dial tcp: refused")}, nil, nil)
	_, err = down.Login(context.Background(), catalog.Credentials{Username: "u", Password: "p"})
	if !errors.IsCode(err, errors.CodeDependency) || errors.As(err).Message() != msg {
		t.Fatalf("unexpected upstream error %v", err)
	}
}

func TestAuthenticateRejectsUnknownAndEmptyTokens(t *testing.T) {
	svc := newService(t, &fakeAuth{token: "t"}, nil, nil)

	for _, token := range []string{"", "never-issued"} {
		if _, err := svc.Authenticate(context.Background(), token); !errors.IsCode(err, errors.CodeUnauthorized) {
			t.Fatalf("expected unauthorized for %q, got %v", token, err)
		}
	}
}

func TestSessionsExpire(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc := newService(t, &fakeAuth{token: "tok"}, nil, clock)

	if _, err := svc.Login(context.Background(), catalog.Credentials{Username: "u", Password: "p"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "tok"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := svc.Authenticate(context.Background(), "tok"); !errors.IsCode(err, errors.CodeUnauthorized) {
		t.Fatalf("expected expired session, got %v", err)
	}
}

func TestLogoutDeletesSessionAndReleasesCart(t *testing.T) {
	carts := &fakeReleaser{}
	token := upstreamToken(t, "kevinryan")
	svc := newService(t, &fakeAuth{token: token}, carts, nil)

	if _, err := svc.Login(context.Background(), catalog.Credentials{Username: "kevinryan", Password: "kev02937@"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(context.Background(), token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(carts.released) != 1 || carts.released[0] != "kevinryan" {
		t.Fatalf("expected kevinryan's cart released, got %v", carts.released)
	}
	if _, err := svc.Authenticate(context.Background(), token); !errors.IsCode(err, errors.CodeUnauthorized) {
		t.Fatalf("expected session gone, got %v", err)
	}

	if err := svc.Logout(context.Background(), token); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	if len(carts.released) != 1 {
		t.Fatalf("unknown token must not release a cart, got %v", carts.released)
	}
	if err := svc.Logout(context.Background(), " "); !errors.IsCode(err, errors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for blank token, got %v", err)
	}
}

func TestNewServiceRequiresAuthenticator(t *testing.T) {
	if _, err := NewService(Options{}); err == nil {
		t.Fatal("expected error without authenticator")
	}
}

func TestSessionStoredUnderHashedID(t *testing.T) {
	store := NewMemoryStore()
	svc, err := NewService(Options{Auth: &fakeAuth{token: "raw-token"}, Store: store})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.Login(context.Background(), catalog.Credentials{Username: "u", Password: "p"}); err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, ok := store.data["raw-token"]; ok {
		t.Fatal("raw token must not be used as the storage key")
	}
	if _, ok := store.data[auth.SessionID("raw-token")]; !ok {
		t.Fatal("expected session under the hashed id")
	}
}
