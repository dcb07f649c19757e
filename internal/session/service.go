package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultTTL = 24 * time.Hour

	msgLoginFailed = "Login failed. Please check your credentials."
)

// Session is an authenticated user. Token is the upstream bearer token.
type Session struct {
	Token     string    `json:"token"`
	User      string    `json:"user"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CartReleaser flushes a user's cart on logout.
type CartReleaser interface {
	Release(ctx context.Context, owner string) error
}

type Options struct {
	Auth   catalog.Authenticator
	Store  Store
	Carts  CartReleaser
	TTL    time.Duration
	Logger *logger.Logger
	Now    func() time.Time
}

// Service logs users in against the catalog and tracks their sessions.
type Service struct {
	auth     catalog.Authenticator
	store    Store
	carts    CartReleaser
	ttl      time.Duration
	logg     *logger.Logger
	now      func() time.Time
	validate *validator.Validate
}

func NewService(opts Options) (*Service, error) {
	if opts.Auth == nil {
		return nil, fmt.Errorf("authenticator is required")
	}
	svc := &Service{
		auth:     opts.Auth,
		store:    opts.Store,
		carts:    opts.Carts,
		ttl:      opts.TTL,
		logg:     opts.Logger,
		now:      opts.Now,
		validate: validator.New(),
	}
	if svc.store == nil {
		svc.store = NewMemoryStore()
	}
	if svc.ttl <= 0 {
		svc.ttl = DefaultTTL
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

// Login validates the credentials, exchanges them upstream and stores the session.
func (s *Service) Login(ctx context.Context, creds catalog.Credentials) (Session, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if err := s.validate.Struct(creds); err != nil {
		return Session{}, credentialError(err)
	}

	token, err := s.auth.Login(ctx, creds)
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"username": creds.Username,
			"error":    err.Error(),
		}), "session.login_failed")
		if errors.IsCode(err, errors.CodeUnauthorized) {
			return Session{}, errors.Wrap(errors.CodeUnauthorized, err, msgLoginFailed)
		}
		return Session{}, errors.Wrap(errors.CodeDependency, err, msgLoginFailed)
	}

	now := s.now().UTC()
	user := creds.Username
	expiresAt := now.Add(s.ttl)
	if claims, err := auth.ParseUpstreamToken(token); err == nil {
		user = claims.DisplayName(creds.Username)
		if claims.ExpiresBefore(now.Add(time.Second)) {
			s.logg.Warn(s.logg.WithUser(ctx, user), "session.token_expired")
			return Session{}, errors.New(errors.CodeUnauthorized, msgLoginFailed)
		}
		// the session never outlives the upstream token
		if claims.ExpiresBefore(expiresAt) {
			expiresAt = claims.Expires.UTC()
		}
	}

	sess := Session{
		Token:     token,
		User:      user,
		Username:  creds.Username,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := s.store.Put(ctx, auth.SessionID(token), sess, expiresAt.Sub(now)); err != nil {
		return Session{}, errors.Wrap(errors.CodeDependency, err, "failed to store session")
	}

	s.logg.Info(s.logg.WithUser(ctx, user), "session.login")
	return sess, nil
}

// Authenticate resolves a bearer token to its live session.
func (s *Service) Authenticate(ctx context.Context, token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, errors.New(errors.CodeUnauthorized, "authentication required")
	}
	sess, err := s.store.Get(ctx, auth.SessionID(token))
	if stderrors.Is(err, ErrSessionNotFound) {
		return Session{}, errors.New(errors.CodeUnauthorized, "session expired or invalid")
	}
	if err != nil {
		return Session{}, errors.Wrap(errors.CodeDependency, err, "failed to load session")
	}
	return sess, nil
}

// Logout ends the session and flushes the owner's cart. Logging out an
// unknown token succeeds.
func (s *Service) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New(errors.CodeUnauthorized, "authentication required")
	}
	id := auth.SessionID(token)
	sess, err := s.store.Get(ctx, id)
	if err != nil && !stderrors.Is(err, ErrSessionNotFound) {
		return errors.Wrap(errors.CodeDependency, err, "failed to load session")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "failed to delete session")
	}
	if sess.User != "" && s.carts != nil {
		if err := s.carts.Release(ctx, sess.User); err != nil {
			s.logg.Warn(s.logg.WithFields(s.logg.WithUser(ctx, sess.User), map[string]any{
				"error": err.Error(),
			}), "session.cart_release_failed")
		}
	}
	if sess.User != "" {
		s.logg.Info(s.logg.WithUser(ctx, sess.User), "session.logout")
	}
	return nil
}

func credentialError(err error) *errors.Error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return errors.Wrap(errors.CodeValidation, err, "invalid credentials")
	}
	details := map[string]string{}
	var first string
	for _, fe := range verrs {
		msg := fe.Field() + " is required"
		details[strings.ToLower(fe.Field())] = msg
		if first == "" {
			first = msg
		}
	}
	return errors.New(errors.CodeValidation, first).WithDetails(details)
}
