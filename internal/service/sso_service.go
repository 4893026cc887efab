package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/portfolio-api/internal/repository"
	"github.com/noah-isme/portfolio-api/internal/session"
)

// ErrSSOInvalidToken indicates the exchange token was rejected.
var ErrSSOInvalidToken = errors.New("invalid sso token")

// SSOConfig configures the single sign-on exchange.
type SSOConfig struct {
	PartnerSecret string
	SessionSecret string
	RedirectURL   string
	ErrorURL      string
	SessionTTL    time.Duration
}

// SSOResult tells the client where to go next. ClearAuth asks the client to
// drop any stored authentication markers.
type SSOResult struct {
	RedirectURL  string
	SessionToken string
	ExpiresAt    time.Time
	ClearAuth    bool
	User         session.User
}

// SSOService exchanges partner tokens for API sessions.
type SSOService interface {
	Exchange(ctx context.Context, token string) (SSOResult, error)
}

type ssoService struct {
	cfg    SSOConfig
	users  repository.UserRepository
	logger zerolog.Logger
	now    func() time.Time
}

// NewSSOService constructs the SSO exchange. The user repository is optional;
// when present the stored role overrides the partner's claim.
func NewSSOService(cfg SSOConfig, users repository.UserRepository, logger zerolog.Logger) SSOService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = "/"
	}
	if cfg.ErrorURL == "" {
		cfg.ErrorURL = "/login?error=sso"
	}
	return &ssoService{
		cfg:    cfg,
		users:  users,
		logger: logger.With().Str("component", "sso_service").Logger(),
		now:    time.Now,
	}
}

type ssoClaims struct {
	Role     string `json:"role"`
	Redirect string `json:"redirect"`
	jwt.RegisteredClaims
}

func (s *ssoService) Exchange(ctx context.Context, token string) (SSOResult, error) {
	user, redirect, err := s.verify(ctx, strings.TrimSpace(token))
	if err != nil {
		s.logger.Warn().Err(err).Msg("sso exchange rejected")
		return SSOResult{RedirectURL: s.cfg.ErrorURL, ClearAuth: true}, err
	}

	expiresAt := s.now().Add(s.cfg.SessionTTL)
	sessionToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(user.ID), 10),
		"role": string(user.Role),
		"iat":  s.now().Unix(),
		"exp":  expiresAt.Unix(),
	}).SignedString([]byte(s.cfg.SessionSecret))
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to sign session token")
		return SSOResult{RedirectURL: s.cfg.ErrorURL, ClearAuth: true}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Str("role", string(user.Role)).Msg("sso session established")

	return SSOResult{
		RedirectURL:  s.redirectTarget(redirect),
		SessionToken: sessionToken,
		ExpiresAt:    expiresAt,
		User:         user,
	}, nil
}

func (s *ssoService) verify(ctx context.Context, token string) (session.User, string, error) {
	if token == "" || s.cfg.PartnerSecret == "" {
		return session.User{}, "", ErrSSOInvalidToken
	}

	claims := &ssoClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(s.cfg.PartnerSecret), nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return session.User{}, "", fmt.Errorf("%w: %v", ErrSSOInvalidToken, err)
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return session.User{}, "", fmt.Errorf("%w: subject", ErrSSOInvalidToken)
	}

	user := session.User{ID: uint(id), Role: session.ParseRole(claims.Role)}
	if s.users != nil {
		account, err := s.users.GetByID(ctx, user.ID)
		if err != nil {
			return session.User{}, "", fmt.Errorf("%w: unknown account", ErrSSOInvalidToken)
		}
		user.Role = session.ParseRole(account.Role)
	}
	if !user.Authenticated() {
		return session.User{}, "", fmt.Errorf("%w: role", ErrSSOInvalidToken)
	}

	return user, claims.Redirect, nil
}

// redirectTarget appends a relative path from the token to the configured
// landing URL. Absolute or protocol-relative targets are ignored.
func (s *ssoService) redirectTarget(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return s.cfg.RedirectURL
	}

	base, err := url.Parse(s.cfg.RedirectURL)
	if err != nil {
		return s.cfg.RedirectURL
	}
	ref, err := url.Parse(path)
	if err != nil {
		return s.cfg.RedirectURL
	}
	return base.ResolveReference(ref).String()
}
