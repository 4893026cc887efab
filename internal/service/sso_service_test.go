package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/portfolio-api/internal/models"
	"github.com/noah-isme/portfolio-api/internal/repository"
	"github.com/noah-isme/portfolio-api/internal/session"
)

const (
	partnerSecret = "partner-secret"
	sessionSecret = "session-secret"
)

func partnerToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newSSO(users repository.UserRepository) SSOService {
	svc := NewSSOService(SSOConfig{
		PartnerSecret: partnerSecret,
		SessionSecret: sessionSecret,
		RedirectURL:   "https://portfolio.example.com/app",
		ErrorURL:      "https://portfolio.example.com/login?error=sso",
	}, users, testLogger())
	svc.(*ssoService).now = fixedClock
	return svc
}

func TestSSOExchangeIssuesSession(t *testing.T) {
	db := setupServiceDB(t)
	require.NoError(t, db.Create(&models.User{ID: 8, Name: "Sam", Email: "sam@example.com", Role: "teacher"}).Error)
	svc := newSSO(repository.NewUserRepository(db))

	token := partnerToken(t, partnerSecret, jwt.MapClaims{
		"sub":      "8",
		"role":     "student",
		"redirect": "/review",
		"exp":      fixedClock().Add(time.Minute).Unix(),
	})

	result, err := svc.Exchange(context.Background(), token)
	require.NoError(t, err)
	require.False(t, result.ClearAuth)
	require.Equal(t, "https://portfolio.example.com/review", result.RedirectURL)
	require.Equal(t, session.User{ID: 8, Role: session.RoleTeacher}, result.User)

	parsed, err := jwt.Parse(result.SessionToken, func(*jwt.Token) (interface{}, error) {
		return []byte(sessionSecret), nil
	}, jwt.WithTimeFunc(fixedClock))
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	require.Equal(t, "8", claims["sub"])
	require.Equal(t, "teacher", claims["role"])
}

func TestSSOExchangeFailuresClearAuth(t *testing.T) {
	svc := newSSO(nil)
	valid := jwt.MapClaims{"sub": "3", "role": "student", "exp": fixedClock().Add(time.Minute).Unix()}

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"wrong secret": partnerToken(t, "other", valid),
		"expired":      partnerToken(t, partnerSecret, jwt.MapClaims{"sub": "3", "role": "student", "exp": fixedClock().Add(-time.Minute).Unix()}),
		"no expiry":    partnerToken(t, partnerSecret, jwt.MapClaims{"sub": "3", "role": "student"}),
		"public role":  partnerToken(t, partnerSecret, jwt.MapClaims{"sub": "3", "role": "guest", "exp": fixedClock().Add(time.Minute).Unix()}),
		"bad subject":  partnerToken(t, partnerSecret, jwt.MapClaims{"sub": "abc", "role": "student", "exp": fixedClock().Add(time.Minute).Unix()}),
	}
	for name, token := range cases {
		result, err := svc.Exchange(context.Background(), token)
		require.ErrorIs(t, err, ErrSSOInvalidToken, name)
		require.True(t, result.ClearAuth, name)
		require.Equal(t, "https://portfolio.example.com/login?error=sso", result.RedirectURL, name)
		require.Empty(t, result.SessionToken, name)
	}

	result, err := svc.Exchange(context.Background(), partnerToken(t, partnerSecret, valid))
	require.NoError(t, err)
	require.Equal(t, session.RoleStudent, result.User.Role)
}

func TestSSORedirectIgnoresAbsoluteTargets(t *testing.T) {
	svc := newSSO(nil).(*ssoService)
	require.Equal(t, "https://portfolio.example.com/app", svc.redirectTarget("https://evil.example.com"))
	require.Equal(t, "https://portfolio.example.com/app", svc.redirectTarget("//evil.example.com"))
	require.Equal(t, "https://portfolio.example.com/portfolio/3", svc.redirectTarget("/portfolio/3"))
}
