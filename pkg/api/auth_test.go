package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/session-analytics/pkg/logger"
)

const testSecret = "test-secret-with-enough-entropy"

func TestAuthenticator_MintValidate(t *testing.T) {
	a := NewAuthenticator(AuthConfig{JWTSecret: testSecret})

	token, expires, err := a.Mint("ops")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expires, time.Minute)

	claims, err := a.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, "session-analytics", claims.Issuer)
}

func TestAuthenticator_Disabled(t *testing.T) {
	a := NewAuthenticator(AuthConfig{})
	assert.False(t, a.Enabled())

	_, _, err := a.Mint("ops")
	assert.ErrorIs(t, err, ErrAuthDisabled)

	_, err = a.Validate("anything")
	assert.ErrorIs(t, err, ErrAuthDisabled)
}

func TestAuthenticator_Rejects(t *testing.T) {
	a := NewAuthenticator(AuthConfig{JWTSecret: testSecret, TokenTTL: time.Hour})

	t.Run("expired", func(t *testing.T) {
		past := time.Now().Add(-2 * time.Hour)
		old := NewAuthenticator(AuthConfig{JWTSecret: testSecret, TokenTTL: time.Hour})
		old.now = func() time.Time { return past }

		token, _, err := old.Mint("ops")
		require.NoError(t, err)

		_, err = a.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewAuthenticator(AuthConfig{JWTSecret: "another-secret"})
		token, _, err := other.Mint("ops")
		require.NoError(t, err)

		_, err = a.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewAuthenticator(AuthConfig{JWTSecret: testSecret, Issuer: "someone-else"})
		token, _, err := other.Mint("ops")
		require.NoError(t, err)

		_, err = a.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing admin role", func(t *testing.T) {
		now := time.Now()
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
			Role: "viewer",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "session-analytics",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = a.Validate(token)
		assert.ErrorIs(t, err, ErrForbiddenRole)
	})

	t.Run("unsigned", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Role: RoleAdmin}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = a.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	a := NewAuthenticator(AuthConfig{JWTSecret: testSecret, APIKey: "k3y"})
	token, _, err := a.Mint("ops")
	require.NoError(t, err)

	engine := gin.New()
	engine.GET("/admin", RequireAdmin(a, logger.Noop()), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ctxAdminSubject))
	})

	tests := []struct {
		name    string
		headers map[string]string
		status  int
		subject string
	}{
		{name: "no credentials", status: http.StatusUnauthorized},
		{name: "api key", headers: map[string]string{HeaderAPIKey: "k3y"}, status: http.StatusOK, subject: "api-key"},
		{name: "wrong api key", headers: map[string]string{HeaderAPIKey: "nope"}, status: http.StatusUnauthorized},
		{name: "bearer token", headers: map[string]string{"Authorization": "Bearer " + token}, status: http.StatusOK, subject: "ops"},
		{name: "token without scheme", headers: map[string]string{"Authorization": token}, status: http.StatusUnauthorized},
		{name: "garbage token", headers: map[string]string{"Authorization": "Bearer abc.def.ghi"}, status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.subject != "" {
				assert.Equal(t, tt.subject, rec.Body.String())
			}
		})
	}
}

func TestRequireAdmin_NotConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.GET("/admin", RequireAdmin(NewAuthenticator(AuthConfig{}), logger.Noop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(HeaderAPIKey, "")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
