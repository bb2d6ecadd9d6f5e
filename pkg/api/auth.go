package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/0xmhha/session-analytics/pkg/logger"
)

// Claims are the JWT claims of an admin token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator mints and validates admin credentials.
type Authenticator struct {
	secret []byte
	issuer string
	ttl    time.Duration
	apiKey string
	now    func() time.Time
}

// NewAuthenticator creates an Authenticator from cfg, filling defaults.
func NewAuthenticator(cfg AuthConfig) *Authenticator {
	if cfg.Issuer == "" {
		cfg.Issuer = "session-analytics"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}

	return &Authenticator{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		ttl:    cfg.TokenTTL,
		apiKey: cfg.APIKey,
		now:    time.Now,
	}
}

// Enabled reports whether any admin credential is configured.
func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0 || a.apiKey != ""
}

// Mint signs an admin token for subject and returns it with its expiry.
func (a *Authenticator) Mint(subject string) (string, time.Time, error) {
	if len(a.secret) == 0 {
		return "", time.Time{}, ErrAuthDisabled
	}

	now := a.now()
	expires := now.Add(a.ttl)

	claims := &Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    a.issuer,
			Subject:   subject,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expires, nil
}

// Validate parses a token and checks signature, expiry, issuer and role.
func (a *Authenticator) Validate(tokenString string) (*Claims, error) {
	if len(a.secret) == 0 {
		return nil, ErrAuthDisabled
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	},
		jwt.WithIssuer(a.issuer),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Role != RoleAdmin {
		return nil, ErrForbiddenRole
	}

	return claims, nil
}

// checkAPIKey compares key against the configured API key in constant time.
func (a *Authenticator) checkAPIKey(key string) bool {
	if a.apiKey == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(a.apiKey)) == 1
}

// RequireAdmin aborts requests that carry neither a valid X-API-Key nor a
// valid admin bearer token.
func RequireAdmin(a *Authenticator, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Enabled() {
			abortError(c, http.StatusForbidden, "admin access is not configured")
			return
		}

		if a.checkAPIKey(c.GetHeader(HeaderAPIKey)) {
			c.Set(ctxAdminSubject, "api-key")
			c.Next()
			return
		}

		tokenString, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || tokenString == "" {
			abortError(c, http.StatusUnauthorized, "no credentials provided")
			return
		}

		claims, err := a.Validate(tokenString)
		if err != nil {
			log.Warn("admin authentication failed",
				"request_id", c.GetString(ctxRequestID),
				"error", err)
			abortError(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		c.Set(ctxAdminSubject, claims.Subject)
		c.Next()
	}
}
