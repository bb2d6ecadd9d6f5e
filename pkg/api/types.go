// Package api exposes the session manager over HTTP with gin.
//
// Public routes record sessions and events from browsers:
//
//	POST  /api/sessions              create a session from request headers
//	PATCH /api/sessions/:id          patch session fields
//	POST  /api/sessions/:id/events   append an event
//	GET   /healthz
//
// Admin routes require a bearer JWT minted with Authenticator.Mint or the
// configured X-API-Key:
//
//	GET  /api/admin/sessions         filtered, paginated listing
//	GET  /api/admin/sessions/:id
//	GET  /api/admin/summary
//	GET  /api/admin/export           CSV attachment
//	POST /api/admin/cleanup
//	POST /api/admin/reindex
package api

import (
	"time"
)

// Config contains HTTP surface settings.
type Config struct {
	// Origins allowed by CORS. Empty allows all origins without credentials.
	AllowedOrigins []string

	// Proxies whose forwarding headers gin trusts for ClientIP.
	TrustedProxies []string

	// RequestTimeout bounds each handler's storage work.
	// Default: 15s.
	RequestTimeout time.Duration

	// Auth configures admin authentication.
	Auth AuthConfig
}

// AuthConfig contains admin authentication settings.
type AuthConfig struct {
	// JWTSecret signs admin tokens with HS256. Empty disables JWT auth.
	JWTSecret string

	// Issuer is set on minted tokens and required on validated ones.
	// Default: "session-analytics".
	Issuer string

	// TokenTTL is the lifetime of minted tokens.
	// Default: 24h.
	TokenTTL time.Duration

	// APIKey is accepted in the X-API-Key header. Empty disables it.
	APIKey string
}

// Request and response headers.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderAPIKey    = "X-API-Key"
)

// RoleAdmin is the only role allowed on admin routes.
const RoleAdmin = "admin"

// createRequest is the optional body of POST /api/sessions.
type createRequest struct {
	UserID string `json:"userId"`

	// Page is the landing page; the request's own path is meaningless for
	// an API call.
	Page string `json:"page"`
}

// createResponse is returned by POST /api/sessions.
type createResponse struct {
	SessionID string `json:"sessionId"`
}

// errorResponse is the body of every error reply.
type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}
