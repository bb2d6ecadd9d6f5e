package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/session-analytics/pkg/index"
	"github.com/0xmhha/session-analytics/pkg/logger"
	"github.com/0xmhha/session-analytics/pkg/session"
	"github.com/0xmhha/session-analytics/pkg/shard"
)

const testAPIKey = "admin-key"

type testEnv struct {
	srv *Server
	mgr session.Manager
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir, err := shard.Open(t.TempDir(), logger.Noop())
	require.NoError(t, err)

	mgr := session.New(session.Config{}, dir, index.NewMemory(), logger.Noop())

	srv, err := New(Config{
		Auth: AuthConfig{JWTSecret: testSecret, APIKey: testAPIKey},
	}, mgr, logger.Noop())
	require.NoError(t, err)

	return &testEnv{srv: srv, mgr: mgr}
}

func (e *testEnv) do(t *testing.T, method, target string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) admin(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, method, target, nil, map[string]string{HeaderAPIKey: testAPIKey})
}

func (e *testEnv) create(t *testing.T, body interface{}, headers map[string]string) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/sessions", body, headers)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp createResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func TestHealth(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
}

func TestCreateSession(t *testing.T) {
	env := setupServer(t)

	t.Run("from headers and body", func(t *testing.T) {
		id := env.create(t, createRequest{UserID: "user-1", Page: "/movies/550"}, map[string]string{
			"X-Forwarded-For":     "203.0.113.5",
			"X-Vercel-Ip-Country": "CA",
			"User-Agent":          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		})
		assert.True(t, strings.HasPrefix(id, "sess_"))

		rec, err := env.mgr.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "user-1", rec.UserID)
		assert.Equal(t, "203.0.113.5", rec.IPAddress)
		assert.Equal(t, "CA", rec.Country)
		assert.Equal(t, "/movies/550", rec.LandingPage)
		assert.Equal(t, []string{"/movies/550"}, rec.PagesVisited)
	})

	t.Run("empty body lands on root", func(t *testing.T) {
		id := env.create(t, nil, nil)

		rec, err := env.mgr.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "/", rec.LandingPage)
		assert.Empty(t, rec.UserID)
	})

	t.Run("absolute url page keeps the path", func(t *testing.T) {
		id := env.create(t, createRequest{Page: "https://example.com/search?q=x"}, nil)

		rec, err := env.mgr.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "/search", rec.LandingPage)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		env.srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdateSession(t *testing.T) {
	env := setupServer(t)
	id := env.create(t, nil, nil)

	rec := env.do(t, http.MethodPatch, "/api/sessions/"+id, map[string]interface{}{
		"currentPage": "/movies/13",
		"loginStatus": true,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got session.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "/movies/13", got.CurrentPage)
	assert.Equal(t, []string{"/", "/movies/13"}, got.PagesVisited)
	assert.True(t, got.LoginStatus)

	t.Run("unknown session", func(t *testing.T) {
		rec := env.do(t, http.MethodPatch, "/api/sessions/sess_missing", map[string]interface{}{"currentPage": "/"}, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		var body errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "session not found", body.Error)
		assert.NotEmpty(t, body.RequestID)
	})
}

func TestAddEvent(t *testing.T) {
	env := setupServer(t)
	id := env.create(t, createRequest{Page: "/movies"}, nil)

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/events", map[string]interface{}{
		"type":    "rating",
		"element": "button.star",
		"data":    map[string]interface{}{"movieId": "550", "rating": 5},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"sessionId":"`+id+`","events":1}`, rec.Body.String())

	stored, err := env.mgr.Get(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, stored.Events, 1)
	assert.Equal(t, session.EventRating, stored.Events[0].Type)
	assert.Equal(t, "/movies", stored.Events[0].Page)

	t.Run("missing type", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/events", map[string]interface{}{"page": "/"}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown session", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/sessions/sess_missing/events", map[string]interface{}{"type": "click"}, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	env := setupServer(t)

	for _, target := range []string{"/api/admin/sessions", "/api/admin/summary", "/api/admin/export"} {
		rec := env.do(t, http.MethodGet, target, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
	rec := env.do(t, http.MethodPost, "/api/admin/cleanup", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, _, err := env.srv.Authenticator().Mint("ops")
	require.NoError(t, err)
	rec = env.do(t, http.MethodGet, "/api/admin/summary", nil, map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListAndGetSessions(t *testing.T) {
	env := setupServer(t)

	chrome := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	first := env.create(t, createRequest{UserID: "u1"}, map[string]string{"User-Agent": chrome, "X-Vercel-Ip-Country": "Canada"})
	env.create(t, createRequest{UserID: "u2"}, map[string]string{"X-Vercel-Ip-Country": "France"})

	rec := env.admin(t, http.MethodGet, "/api/admin/sessions?country=can&limit=10")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var page session.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Sessions, 1)
	assert.Equal(t, first, page.Sessions[0].SessionID)

	rec = env.admin(t, http.MethodGet, "/api/admin/sessions?limit=1&offset=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Sessions, 1)

	rec = env.admin(t, http.MethodGet, "/api/admin/sessions/"+first)
	require.Equal(t, http.StatusOK, rec.Code)
	var got session.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Chrome", got.Browser)

	t.Run("bad query", func(t *testing.T) {
		for _, q := range []string{"limit=abc", "dateFrom=yesterday", "offset=-1"} {
			rec := env.admin(t, http.MethodGet, "/api/admin/sessions?"+q)
			assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		}
	})

	t.Run("missing session", func(t *testing.T) {
		rec := env.admin(t, http.MethodGet, "/api/admin/sessions/sess_missing")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSummary(t *testing.T) {
	env := setupServer(t)
	env.create(t, createRequest{Page: "/movies"}, map[string]string{"X-Vercel-Ip-Country": "Canada"})

	rec := env.admin(t, http.MethodGet, "/api/admin/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var sum session.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 1, sum.TotalSessions)
	assert.Equal(t, 1, sum.ActiveSessions)
	assert.Equal(t, []session.CountryCount{{Country: "Canada", Count: 1}}, sum.TopCountries)

	// A range in the past holds nothing.
	rec = env.admin(t, http.MethodGet, "/api/admin/summary?from=2000-01-01&to=2000-01-02")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 0, sum.TotalSessions)
}

func TestExport(t *testing.T) {
	env := setupServer(t)

	rec := env.admin(t, http.MethodGet, "/api/admin/export")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), session.NoSessionsFound)

	env.create(t, createRequest{UserID: "u1"}, nil)

	rec = env.admin(t, http.MethodGet, "/api/admin/export")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment; filename=\"sessions_")

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, session.CSVHeader, rows[0])
	assert.Equal(t, "u1", rows[1][1])
}

func TestCleanupAndReindex(t *testing.T) {
	env := setupServer(t)
	env.create(t, nil, nil)

	rec := env.admin(t, http.MethodPost, "/api/admin/cleanup")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Cutoff        string   `json:"cutoff"`
		ShardsRemoved []string `json:"shardsRemoved"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, shard.DateOf(time.Now().Add(-30*24*time.Hour)).String(), body.Cutoff)
	assert.Empty(t, body.ShardsRemoved)

	rec = env.admin(t, http.MethodPost, "/api/admin/reindex")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"indexed":1}`, rec.Body.String())
}

func TestParseFilters(t *testing.T) {
	q := url.Values{}
	q.Set("dateFrom", "2024-05-01")
	q.Set("dateTo", "2024-05-02")
	q.Set("browser", "chrome")
	q.Set("deviceType", "mobile")
	q.Set("userId", "u1")
	q.Set("ipAddress", "203.0.113.5")
	q.Set("limit", "25")
	q.Set("offset", "50")

	f, err := ParseFilters(q)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), f.DateFrom)
	assert.Equal(t, time.Date(2024, 5, 2, 23, 59, 59, 999_000_000, time.UTC), f.DateTo)
	assert.Equal(t, "chrome", f.Browser)
	assert.Equal(t, "mobile", f.DeviceType)
	assert.Equal(t, "u1", f.UserID)
	assert.Equal(t, "203.0.113.5", f.IPAddress)
	assert.Equal(t, 25, f.Limit)
	assert.Equal(t, 50, f.Offset)

	q = url.Values{"dateFrom": {"2024-05-01T10:00:00+02:00"}}
	f, err = ParseFilters(q)
	require.NoError(t, err)
	assert.True(t, f.DateFrom.Equal(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)))

	_, err = ParseFilters(url.Values{"limit": {"ten"}})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}
