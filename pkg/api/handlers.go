package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/0xmhha/session-analytics/pkg/session"
)

// dateOnly is the short form accepted for date query parameters.
const dateOnly = "2006-01-02"

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requestContext bounds storage work by the configured timeout.
func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.config.RequestTimeout)
}

// fail maps a manager error to a status code and writes it.
func (s *Server) fail(c *gin.Context, op string, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"

	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		status, msg = http.StatusNotFound, "session not found"
	case errors.Is(err, session.ErrEmptySessionID),
		errors.Is(err, session.ErrInvalidEvent),
		errors.Is(err, session.ErrInvalidFilter),
		errors.Is(err, ErrInvalidQuery):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusGatewayTimeout, "request timed out"
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed",
			"request_id", c.GetString(ctxRequestID),
			"error", err)
	}
	_ = c.Error(err)
	abortError(c, status, msg)
}

// createSession records a new session from the request headers.
func (s *Server) createSession(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abortError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	page := req.Page
	if page == "" {
		page = "/"
	}
	if !strings.HasPrefix(page, "/") {
		if u, err := url.Parse(page); err == nil && u.Path != "" {
			page = u.Path
		} else {
			page = "/" + page
		}
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	// The landing page comes from the body, everything else from headers.
	r := c.Request.Clone(ctx)
	r.URL = &url.URL{Path: page}

	id, err := s.mgr.Create(ctx, r, req.UserID)
	if err != nil {
		s.fail(c, "create session", err)
		return
	}

	c.JSON(http.StatusCreated, createResponse{SessionID: id})
}

func (s *Server) updateSession(c *gin.Context) {
	var patch session.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		abortError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	rec, err := s.mgr.Update(ctx, c.Param("id"), patch)
	if err != nil {
		s.fail(c, "update session", err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (s *Server) addEvent(c *gin.Context) {
	var event session.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		abortError(c, http.StatusBadRequest, "invalid event body")
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	rec, err := s.mgr.AddEvent(ctx, c.Param("id"), event)
	if err != nil {
		s.fail(c, "add event", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionId": rec.SessionID,
		"events":    len(rec.Events),
	})
}

func (s *Server) getSession(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	rec, err := s.mgr.Get(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, "get session", err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (s *Server) listSessions(c *gin.Context) {
	filters, err := ParseFilters(c.Request.URL.Query())
	if err != nil {
		s.fail(c, "list sessions", err)
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	page, err := s.mgr.List(ctx, filters)
	if err != nil {
		s.fail(c, "list sessions", err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (s *Server) summary(c *gin.Context) {
	from, err := parseTime(c.Query("from"), false)
	if err != nil {
		s.fail(c, "summary", err)
		return
	}
	to, err := parseTime(c.Query("to"), true)
	if err != nil {
		s.fail(c, "summary", err)
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	sum, err := s.mgr.Summary(ctx, from, to)
	if err != nil {
		s.fail(c, "summary", err)
		return
	}

	c.JSON(http.StatusOK, sum)
}

func (s *Server) export(c *gin.Context) {
	filters, err := ParseFilters(c.Request.URL.Query())
	if err != nil {
		s.fail(c, "export", err)
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	out, err := s.mgr.ExportCSV(ctx, filters)
	if err != nil {
		s.fail(c, "export", err)
		return
	}
	if out == session.NoSessionsFound {
		abortError(c, http.StatusNotFound, session.NoSessionsFound)
		return
	}

	name := fmt.Sprintf("sessions_%s.csv", time.Now().UTC().Format(dateOnly))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(out))
}

func (s *Server) cleanup(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	result, err := s.mgr.Cleanup(ctx)
	if err != nil {
		s.fail(c, "cleanup", err)
		return
	}

	s.logger.Info("cleanup triggered over http",
		"admin", c.GetString(ctxAdminSubject),
		"shards_removed", len(result.ShardsRemoved))

	c.JSON(http.StatusOK, gin.H{
		"cutoff":              result.Cutoff.String(),
		"shardsRemoved":       result.ShardsRemoved,
		"indexEntriesRemoved": result.IndexRemoved,
	})
}

func (s *Server) reindex(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	n, err := s.mgr.ReindexAll(ctx)
	if err != nil {
		s.fail(c, "reindex", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"indexed": n})
}

// ParseFilters reads session filters from query parameters: dateFrom,
// dateTo, country, browser, deviceType, userId, ipAddress, limit, offset.
// Dates are RFC 3339 or YYYY-MM-DD; a bare dateTo covers the whole day.
func ParseFilters(q url.Values) (session.Filters, error) {
	var f session.Filters
	var err error

	if f.DateFrom, err = parseTime(q.Get("dateFrom"), false); err != nil {
		return f, err
	}
	if f.DateTo, err = parseTime(q.Get("dateTo"), true); err != nil {
		return f, err
	}
	if f.Limit, err = parseInt(q, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = parseInt(q, "offset"); err != nil {
		return f, err
	}

	f.Country = q.Get("country")
	f.Browser = q.Get("browser")
	f.DeviceType = q.Get("deviceType")
	f.UserID = q.Get("userId")
	f.IPAddress = q.Get("ipAddress")

	return f, nil
}

// parseTime accepts RFC 3339 or a date. With endOfDay a date maps to its
// last millisecond.
func parseTime(v string, endOfDay bool) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a date", ErrInvalidQuery, v)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return t, nil
}

func parseInt(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidQuery, key, v)
	}
	return n, nil
}
