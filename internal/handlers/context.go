package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tripmate/internal/middleware"
	"github.com/charlesng35/tripmate/pkg/errors"
	"github.com/charlesng35/tripmate/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentUser returns the authenticated user id, writing a 401 when absent.
func currentUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return 0, false
	}
	return userID, true
}

// uintParam parses a positive numeric path parameter, writing a 400 when malformed.
func uintParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || value == 0 {
		response.Error(c, errors.NewBadRequest("invalid "+name))
		return 0, false
	}
	return uint(value), true
}

// uintQuery parses a required positive numeric query parameter.
func uintQuery(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		response.Error(c, errors.NewBadRequest(name+" is required"))
		return 0, false
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		response.Error(c, errors.NewBadRequest("invalid "+name))
		return 0, false
	}
	return uint(value), true
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// parseDate accepts full timestamps as well as bare calendar dates from date pickers.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// optionalDate parses value when present. Empty strings yield nil.
func optionalDate(field string, value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	t, err := parseDate(*value)
	if err != nil {
		return nil, errors.NewBadRequest(field + " must be a date (YYYY-MM-DD) or RFC3339 timestamp")
	}
	return &t, nil
}

// requiredDate parses value, reporting field in the error.
func requiredDate(field, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, errors.NewBadRequest(field + " is required")
	}
	t, err := parseDate(value)
	if err != nil {
		return time.Time{}, errors.NewBadRequest(field + " must be a date (YYYY-MM-DD) or RFC3339 timestamp")
	}
	return t, nil
}
