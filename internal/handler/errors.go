// Package handler exposes the HTTP surface over the service layer.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"devmatch/internal/errs"
	"devmatch/internal/service/auth"
)

// respondError maps a service error onto an HTTP status and JSON body.
func respondError(c *gin.Context, err error) {
	if ve, ok := errs.AsValidation(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation failed",
			"fields": ve.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, errs.ErrDuplicateApplication):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, errs.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "the resource was modified concurrently, please retry"})
	case errors.Is(err, errs.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// pathID parses a numeric path parameter, responding 400 itself on failure.
func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// callerID reads the authenticated user id set by the auth middleware.
func callerID(c *gin.Context) int {
	return c.GetInt("user_id")
}

// callerRole reads the authenticated role set by the auth middleware.
func callerRole(c *gin.Context) string {
	return c.GetString("user_role")
}
