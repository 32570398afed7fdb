package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"trafficportal/internal/permissions"
	"trafficportal/internal/registry"
	"trafficportal/internal/session"
)

var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{registry.ErrMissingField, http.StatusBadRequest, "missing_field"},
	{registry.ErrDuplicateCityCode, http.StatusConflict, "duplicate_city_code"},
	{registry.ErrCityNotFound, http.StatusNotFound, "city_not_found"},
	{session.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{session.ErrNoSession, http.StatusUnauthorized, "no_session"},
	{permissions.ErrUnknownSection, http.StatusBadRequest, "unknown_section"},
	{permissions.ErrMissingScope, http.StatusBadRequest, "missing_scope"},
}

// respondError maps domain errors to their status and code. Anything
// unrecognised is logged and reported as a 500.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			c.JSON(e.status, gin.H{"error": e.code})
			return
		}
	}

	_ = c.Error(err)
	h.log.Error().Err(err).Str("route", c.FullPath()).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}
