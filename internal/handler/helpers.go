package handler

import (
	"net/http"
	"strconv"

	"pms-backend/internal/service"
	"pms-backend/pkg/apperr"
	"pms-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// currentActor extracts the authenticated actor from context values set by
// the auth middleware. Returns false when the values are missing or malformed.
func currentActor(c *gin.Context) (service.Actor, bool) {
	rawID, exists := c.Get("userID")
	if !exists {
		return service.Actor{}, false
	}
	idStr, ok := rawID.(string)
	if !ok {
		return service.Actor{}, false
	}
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return service.Actor{}, false
	}

	role, _ := c.Get("userRole")
	roleStr, _ := role.(string)

	return service.Actor{UserID: uint(id), Role: roleStr}, true
}

// requireActor is currentActor plus the 401 response on failure.
func requireActor(c *gin.Context) (service.Actor, bool) {
	actor, ok := currentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User identity not found in context"))
	}
	return actor, ok
}

// parseIDParam parses a positive integer path parameter.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid "+name+" parameter"))
		return 0, false
	}
	return uint(id), true
}

// respondError maps service error kinds onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindValidation:
		status = http.StatusBadRequest
	}
	c.JSON(status, response.Error(status, err.Error()))
}
