package httpapi

import (
	"errors"
	"net/http"

	"call-router/internal/users"
	"call-router/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups admin HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
//
// Authentication is not handled here; admin routes are expected to be
// restricted at the edge.
type Handlers struct {
	Users *users.Service
}

// ListUsers returns every configured number, or the single owner of ?phone=.
func (h Handlers) ListUsers(c *gin.Context) {
	if h.Users == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "users store not configured"})
		return
	}
	log := logger.FromGin(c)

	if phone := c.Query("phone"); phone != "" {
		u, err := h.Users.GetByPhoneNumber(c.Request.Context(), phone)
		if err != nil {
			if errors.Is(err, users.ErrNotFound) {
				c.JSON(http.StatusOK, gin.H{"users": []users.User{}})
				return
			}
			h.fail(c, err, "Failed to retrieve users")
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": []users.User{u}})
		return
	}

	list, err := h.Users.List(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to retrieve users")
		return
	}
	log.Info("users retrieved", "count", len(list))
	c.JSON(http.StatusOK, gin.H{"users": list})
}

func (h Handlers) GetUser(c *gin.Context) {
	if h.Users == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "users store not configured"})
		return
	}
	userID := c.Param("user_id")

	u, err := h.Users.Get(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err, "Failed to retrieve user")
		return
	}
	logger.FromGin(c).Info("user retrieved", "user_id", userID)
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (h Handlers) UpdateUser(c *gin.Context) {
	if h.Users == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "users store not configured"})
		return
	}
	userID := c.Param("user_id")

	var req users.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Wrong shapes (service_types not an array, business_qa not an object) land here.
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	u, err := h.Users.Update(c.Request.Context(), userID, req)
	if err != nil {
		h.fail(c, err, "Failed to update user")
		return
	}
	logger.FromGin(c).Info("user updated", "user_id", userID, "business_name", u.BusinessName)
	c.JSON(http.StatusOK, gin.H{"user": u, "message": "User updated successfully"})
}

func (h Handlers) fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, users.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, users.ErrInvalidArgument):
		reason := "Invalid request"
		var ve *users.ValidationError
		if errors.As(err, &ve) {
			reason = ve.Reason
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": reason})
	default:
		logger.FromGin(c).Error(msg, "err", err)
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
