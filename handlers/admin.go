package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"laundry-api/middleware"
	"laundry-api/models"
)

// AdminGetAllUsers lists users, optionally filtered by ?role=
func (h *Handler) AdminGetAllUsers(c *gin.Context) {
	role := models.UserRole(c.Query("role"))
	users, err := h.users.ListUsers(c.Request.Context(), middleware.GetActor(c), role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
}
