package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Login 登录
// POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	session, err := h.dashboard.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Warn("Login failed", zap.String("username", req.Username), zap.Error(err))
		h.writeAPIError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID,
		"username":   session.Username,
	})
}

// Logout 登出
// POST /api/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	session := sessionFrom(c)

	if err := h.dashboard.Logout(c.Request.Context(), session.ID); err != nil {
		h.writeAPIError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
