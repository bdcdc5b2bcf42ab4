package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nimbusnote/auth-service/internal/domain"
	"github.com/nimbusnote/auth-service/internal/dto"
	"github.com/nimbusnote/auth-service/internal/service"
	"github.com/nimbusnote/auth-service/pkg/observability"
)

// SessionHandler handles session lifecycle requests
type SessionHandler struct {
	sessions service.SessionService
	metrics  *observability.AuthMetrics
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions service.SessionService, metrics *observability.AuthMetrics) *SessionHandler {
	return &SessionHandler{sessions: sessions, metrics: metrics}
}

// Me returns the user for the current session
// @Summary Current session
// @Tags sessions
// @Produce json
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/me [get]
func (h *SessionHandler) Me(c *gin.Context) {
	user, ok := c.MustGet("user").(*domain.User)
	if !ok {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "Something went wrong",
		})
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

// Logout revokes the current session
// @Summary Logout
// @Tags sessions
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Router /auth/logout [post]
func (h *SessionHandler) Logout(c *gin.Context) {
	if sessionID := c.GetString("session_id"); sessionID != "" {
		if err := h.sessions.Logout(c.Request.Context(), sessionID); err != nil {
			respondError(c, err)
			return
		}
		h.metrics.RecordSessionsRevoked(c.Request.Context(), 1)
	}

	clearSessionCookie(c)
	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Logged out"})
}

// LogoutAll revokes every session for the signed-in user
// @Summary Logout everywhere
// @Tags sessions
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/logout-all [post]
func (h *SessionHandler) LogoutAll(c *gin.Context) {
	if err := h.sessions.RevokeAll(c.Request.Context(), c.GetString("user_id")); err != nil {
		respondError(c, err)
		return
	}

	clearSessionCookie(c)
	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "All sessions revoked"})
}
