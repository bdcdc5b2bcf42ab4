package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nimbusnote/auth-service/internal/dto"
	"github.com/nimbusnote/auth-service/internal/service"
)

// SessionCookieName is the cookie carrying the opaque session id.
const SessionCookieName = "session_id"

// AuthMiddleware validates the session and adds user info to context.
// The session id is read from the cookie first, then from a Bearer
// header for non-browser clients.
func AuthMiddleware(sessions service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := extractSessionID(c)
		if sessionID == "" {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Authentication required",
			})
			c.Abort()
			return
		}

		user, err := sessions.Validate(c.Request.Context(), sessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Invalid or expired session",
			})
			c.Abort()
			return
		}

		c.Set("user_id", user.ID)
		c.Set("user", user)
		c.Set("session_id", sessionID)

		c.Next()
	}
}

func extractSessionID(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}
	authHeader := c.GetHeader("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// clientContext pulls the request attribution recorded on new sessions.
func clientContext(c *gin.Context) (*string, *string) {
	var ip, userAgent *string
	if addr := c.ClientIP(); addr != "" {
		ip = &addr
	}
	if ua := c.Request.UserAgent(); ua != "" {
		userAgent = &ua
	}
	return ip, userAgent
}

// setSessionCookie writes the session cookie with the remaining TTL.
func setSessionCookie(c *gin.Context, sessionID string, maxAge int) {
	c.SetCookie(SessionCookieName, sessionID, maxAge, "/", "", true, true)
}

// clearSessionCookie expires the session cookie.
func clearSessionCookie(c *gin.Context) {
	c.SetCookie(SessionCookieName, "", -1, "/", "", true, true)
}
