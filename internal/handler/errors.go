package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nimbusnote/auth-service/internal/domain"
	"github.com/nimbusnote/auth-service/internal/dto"
)

func dtoError(kind, message string) dto.ErrorResponse {
	return dto.ErrorResponse{Error: kind, Message: message}
}

// respondError maps a service error to an HTTP response. Authentication
// failures share one generic body so callers cannot distinguish unknown
// emails, expired tokens, and bad secrets.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, dtoError("Validation failed", err.Error()))
	case errors.Is(err, domain.ErrInvalidCredential):
		c.JSON(http.StatusUnauthorized, dtoError("Unauthorized", "Invalid credentials"))
	case errors.Is(err, domain.ErrReplayDetected):
		c.JSON(http.StatusUnauthorized, dtoError("Unauthorized", "Invalid credentials"))
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, dtoError("Conflict", err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, dtoError("Internal server error", "Something went wrong"))
	}
}
