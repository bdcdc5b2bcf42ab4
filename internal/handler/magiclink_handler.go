package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nimbusnote/auth-service/internal/dto"
	"github.com/nimbusnote/auth-service/internal/mailer"
	"github.com/nimbusnote/auth-service/internal/service"
	"github.com/nimbusnote/auth-service/pkg/observability"
)

// MagicLinkHandler handles magic link requests
type MagicLinkHandler struct {
	magicLinks service.MagicLinkService
	mailer     mailer.Mailer
	sessionTTL time.Duration
	metrics    *observability.AuthMetrics
	logger     *zap.Logger
}

// NewMagicLinkHandler creates a new magic link handler
func NewMagicLinkHandler(magicLinks service.MagicLinkService, mail mailer.Mailer, sessionTTL time.Duration, metrics *observability.AuthMetrics, logger *zap.Logger) *MagicLinkHandler {
	return &MagicLinkHandler{
		magicLinks: magicLinks,
		mailer:     mail,
		sessionTTL: sessionTTL,
		metrics:    metrics,
		logger:     logger,
	}
}

// Request handles a magic link request
// @Summary Request a magic link
// @Description Send a single-use sign-in link to the given email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.MagicLinkRequest true "Magic link request"
// @Success 202 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /auth/magic-link/request [post]
func (h *MagicLinkHandler) Request(c *gin.Context) {
	var req dto.MagicLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	token, err := h.magicLinks.Request(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.mailer.SendMagicLink(c.Request.Context(), req.Email, token); err != nil {
		h.logger.Error("failed to send magic link", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "Failed to send magic link",
		})
		return
	}

	// The response never reveals whether the email maps to an account.
	c.JSON(http.StatusAccepted, dto.SuccessResponse{
		Message: "If the address is valid, a sign-in link has been sent",
	})
}

// Verify handles magic link redemption
// @Summary Verify a magic link
// @Description Redeem a single-use token and start a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.MagicLinkVerifyRequest true "Verification request"
// @Success 200 {object} dto.SessionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/magic-link/verify [post]
func (h *MagicLinkHandler) Verify(c *gin.Context) {
	var req dto.MagicLinkVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	ip, userAgent := clientContext(c)
	user, session, err := h.magicLinks.Verify(c.Request.Context(), req.Email, req.Token, ip, userAgent)
	if err != nil {
		h.metrics.RecordSignInFailure(c.Request.Context(), "magic_link")
		respondError(c, err)
		return
	}

	h.metrics.RecordSignIn(c.Request.Context(), "magic_link")
	setSessionCookie(c, session.ID, int(h.sessionTTL.Seconds()))
	c.JSON(http.StatusOK, dto.NewSessionResponse(user, session))
}
