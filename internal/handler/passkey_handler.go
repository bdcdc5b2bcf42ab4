package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nimbusnote/auth-service/internal/domain"
	"github.com/nimbusnote/auth-service/internal/dto"
	"github.com/nimbusnote/auth-service/internal/repository"
	"github.com/nimbusnote/auth-service/internal/service"
	"github.com/nimbusnote/auth-service/pkg/observability"
)

// PasskeyHandler handles WebAuthn ceremony requests
type PasskeyHandler struct {
	passkeys    service.PasskeyService
	passkeyRepo repository.PasskeyRepository
	sessionTTL  time.Duration
	metrics     *observability.AuthMetrics
}

// NewPasskeyHandler creates a new passkey handler
func NewPasskeyHandler(passkeys service.PasskeyService, passkeyRepo repository.PasskeyRepository, sessionTTL time.Duration, metrics *observability.AuthMetrics) *PasskeyHandler {
	return &PasskeyHandler{
		passkeys:    passkeys,
		passkeyRepo: passkeyRepo,
		sessionTTL:  sessionTTL,
		metrics:     metrics,
	}
}

// RegisterStart begins a registration ceremony for the signed-in user
// @Summary Start passkey registration
// @Tags passkeys
// @Produce json
// @Success 200 {object} service.RegistrationChallenge
// @Failure 401 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /passkeys/register/start [post]
func (h *PasskeyHandler) RegisterStart(c *gin.Context) {
	userID := c.GetString("user_id")

	challenge, err := h.passkeys.StartRegistration(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, challenge)
}

// RegisterFinish completes a registration ceremony
// @Summary Finish passkey registration
// @Tags passkeys
// @Accept json
// @Produce json
// @Param request body dto.PasskeyRegisterFinishRequest true "Attestation response"
// @Success 201 {object} dto.PasskeyResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /passkeys/register/finish [post]
func (h *PasskeyHandler) RegisterFinish(c *gin.Context) {
	userID := c.GetString("user_id")

	var req dto.PasskeyRegisterFinishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	passkey, err := h.passkeys.FinishRegistration(c.Request.Context(), userID, req.Response, req.Transports, req.DeviceName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewPasskeyResponse(passkey))
}

// LoginStart begins an authentication ceremony
// @Summary Start passkey login
// @Tags passkeys
// @Accept json
// @Produce json
// @Param request body dto.PasskeyLoginStartRequest true "Login start request"
// @Success 200 {object} service.AuthenticationChallenge
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/passkey/start [post]
func (h *PasskeyHandler) LoginStart(c *gin.Context) {
	var req dto.PasskeyLoginStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	challenge, err := h.passkeys.StartAuthentication(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, challenge)
}

// LoginFinish completes an authentication ceremony
// @Summary Finish passkey login
// @Tags passkeys
// @Accept json
// @Produce json
// @Param request body dto.PasskeyLoginFinishRequest true "Assertion response"
// @Success 200 {object} dto.SessionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/passkey/finish [post]
func (h *PasskeyHandler) LoginFinish(c *gin.Context) {
	var req dto.PasskeyLoginFinishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	ip, userAgent := clientContext(c)
	user, session, err := h.passkeys.FinishAuthentication(c.Request.Context(), req.CredentialID, req.Response, ip, userAgent)
	if err != nil {
		if errors.Is(err, domain.ErrReplayDetected) {
			h.metrics.RecordReplayDetected(c.Request.Context())
		}
		h.metrics.RecordSignInFailure(c.Request.Context(), "passkey")
		respondError(c, err)
		return
	}

	h.metrics.RecordSignIn(c.Request.Context(), "passkey")
	setSessionCookie(c, session.ID, int(h.sessionTTL.Seconds()))
	c.JSON(http.StatusOK, dto.NewSessionResponse(user, session))
}

// List returns the signed-in user's registered passkeys
// @Summary List passkeys
// @Tags passkeys
// @Produce json
// @Success 200 {array} dto.PasskeyResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /passkeys [get]
func (h *PasskeyHandler) List(c *gin.Context) {
	userID := c.GetString("user_id")

	passkeys, err := h.passkeyRepo.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "Failed to load passkeys",
		})
		return
	}

	responses := make([]dto.PasskeyResponse, 0, len(passkeys))
	for _, pk := range passkeys {
		responses = append(responses, dto.NewPasskeyResponse(pk))
	}
	c.JSON(http.StatusOK, responses)
}
