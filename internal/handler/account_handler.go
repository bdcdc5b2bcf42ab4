package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nimbusnote/auth-service/internal/domain"
	"github.com/nimbusnote/auth-service/internal/dto"
	"github.com/nimbusnote/auth-service/internal/service"
)

// AccountHandler handles profile and account lifecycle requests
type AccountHandler struct {
	accounts service.AccountService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts service.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// GetProfile returns the signed-in user's profile
// @Summary Get profile
// @Tags account
// @Produce json
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /account [get]
func (h *AccountHandler) GetProfile(c *gin.Context) {
	user, err := h.accounts.GetProfile(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

// UpdateProfile updates name and phone
// @Summary Update profile
// @Tags account
// @Accept json
// @Produce json
// @Param request body dto.UpdateProfileRequest true "Profile update"
// @Success 200 {object} dto.UserResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /account [patch]
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	user, err := h.accounts.UpdateProfile(c.Request.Context(), c.GetString("user_id"), req.Name, req.Phone)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

// UpdatePlan changes the subscription plan
// @Summary Update plan
// @Tags account
// @Accept json
// @Produce json
// @Param request body dto.UpdatePlanRequest true "Plan update"
// @Success 200 {object} dto.UserResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /account/plan [put]
func (h *AccountHandler) UpdatePlan(c *gin.Context) {
	var req dto.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	user, err := h.accounts.UpdatePlan(c.Request.Context(), c.GetString("user_id"), domain.Plan(req.Plan))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

// UpdateEmail changes the account email and revokes all sessions
// @Summary Update email
// @Tags account
// @Accept json
// @Produce json
// @Param request body dto.UpdateEmailRequest true "Email update"
// @Success 200 {object} dto.UserResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /account/email [put]
func (h *AccountHandler) UpdateEmail(c *gin.Context) {
	var req dto.UpdateEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	user, err := h.accounts.UpdateEmail(c.Request.Context(), c.GetString("user_id"), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	// Every session was just revoked, including this one.
	clearSessionCookie(c)
	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

// DeleteAccount deletes the account and everything attached to it
// @Summary Delete account
// @Tags account
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /account [delete]
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	if err := h.accounts.DeleteAccount(c.Request.Context(), c.GetString("user_id")); err != nil {
		respondError(c, err)
		return
	}

	clearSessionCookie(c)
	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Account deleted"})
}
