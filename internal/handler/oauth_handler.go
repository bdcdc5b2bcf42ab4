package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nimbusnote/auth-service/internal/domain"
	"github.com/nimbusnote/auth-service/internal/dto"
	"github.com/nimbusnote/auth-service/internal/oauth"
	"github.com/nimbusnote/auth-service/internal/repository"
	"github.com/nimbusnote/auth-service/internal/service"
	"github.com/nimbusnote/auth-service/pkg/observability"
)

// OAuthHandler handles federated sign-in flows
type OAuthHandler struct {
	manager      *oauth.Manager
	oauthService service.OAuthService
	identityRepo repository.IdentityRepository
	sessionTTL   time.Duration
	metrics      *observability.AuthMetrics
}

// NewOAuthHandler creates a new OAuth handler
func NewOAuthHandler(manager *oauth.Manager, oauthService service.OAuthService, identityRepo repository.IdentityRepository, sessionTTL time.Duration, metrics *observability.AuthMetrics) *OAuthHandler {
	return &OAuthHandler{
		manager:      manager,
		oauthService: oauthService,
		identityRepo: identityRepo,
		sessionTTL:   sessionTTL,
		metrics:      metrics,
	}
}

// Start redirects to the provider authorization page
// @Summary Start an OAuth login flow
// @Tags oauth
// @Param provider path string true "Provider name"
// @Success 302
// @Failure 400 {object} dto.ErrorResponse
// @Router /auth/oauth/{provider}/start [get]
func (h *OAuthHandler) Start(c *gin.Context) {
	provider := domain.OAuthProvider(c.Param("provider"))
	if !provider.Valid() {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: "Unknown provider",
		})
		return
	}

	authURL, err := h.manager.Begin(c.Request.Context(), provider, "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, authURL)
}

// LinkStart redirects to the provider authorization page for linking a
// new identity to the signed-in account
// @Summary Start an OAuth linking flow
// @Tags oauth
// @Param provider path string true "Provider name"
// @Success 302
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /account/identities/{provider}/start [get]
func (h *OAuthHandler) LinkStart(c *gin.Context) {
	provider := domain.OAuthProvider(c.Param("provider"))
	if !provider.Valid() {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: "Unknown provider",
		})
		return
	}

	authURL, err := h.manager.Begin(c.Request.Context(), provider, c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, authURL)
}

// Callback completes a flow. A login flow resolves the identity and
// issues a session; a linking flow attaches the identity to the user
// the flow was started for.
// @Summary OAuth provider callback
// @Tags oauth
// @Produce json
// @Param provider path string true "Provider name"
// @Success 200 {object} dto.SessionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /auth/oauth/{provider}/callback [get]
func (h *OAuthHandler) Callback(c *gin.Context) {
	provider := domain.OAuthProvider(c.Param("provider"))
	if !provider.Valid() {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: "Unknown provider",
		})
		return
	}

	var req dto.OAuthCallbackRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	identity, linkUserID, err := h.manager.Complete(c.Request.Context(), provider, req.State, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	if linkUserID != "" {
		linked, err := h.oauthService.LinkAccount(c.Request.Context(), linkUserID, provider, identity.ProviderUserID, identity.Email)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewIdentityResponse(linked))
		return
	}

	ip, userAgent := clientContext(c)
	user, session, err := h.oauthService.ResolveLogin(c.Request.Context(), provider, identity.ProviderUserID, identity.Email, ip, userAgent)
	if err != nil {
		h.metrics.RecordSignInFailure(c.Request.Context(), "oauth")
		respondError(c, err)
		return
	}

	h.metrics.RecordSignIn(c.Request.Context(), "oauth")
	setSessionCookie(c, session.ID, int(h.sessionTTL.Seconds()))
	c.JSON(http.StatusOK, dto.NewSessionResponse(user, session))
}

// ListIdentities returns the signed-in user's linked identities
// @Summary List linked identities
// @Tags oauth
// @Produce json
// @Success 200 {array} dto.IdentityResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /account/identities [get]
func (h *OAuthHandler) ListIdentities(c *gin.Context) {
	identities, err := h.identityRepo.GetByUserID(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "Failed to load identities",
		})
		return
	}

	responses := make([]dto.IdentityResponse, 0, len(identities))
	for _, identity := range identities {
		responses = append(responses, dto.NewIdentityResponse(identity))
	}
	c.JSON(http.StatusOK, responses)
}
