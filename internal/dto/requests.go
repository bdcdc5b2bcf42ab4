package dto

import (
	"encoding/json"
	"time"

	"github.com/nimbusnote/auth-service/internal/domain"
)

// MagicLinkRequest represents a magic link request
type MagicLinkRequest struct {
	Email string `json:"email" binding:"required"`
}

// MagicLinkVerifyRequest represents a magic link redemption request
type MagicLinkVerifyRequest struct {
	Email string `json:"email" binding:"required"`
	Token string `json:"token" binding:"required"`
}

// PasskeyRegisterFinishRequest represents a registration ceremony completion
type PasskeyRegisterFinishRequest struct {
	Response   json.RawMessage `json:"response" binding:"required"`
	Transports []string        `json:"transports"`
	DeviceName *string         `json:"device_name"`
}

// PasskeyLoginStartRequest represents an authentication ceremony start
type PasskeyLoginStartRequest struct {
	Email string `json:"email" binding:"required"`
}

// PasskeyLoginFinishRequest represents an authentication ceremony completion
type PasskeyLoginFinishRequest struct {
	CredentialID string          `json:"credential_id" binding:"required"`
	Response     json.RawMessage `json:"response" binding:"required"`
}

// OAuthCallbackRequest represents a provider callback. Apple posts the
// parameters as a form; Google sends them in the query string.
type OAuthCallbackRequest struct {
	Code  string `form:"code" json:"code" binding:"required"`
	State string `form:"state" json:"state" binding:"required"`
}

// UpdateProfileRequest represents a profile update. Absent fields are
// left unchanged; an empty phone clears it.
type UpdateProfileRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

// UpdatePlanRequest represents a plan change
type UpdatePlanRequest struct {
	Plan string `json:"plan" binding:"required"`
}

// UpdateEmailRequest represents an email change
type UpdateEmailRequest struct {
	Email string `json:"email" binding:"required"`
}

// UserResponse represents user information in responses
type UserResponse struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Email            string  `json:"email"`
	Phone            *string `json:"phone"`
	Plan             string  `json:"plan"`
	LastSignInAt     *string `json:"last_sign_in_at"`
	LastSignInMethod *string `json:"last_sign_in_method"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

// NewUserResponse maps a domain user to its response form.
func NewUserResponse(user *domain.User) UserResponse {
	resp := UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Phone:     user.Phone,
		Plan:      string(user.Plan),
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
	if user.LastSignInAt != nil {
		formatted := user.LastSignInAt.Format(time.RFC3339)
		resp.LastSignInAt = &formatted
	}
	if user.LastSignInMethod != nil {
		method := string(*user.LastSignInMethod)
		resp.LastSignInMethod = &method
	}
	return resp
}

// SessionResponse represents an issued session
type SessionResponse struct {
	User      UserResponse `json:"user"`
	SessionID string       `json:"session_id"`
	ExpiresAt string       `json:"expires_at"`
}

// NewSessionResponse maps an issued session to its response form.
func NewSessionResponse(user *domain.User, session *domain.Session) SessionResponse {
	return SessionResponse{
		User:      NewUserResponse(user),
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
	}
}

// PasskeyResponse represents a registered passkey
type PasskeyResponse struct {
	ID           string   `json:"id"`
	CredentialID string   `json:"credential_id"`
	Transports   []string `json:"transports"`
	DeviceName   *string  `json:"device_name"`
	LastUsedAt   *string  `json:"last_used_at"`
	CreatedAt    string   `json:"created_at"`
}

// NewPasskeyResponse maps a domain passkey to its response form.
func NewPasskeyResponse(pk *domain.Passkey) PasskeyResponse {
	resp := PasskeyResponse{
		ID:           pk.ID,
		CredentialID: pk.CredentialID,
		Transports:   pk.Transports,
		DeviceName:   pk.DeviceName,
		CreatedAt:    pk.CreatedAt.Format(time.RFC3339),
	}
	if pk.LastUsedAt != nil {
		formatted := pk.LastUsedAt.Format(time.RFC3339)
		resp.LastUsedAt = &formatted
	}
	return resp
}

// IdentityResponse represents a linked provider identity
type IdentityResponse struct {
	ID        string `json:"id"`
	Provider  string `json:"provider"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// NewIdentityResponse maps a domain identity to its response form.
func NewIdentityResponse(identity *domain.Identity) IdentityResponse {
	return IdentityResponse{
		ID:        identity.ID,
		Provider:  string(identity.Provider),
		Email:     identity.Email,
		CreatedAt: identity.CreatedAt.Format(time.RFC3339),
	}
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
