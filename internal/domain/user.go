package domain

import "time"

// Plan is a user's subscription tier.
type Plan string

const (
	PlanFreeTrial Plan = "free_trial"
	PlanPlus      Plan = "plus"
	PlanPremium   Plan = "premium"
	PlanLifetime  Plan = "lifetime"
)

// Valid reports whether the plan is one of the known tiers.
func (p Plan) Valid() bool {
	switch p {
	case PlanFreeTrial, PlanPlus, PlanPremium, PlanLifetime:
		return true
	}
	return false
}

// SignInMethod records which credential method completed a sign-in.
type SignInMethod string

const (
	SignInMagicLink SignInMethod = "magic_link"
	SignInPasskey   SignInMethod = "passkey"
	SignInOAuth     SignInMethod = "oauth"
)

// User represents a user in the system
type User struct {
	ID               string        `json:"id" db:"id"`
	Name             string        `json:"name" db:"name"`
	Email            string        `json:"email" db:"email"`
	Phone            *string       `json:"phone" db:"phone"` // E.164, optional
	Plan             Plan          `json:"plan" db:"plan"`
	LastSignInAt     *time.Time    `json:"last_sign_in_at" db:"last_sign_in_at"`
	LastSignInMethod *SignInMethod `json:"last_sign_in_method" db:"last_sign_in_method"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

// RecordSignIn stamps the last-sign-in fields for a successful authentication.
func (u *User) RecordSignIn(method SignInMethod, at time.Time) {
	u.LastSignInAt = &at
	m := method
	u.LastSignInMethod = &m
	u.UpdatedAt = at
}

// CanRegisterPasskey reports whether the user's plan allows another passkey.
// Free-trial accounts are capped at two; paid plans are unlimited.
func (u *User) CanRegisterPasskey(currentCount int) bool {
	if u.Plan == PlanFreeTrial {
		return currentCount < 2
	}
	return true
}
