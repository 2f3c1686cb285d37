// Package auth holds the client session: two-factor login, logout, session restore and
// the role, feature and permission checks the rest of the client consults.
package auth

import "slices"

// Role names.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is the signed-in principal.
type User struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Roles    []string `json:"roles"`
	Features []string `json:"features"`
}

// HasRole reports whether u holds role.
func (u User) HasRole(role string) bool { return slices.Contains(u.Roles, role) }

// HasFeature reports whether feature is enabled for u.
func (u User) HasFeature(feature string) bool { return slices.Contains(u.Features, feature) }

// Credentials are the first login factor.
type Credentials struct {
	Email    string `json:"email" validate:"required,email" binding:"required,email"`
	Password string `json:"password" validate:"required" binding:"required"`
}

// MFARequest is the second factor.
type MFARequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

// RefreshRequest exchanges a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// LoginResponse answers the first factor. Tokens are only present when no second factor
// is required.
type LoginResponse struct {
	MFARequired  bool   `json:"mfaRequired"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// TokenResponse carries an issued token pair.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
	User         User   `json:"user"`
}

// Permission grants actions on a resource.
type Permission struct {
	Resource string   `json:"resource" yaml:"resource"`
	Actions  []string `json:"actions" yaml:"actions"`
}

// Policy maps role names to their permissions.
type Policy map[string][]Permission

// DefaultPolicy lets admins do everything and users work incidents and read the rest.
func DefaultPolicy() Policy {
	all := []string{"read", "write", "approve"}
	return Policy{
		RoleAdmin: {
			{Resource: "incidents", Actions: all},
			{Resource: "deployments", Actions: all},
			{Resource: "audit", Actions: all},
			{Resource: "logs", Actions: all},
		},
		RoleUser: {
			{Resource: "incidents", Actions: []string{"read", "write"}},
			{Resource: "deployments", Actions: []string{"read"}},
			{Resource: "logs", Actions: []string{"read"}},
		},
	}
}

// Allows reports whether any of roles grants action on resource.
func (p Policy) Allows(roles []string, resource, action string) bool {
	for _, role := range roles {
		for _, perm := range p[role] {
			if perm.Resource == resource && slices.Contains(perm.Actions, action) {
				return true
			}
		}
	}
	return false
}
