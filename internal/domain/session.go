package domain

import "fmt"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type AuthState string

const (
	AuthResolving AuthState = "resolving"
	AuthSignedOut AuthState = "signed_out"
	AuthSignedIn  AuthState = "signed_in"
)

// Session is resolved once per sign-in or token refresh and then carried
// in the access token, so handlers never look the role up again.
type Session struct {
	State  AuthState `json:"state"`
	UserID string    `json:"user_id,omitempty"`
	Email  string    `json:"email,omitempty"`
	Role   string    `json:"role,omitempty"`
}

func Anonymous() Session {
	return Session{State: AuthSignedOut}
}

func (s Session) Authenticated() bool {
	return s.State == AuthSignedIn && s.UserID != ""
}

func (s Session) IsAdmin() bool {
	return s.Authenticated() && s.Role == RoleAdmin
}

// RequireAdmin returns ErrAuth for anonymous or unresolved sessions and
// ErrAccessDenied for signed in non-admins.
func (s Session) RequireAdmin() error {
	if !s.Authenticated() {
		return fmt.Errorf("session %s: %w", s.State, ErrAuth)
	}
	if s.Role != RoleAdmin {
		return fmt.Errorf("role %q: %w", s.Role, ErrAccessDenied)
	}
	return nil
}
