package utils

import "context"

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller, as re-read from storage by the auth middleware.
type Identity struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Username string `json:"username"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == "admin"
}

// SetIdentity sets user info into context (called by middleware)
func SetIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom retrieves the caller safely
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// GetUserIDFromContext retrieves userID safely
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := IdentityFrom(ctx)
	if !ok {
		return 0, false
	}
	return id.ID, true
}
