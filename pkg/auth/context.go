package auth

import (
	"context"
	"errors"
)

// GetUserIDFromContext extracts the user ID (sub) from JWT claims in the context.
// Returns empty string if not authenticated.
func GetUserIDFromContext(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return ""
	}
	return claims.Subject
}

// RequireUserIDFromContext is GetUserIDFromContext for callers that need a user.
func RequireUserIDFromContext(ctx context.Context) (string, error) {
	userID := GetUserIDFromContext(ctx)
	if userID == "" {
		return "", errors.New("user ID not found in context")
	}
	return userID, nil
}
