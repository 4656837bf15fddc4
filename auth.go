package ifxfdw

import (
	"context"

	"github.com/hugr-lab/ifx-fdw/auth"
)

// Authenticator validates bearer tokens and returns user identity.
// This is re-exported from the auth package for convenience.
type Authenticator = auth.Authenticator

// BearerAuth creates an Authenticator from a validation function. The
// returned identity selects the user mapping of remote connections.
//
// Example:
//
//	config := ifxfdw.ServerConfig{
//	    Tables: cat,
//	    Authenticator: ifxfdw.BearerAuth(func(token string) (string, error) {
//	        user, err := lookupToken(token)
//	        if err != nil {
//	            return "", ifxfdw.ErrUnauthorized
//	        }
//	        return user, nil
//	    }),
//	}
func BearerAuth(validateFunc func(token string) (identity string, err error)) Authenticator {
	return auth.BearerAuth(validateFunc)
}

// StaticTokens authenticates against a fixed token to identity map.
func StaticTokens(tokens map[string]string) Authenticator {
	return auth.StaticTokens(tokens)
}

// NoAuth returns an Authenticator that allows all requests without validation.
// Useful for development and testing. DO NOT use in production.
func NoAuth() Authenticator {
	return auth.NoAuth()
}

// IdentityFromContext retrieves the authenticated user identity from context.
// Returns empty string if no identity is set (unauthenticated request).
func IdentityFromContext(ctx context.Context) string {
	return auth.IdentityFromContext(ctx)
}
