// Package auth authenticates Flight requests with bearer tokens. The
// authenticated identity selects the user mapping of the remote connection.
package auth

import (
	"context"
	"errors"
)

var (
	// ErrInvalidAuthHeader is returned when the authorization header is malformed.
	ErrInvalidAuthHeader = errors.New("authorization header must use Bearer scheme")

	// ErrTokenIsEmpty is returned for a missing or empty bearer token.
	ErrTokenIsEmpty = errors.New("authorization token is empty")

	// ErrUnauthenticated is returned when authentication fails.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Anonymous is the identity of NoAuth requests. It has no user mapping of
// its own and uses the public one.
const Anonymous = "anonymous"

// Authenticator validates bearer tokens and returns the user identity.
// Implementations MUST be goroutine-safe.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (identity string, err error)
}

type noAuthenticator struct{}

// NoAuth returns an Authenticator that accepts every request as Anonymous.
// For development and tests only.
func NoAuth() Authenticator {
	return noAuthenticator{}
}

func (noAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	return Anonymous, nil
}

type bearerAuthenticator struct {
	validate func(token string) (identity string, err error)
}

// BearerAuth creates an Authenticator from a validation function.
//
//	a := auth.BearerAuth(func(token string) (string, error) {
//	    if token != secret {
//	        return "", auth.ErrUnauthenticated
//	    }
//	    return "informix", nil
//	})
func BearerAuth(validate func(token string) (identity string, err error)) Authenticator {
	return &bearerAuthenticator{validate: validate}
}

func (b *bearerAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return b.validate(token)
}

// StaticTokens returns an Authenticator over a fixed token to identity map.
func StaticTokens(tokens map[string]string) Authenticator {
	m := make(map[string]string, len(tokens))
	for k, v := range tokens {
		m[k] = v
	}
	return BearerAuth(func(token string) (string, error) {
		identity, ok := m[token]
		if !ok {
			return "", ErrUnauthenticated
		}
		return identity, nil
	})
}
