package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// TokenProvider supplies the bearer token used to open the channel.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenProvider.
type TokenFunc func(ctx context.Context) (string, error)

// Token implements TokenProvider.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticToken always returns the same token. An empty StaticToken dials
// anonymously.
type StaticToken string

// Token implements TokenProvider.
func (s StaticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

// FromTokenSource adapts an oauth2.TokenSource.
func FromTokenSource(ts oauth2.TokenSource) TokenProvider {
	return TokenFunc(func(context.Context) (string, error) {
		tok, err := ts.Token()
		if err != nil {
			return "", fmt.Errorf("fetching token: %w", err)
		}
		return tok.AccessToken, nil
	})
}

// tokenExpiry returns the exp claim of a JWT without verifying it, or the
// zero time for opaque tokens.
func tokenExpiry(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	tok, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := tok.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
